package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wikiglossary/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{
			Level: "info",
			File:  filepath.Join(t.TempDir(), "logs", "crawl.log"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.log")
	l, err := New(&config.LoggingConfig{Level: "debug", File: path})
	require.NoError(t, err)

	l.InfoWithFields("stage done", map[string]interface{}{"stage": "enumerate"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"enumerate"`)
	assert.Contains(t, string(data), `"app":"wikiglossary"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	child := parent.WithField("stage", "content")
	child.Info("child message")
	parent.Info("parent message")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"stage":"content"`)
	assert.NotContains(t, string(lines[1]), "stage")
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("batch", 2).
		WithFields(map[string]interface{}{"pages": 50, "resumed": true}).
		WithError(errors.New("boom")).
		Warn("chained")

	out := buf.String()
	assert.Contains(t, out, `"batch":2`)
	assert.Contains(t, out, `"pages":50`)
	assert.Contains(t, out, `"resumed":true`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestWithNilErrorReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)
	assert.Same(t, l, l.WithError(nil))
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("typed", map[string]interface{}{
		"duration": 1500 * time.Millisecond,
		"terms":    []string{"a", "b"},
		"ids":      []int{1, 2},
		"ratio":    0.5,
		"custom":   struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"terms":["a","b"]`)
	assert.Contains(t, out, `"ids":[1,2]`)
	assert.Contains(t, out, `"custom":{"Name":"x"}`)
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "query", 200, 10*time.Millisecond)
	LogRequest(tl, "query", 503, 10*time.Millisecond)
	LogRateLimit(tl, "query", 2*time.Second)
	LogStageStart(tl, "enumerate", map[string]interface{}{"limit": 500})
	LogStageComplete(tl, "enumerate", 500, time.Second)
	LogBatchProgress(tl, "categories", 1, 4)
	LogMetrics(tl, "crawl", map[string]interface{}{"terms": 3})

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.True(t, tl.HasMessage("throttled"))

	var progress LogMessage
	for _, m := range tl.GetMessages() {
		if m.Message == "Batch progress" {
			progress = m
		}
	}
	assert.Equal(t, "25.0%", progress.Fields["percentage"])
}

func TestTestLoggerSharesSinkWithChildren(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("stage", "content").WithError(errors.New("timeout")).Error("batch failed")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "content", msgs[0].Fields["stage"])
	assert.Equal(t, "timeout", msgs[0].Error)
	assert.True(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled"}))
	assert.NotNil(t, GetLogger())

	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("via global")
	WithField("k", "v").Warn("with field")
	assert.True(t, tl.HasMessage("via global"))
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).InfoWithFields("ignored", nil)
	assert.NotNil(t, l.GetZerolog())
}
