package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetQuietMode(false)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuietMode(false)
	})
	return &buf
}

func TestProgressBarString(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, 20)+"] 0/10", ProgressBarString(0, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10)+"] 5/10", ProgressBarString(5, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressBar, 20)+"] 12/10", ProgressBarString(12, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, 20)+"] 3/0", ProgressBarString(3, 0))
}

func TestStageTracker(t *testing.T) {
	buf := captureOutput(t)
	st := NewStageTracker()

	st.StageStarted("content")
	st.BatchDone("content", 50, 100)
	st.StageFinished("content", 100, false, 1500*time.Millisecond)
	st.StageStarted("pages")
	st.StageFinished("pages", 7, true, time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "content")
	assert.Contains(t, out, "50/100")
	assert.Equal(t, []string{
		"content: 100 items, fetched (1.5s)",
		"pages: 7 items, from cache (1ms)",
	}, st.Finished())
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := captureOutput(t)
	SetQuietMode(true)

	PrintInfo("Output", "./data")
	PrintSuccess("done")
	PrintWarning("careful")
	assert.Empty(t, buf.String())

	PrintError("Crawl failed", errors.New("boom"))
	assert.Contains(t, buf.String(), "Crawl failed: boom")
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return errors.New("no display")
}

func TestNotifier(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	n.SendSuccess("Crawl complete", "12 terms")
	n.SendError("Crawl failed", "boom")

	assert.Equal(t, []string{"Crawl complete", "Crawl failed"}, sender.titles)
	assert.Contains(t, buf.String(), "12 terms")

	// Terminal-only notifier never needs a sender
	NewNotifier(false).SendSuccess("ok", "fine")
}
