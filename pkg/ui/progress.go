package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StageTracker prints one status line per crawl stage and a progress bar
// while batches complete
type StageTracker struct {
	mu       sync.Mutex
	stage    string
	done     int
	total    int
	finished []string
}

// NewStageTracker creates an empty tracker
func NewStageTracker() *StageTracker {
	return &StageTracker{}
}

// StageStarted announces a stage
func (st *StageTracker) StageStarted(stage string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stage = stage
	st.done, st.total = 0, 0
	printf(false, "%s %s\n", Magenta("[STAGE]"), stage)
}

// BatchDone redraws the progress line. A zero total means the size is not
// known yet, so only the count is shown.
func (st *StageTracker) BatchDone(stage string, done, total int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stage = stage
	st.done, st.total = done, total
	printf(false, "\r%s %s", Green("[FETCHED]"), st.progressLine())
}

// StageFinished prints the stage result
func (st *StageTracker) StageFinished(stage string, items int, resumed bool, elapsed time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	source := "fetched"
	if resumed {
		source = "from cache"
	}
	line := fmt.Sprintf("%s: %d items, %s (%s)", stage, items, source, elapsed.Round(time.Millisecond))
	st.finished = append(st.finished, line)

	if st.done > 0 {
		printf(false, "\n")
	}
	printf(false, "%s %s\n", Cyan("[DONE]"), line)
	st.done, st.total = 0, 0
}

// Finished returns the summary lines of completed stages
func (st *StageTracker) Finished() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.finished...)
}

func (st *StageTracker) progressLine() string {
	if st.total <= 0 {
		return fmt.Sprintf("%s %d", st.stage, st.done)
	}
	return fmt.Sprintf("%s %s", st.stage, ProgressBarString(st.done, st.total))
}

// ProgressBarString renders a fixed-width bar with a done/total suffix
func ProgressBarString(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}
