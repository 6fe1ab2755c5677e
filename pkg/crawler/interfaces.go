package crawler

import (
	"context"
	"time"

	"wikiglossary/pkg/mediawiki"
	"wikiglossary/pkg/models"
)

// WikiClient defines the MediaWiki API operations the pipeline needs
type WikiClient interface {
	ListPages(ctx context.Context, namespace, limit int, cursor string) (*mediawiki.PageList, error)
	FetchCategories(ctx context.Context, ids []int) (models.CategoryMap, error)
	FetchContent(ctx context.Context, ids []int) (models.ContentMap, error)
}

// Progress receives stage and batch updates for display
type Progress interface {
	StageStarted(stage string)
	BatchDone(stage string, done, total int)
	StageFinished(stage string, items int, resumed bool, elapsed time.Duration)
}

type nopProgress struct{}

func (nopProgress) StageStarted(string)                            {}
func (nopProgress) BatchDone(string, int, int)                     {}
func (nopProgress) StageFinished(string, int, bool, time.Duration) {}
