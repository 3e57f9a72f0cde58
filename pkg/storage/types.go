package storage

import (
	"context"
	"time"
)

// Category selects the output subfolder for a download.
type Category string

const (
	CategoryImages     Category = "images"
	CategoryVideos     Category = "videos"
	CategoryThumbnails Category = "thumbnails"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryImages, CategoryVideos, CategoryThumbnails}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryImages, CategoryVideos, CategoryThumbnails:
		return true
	}
	return false
}

// Task is one asset to place under <root>/<username>/<category>/.
type Task struct {
	SourceURL string
	Username  string
	Category  Category
	// MediaID is the post the asset belongs to, for reporting only.
	MediaID string
}

// Status is the outcome of Ensure.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusSkippedExists Status = "skipped_exists"
	StatusFailed        Status = "failed"
)

// Result describes what Ensure did for a Task.
type Result struct {
	Task      Task
	LocalPath string
	Size      int64
	Status    Status
	Err       error
	Duration  time.Duration
}

// ProgressFunc receives cumulative bytes written and the advertised total
// (0 when unknown).
type ProgressFunc func(written, total int64)

// Fetcher downloads url to destPrefix plus an extension chosen from the
// response, returning the final path and byte count. On error no file
// remains at the returned or temporary path.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPrefix string, progress ProgressFunc) (string, int64, error)
}

// Transfer is a live progress display for one download.
type Transfer interface {
	Update(written, total int64)
	Finish()
}

// ProgressReporter opens a Transfer per fetched task.
type ProgressReporter interface {
	Begin(task Task) Transfer
}

type nopTransfer struct{}

func (nopTransfer) Update(written, total int64) {}
func (nopTransfer) Finish()                     {}

type nopReporter struct{}

func (nopReporter) Begin(Task) Transfer { return nopTransfer{} }
