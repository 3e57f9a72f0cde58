package scraper

import (
	"picukidl/pkg/picuki"
	"picukidl/pkg/storage"
)

// State is a step of the run state machine.
type State string

const (
	StateInit            State = "init"
	StateProfileResolved State = "profile_resolved"
	StateEnumerated      State = "enumerated"
	StatePerItem         State = "per_item"
	StateSummarized      State = "summarized"
	StateDone            State = "done"
	StateAbortedNotFound State = "aborted_not_found"
)

// Selection picks the media categories to download.
type Selection struct {
	Images     bool
	Videos     bool
	Thumbnails bool
}

// All selects every category.
func All() Selection {
	return Selection{Images: true, Videos: true, Thumbnails: true}
}

// Any reports whether at least one category is selected.
func (s Selection) Any() bool {
	return s.Images || s.Videos || s.Thumbnails
}

// Includes reports whether c is selected.
func (s Selection) Includes(c storage.Category) bool {
	switch c {
	case storage.CategoryImages:
		return s.Images
	case storage.CategoryVideos:
		return s.Videos
	case storage.CategoryThumbnails:
		return s.Thumbnails
	}
	return false
}

// Categories lists the selected categories in canonical order.
func (s Selection) Categories() []storage.Category {
	var out []storage.Category
	for _, c := range storage.Categories {
		if s.Includes(c) {
			out = append(out, c)
		}
	}
	return out
}

// SkipReason explains why an item produced no downloads.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipUnavailable SkipReason = "content_unavailable"
	SkipTransient   SkipReason = "transient_error"
	SkipError       SkipReason = "error"
)

// ItemOutcome is the result of resolving one media id.
type ItemOutcome struct {
	MediaID string
	Record  *picuki.ContentRecord
	Skip    SkipReason
	Err     error
}

// Skipped reports whether the item was skipped.
func (o ItemOutcome) Skipped() bool {
	return o.Skip != SkipNone
}

// Report summarizes one run.
type Report struct {
	RunID         string          `json:"run_id"`
	State         State           `json:"state"`
	Username      string          `json:"username"`
	Profile       *picuki.Profile `json:"profile,omitempty"`
	MediaCount    int             `json:"media_count"`
	ItemsResolved int             `json:"items_resolved"`
	ItemsSkipped  int             `json:"items_skipped"`
	Completed     int             `json:"completed"`
	SkippedExists int             `json:"skipped_exists"`
	Failed        int             `json:"failed"`
	Statistics    storage.Stats   `json:"statistics"`
	// Failures aggregates per-item and per-task errors. Nil when none.
	Failures error `json:"-"`
}
