package scraper

import (
	"context"

	"picukidl/internal/downloader"
	"picukidl/pkg/picuki"
	"picukidl/pkg/storage"
)

// ProfileResolver loads the target profile and the seed for enumeration
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, username string) (*picuki.Profile, picuki.PageHandle, error)
}

// MediaEnumerator lists every media id of a profile
type MediaEnumerator interface {
	Enumerate(ctx context.Context, handle picuki.PageHandle, onPage func(page int, ids []string)) ([]string, error)
}

// MediaResolver loads the content record of one media id
type MediaResolver interface {
	ResolveMedia(ctx context.Context, mediaID string) (*picuki.ContentRecord, error)
}

// Store places download tasks on disk and reports what is stored
type Store interface {
	downloader.Ensurer
	Stats(username string) (storage.Stats, error)
}

// Display renders run milestones for the user
type Display interface {
	Profile(profile *picuki.Profile)
	Record(index, total int, record *picuki.ContentRecord)
	NoPosts(username string)
	Summary(username string, stats storage.Stats)
}

type nopDisplay struct{}

func (nopDisplay) Profile(*picuki.Profile)                {}
func (nopDisplay) Record(int, int, *picuki.ContentRecord) {}
func (nopDisplay) NoPosts(string)                         {}
func (nopDisplay) Summary(string, storage.Stats)          {}
