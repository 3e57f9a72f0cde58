package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/picuki"
	"picukidl/pkg/storage"
)

type fakeProfiles struct {
	profiles map[string]*picuki.Profile
	err      error
}

func (f *fakeProfiles) ResolveProfile(ctx context.Context, username string) (*picuki.Profile, picuki.PageHandle, error) {
	if f.err != nil {
		return nil, picuki.PageHandle{}, f.err
	}
	p, ok := f.profiles[username]
	if !ok {
		return nil, picuki.PageHandle{}, errs.New(errs.ErrorTypeProfileNotFound, 404, "profile %s not found", username)
	}
	return p, picuki.PageHandle{Username: username}, nil
}

type fakeEnumerator struct {
	ids   []string
	err   error
	calls int32
}

func (f *fakeEnumerator) Enumerate(ctx context.Context, handle picuki.PageHandle, onPage func(int, []string)) ([]string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if onPage != nil && len(f.ids) > 0 {
		onPage(1, f.ids)
	}
	return f.ids, nil
}

type fakeMedia struct {
	records map[string]*picuki.ContentRecord
	errors  map[string]error
	// onResolve runs before each lookup.
	onResolve func(id string)
}

func (f *fakeMedia) ResolveMedia(ctx context.Context, id string) (*picuki.ContentRecord, error) {
	if f.onResolve != nil {
		f.onResolve(id)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, err, "resolve %s", id)
	}
	if err, ok := f.errors[id]; ok {
		return nil, err
	}
	if r, ok := f.records[id]; ok {
		return r, nil
	}
	return nil, errs.New(errs.ErrorTypeContentUnavailable, 404, "media %s", id)
}

// countingFetcher writes a small body per URL and records what it fetched.
type countingFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]error
}

func (f *countingFetcher) Fetch(ctx context.Context, url, destPrefix string, progress storage.ProgressFunc) (string, int64, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	err := f.fail[url]
	f.mu.Unlock()
	if err != nil {
		return "", 0, err
	}

	body := []byte("payload:" + url)
	path := destPrefix + ".bin"
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", 0, err
	}
	return path, int64(len(body)), nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type recordingDisplay struct {
	profiles int
	records  []string
	noPosts  []string
	summary  *storage.Stats
}

func (d *recordingDisplay) Profile(*picuki.Profile) { d.profiles++ }
func (d *recordingDisplay) Record(index, total int, r *picuki.ContentRecord) {
	d.records = append(d.records, r.MediaID)
}
func (d *recordingDisplay) NoPosts(username string) { d.noPosts = append(d.noPosts, username) }
func (d *recordingDisplay) Summary(username string, stats storage.Stats) {
	d.summary = &stats
}

type harness struct {
	root       string
	fetcher    *countingFetcher
	profiles   *fakeProfiles
	enumerator *fakeEnumerator
	media      *fakeMedia
	display    *recordingDisplay
	log        *logger.TestLogger
	scraper    *Scraper
}

func newHarness(t *testing.T, ids []string, records map[string]*picuki.ContentRecord) *harness {
	t.Helper()
	h := &harness{
		root:       t.TempDir(),
		fetcher:    &countingFetcher{},
		profiles:   &fakeProfiles{profiles: map[string]*picuki.Profile{"alice": {Username: "alice", PostCount: int64(len(ids))}}},
		enumerator: &fakeEnumerator{ids: ids},
		media:      &fakeMedia{records: records},
		display:    &recordingDisplay{},
		log:        logger.NewTestLogger(),
	}

	store := storage.NewManager(h.root, h.fetcher, h.log)
	s, err := New(Config{
		Profiles:   h.profiles,
		Enumerator: h.enumerator,
		Media:      h.media,
		Store:      store,
		Workers:    3,
		Display:    h.display,
		Logger:     h.log,
	})
	require.NoError(t, err)
	h.scraper = s
	return h
}

func (h *harness) files(t *testing.T, c storage.Category) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.root, "alice", string(c)))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestRunImagesOnly(t *testing.T) {
	h := newHarness(t, []string{"p1", "p2"}, map[string]*picuki.ContentRecord{
		"p1": {MediaID: "p1", Media: picuki.MediaPayload{Images: []string{"https://cdn.test/p1.jpg"}}},
		"p2": {MediaID: "p2", Media: picuki.MediaPayload{Videos: []picuki.VideoEntry{
			{URL: "https://cdn.test/p2.mp4", ThumbnailURL: "https://cdn.test/p2.jpg"},
		}}},
	})

	report, err := h.scraper.Run(context.Background(), "alice", Selection{Images: true})
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.MediaCount)
	assert.Equal(t, 2, report.ItemsResolved)
	assert.Equal(t, 1, report.Completed)
	assert.NoError(t, report.Failures)

	assert.Len(t, h.files(t, storage.CategoryImages), 1)
	assert.Empty(t, h.files(t, storage.CategoryVideos))
	assert.Equal(t, int64(0), report.Statistics.Videos.Bytes)
	assert.Equal(t, 1, report.Statistics.Images.Files)

	require.NotNil(t, h.display.summary)
	assert.Equal(t, []string{"p1", "p2"}, h.display.records)
}

func TestRunProfileNotFound(t *testing.T) {
	h := newHarness(t, []string{"p1"}, nil)

	report, err := h.scraper.Run(context.Background(), "ghost", All())
	assert.True(t, errors.Is(err, errs.ErrProfileNotFound))
	assert.Equal(t, StateAbortedNotFound, report.State)
	assert.Zero(t, atomic.LoadInt32(&h.enumerator.calls))
	assert.Zero(t, h.fetcher.count())

	_, statErr := os.Stat(filepath.Join(h.root, "ghost"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunTaskOrderAndIdempotentRerun(t *testing.T) {
	records := map[string]*picuki.ContentRecord{
		"p1": {MediaID: "p1", Media: picuki.MediaPayload{
			Images: []string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg"},
			Videos: []picuki.VideoEntry{
				{URL: "https://cdn.test/v1.mp4", ThumbnailURL: "https://cdn.test/t1.jpg"},
				{URL: "https://cdn.test/v2.mp4", ThumbnailURL: ""},
			},
		}},
	}
	h := newHarness(t, []string{"p1"}, records)

	first, err := h.scraper.Run(context.Background(), "alice", All())
	require.NoError(t, err)
	assert.Equal(t, 5, first.Completed)
	assert.Equal(t, 5, h.fetcher.count())
	assert.True(t, h.log.HasMessage("Media entry has no URL"))

	assert.Len(t, h.files(t, storage.CategoryImages), 2)
	assert.Len(t, h.files(t, storage.CategoryVideos), 2)
	assert.Len(t, h.files(t, storage.CategoryThumbnails), 1)

	second, err := h.scraper.Run(context.Background(), "alice", All())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Completed)
	assert.Equal(t, 5, second.SkippedExists)
	assert.Equal(t, 5, h.fetcher.count(), "second run must not fetch")
	assert.Equal(t, first.Statistics, second.Statistics)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestBuildTasksOrder(t *testing.T) {
	record := &picuki.ContentRecord{MediaID: "p1", Media: picuki.MediaPayload{
		Images: []string{"i1"},
		Videos: []picuki.VideoEntry{{URL: "v1", ThumbnailURL: "t1"}, {URL: "v2", ThumbnailURL: "t2"}},
	}}

	var got []string
	for _, task := range buildTasks(logger.NewNopLogger(), "alice", record, All()) {
		got = append(got, string(task.Category)+":"+task.SourceURL)
		assert.Equal(t, "p1", task.MediaID)
	}
	assert.Equal(t, []string{"images:i1", "thumbnails:t1", "videos:v1", "thumbnails:t2", "videos:v2"}, got)

	got = nil
	for _, task := range buildTasks(logger.NewNopLogger(), "alice", record, Selection{Thumbnails: true}) {
		got = append(got, task.SourceURL)
	}
	assert.Equal(t, []string{"t1", "t2"}, got)
}

func TestRunEmptyRecordDoesNothing(t *testing.T) {
	h := newHarness(t, []string{"p1"}, map[string]*picuki.ContentRecord{
		"p1": {MediaID: "p1"},
	})

	report, err := h.scraper.Run(context.Background(), "alice", All())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ItemsResolved)
	assert.Zero(t, report.Completed+report.SkippedExists+report.Failed)
	assert.Zero(t, h.fetcher.count())
	assert.Equal(t, storage.Stats{}, report.Statistics)
}

func TestRunNoPosts(t *testing.T) {
	h := newHarness(t, nil, nil)

	report, err := h.scraper.Run(context.Background(), "alice", All())
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, []string{"alice"}, h.display.noPosts)
	assert.Nil(t, h.display.summary, "no download phase for an empty profile")
	assert.Zero(t, h.fetcher.count())
}

func TestRunSkipsUnavailableAndTransientItems(t *testing.T) {
	h := newHarness(t, []string{"gone", "flaky", "broken", "ok"}, map[string]*picuki.ContentRecord{
		"ok": {MediaID: "ok", Media: picuki.MediaPayload{Images: []string{"https://cdn.test/ok.jpg"}}},
	})
	h.media.errors = map[string]error{
		"flaky":  errs.New(errs.ErrorTypeServerError, 502, "bad gateway"),
		"broken": errs.New(errs.ErrorTypeParsing, 0, "odd markup"),
	}

	report, err := h.scraper.Run(context.Background(), "alice", All())
	require.NoError(t, err)
	assert.Equal(t, 3, report.ItemsSkipped)
	assert.Equal(t, 1, report.ItemsResolved)
	assert.Equal(t, 1, report.Completed)

	var merr interface{ WrappedErrors() []error }
	require.True(t, errors.As(report.Failures, &merr))
	assert.Len(t, merr.WrappedErrors(), 3)
	assert.True(t, errors.Is(report.Failures, errs.ErrContentUnavailable))
}

func TestRunRecordsFailedDownloads(t *testing.T) {
	h := newHarness(t, []string{"p1"}, map[string]*picuki.ContentRecord{
		"p1": {MediaID: "p1", Media: picuki.MediaPayload{Images: []string{"https://cdn.test/x", "https://cdn.test/y"}}},
	})
	h.fetcher.fail = map[string]error{
		"https://cdn.test/x": errs.New(errs.ErrorTypeUnknownContentType, 200, "no content type"),
	}

	report, err := h.scraper.Run(context.Background(), "alice", Selection{Images: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, errors.Is(report.Failures, errs.ErrUnknownContentType))
	assert.Len(t, h.log.GetMessagesByLevel("ERROR"), 1)
}

func TestRunEnumerationFailureIsFatal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.enumerator.err = errs.New(errs.ErrorTypeEnumerationParse, 0, "feed container missing")

	report, err := h.scraper.Run(context.Background(), "alice", All())
	assert.True(t, errors.Is(err, errs.ErrEnumerationParse))
	assert.Equal(t, StateProfileResolved, report.State)
}

func TestRunCancellationStopsLoop(t *testing.T) {
	ids := []string{"p1", "p2", "p3"}
	records := map[string]*picuki.ContentRecord{}
	for _, id := range ids {
		records[id] = &picuki.ContentRecord{MediaID: id, Media: picuki.MediaPayload{Images: []string{"https://cdn.test/" + id}}}
	}
	h := newHarness(t, ids, records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var resolved []string
	h.media.onResolve = func(id string) {
		resolved = append(resolved, id)
		if id == "p2" {
			cancel()
		}
	}

	report, err := h.scraper.Run(ctx, "alice", All())
	assert.Equal(t, errs.ErrorTypeCancelled, errs.TypeOf(err))
	assert.Equal(t, StatePerItem, report.State)
	assert.Equal(t, []string{"p1", "p2"}, resolved)
	assert.Equal(t, 1, report.Completed)
}

func TestRunRejectsEmptySelection(t *testing.T) {
	h := newHarness(t, []string{"p1"}, nil)

	_, err := h.scraper.Run(context.Background(), "alice", Selection{})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	assert.Zero(t, atomic.LoadInt32(&h.enumerator.calls))
}

func TestSelection(t *testing.T) {
	assert.False(t, Selection{}.Any())
	assert.True(t, All().Any())
	assert.Equal(t, storage.Categories, All().Categories())
	assert.Equal(t, []storage.Category{storage.CategoryVideos}, Selection{Videos: true}.Categories())
}
