package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"picukidl/internal/downloader"
	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/picuki"
	"picukidl/pkg/ratelimit"
	"picukidl/pkg/storage"
)

// Config wires the components of a Scraper. Profiles, Enumerator, Media
// and Store are required.
type Config struct {
	Profiles   ProfileResolver
	Enumerator MediaEnumerator
	Media      MediaResolver
	Store      Store

	// Cooldown paces consecutive items. Nil disables pacing.
	Cooldown ratelimit.Limiter
	// Workers is the download pool size.
	Workers int

	Display Display
	Logger  logger.Logger
}

// Scraper orchestrates profile resolution, enumeration and the per item
// download loop.
type Scraper struct {
	profiles   ProfileResolver
	enumerator MediaEnumerator
	media      MediaResolver
	store      Store
	cooldown   ratelimit.Limiter
	workers    int
	display    Display
	logger     logger.Logger
}

// New creates a new Scraper instance
func New(cfg Config) (*Scraper, error) {
	if cfg.Profiles == nil || cfg.Enumerator == nil || cfg.Media == nil || cfg.Store == nil {
		return nil, errs.New(errs.ErrorTypeInvalidArgument, 0, "scraper requires a profile resolver, enumerator, media resolver and store")
	}

	s := &Scraper{
		profiles:   cfg.Profiles,
		enumerator: cfg.Enumerator,
		media:      cfg.Media,
		store:      cfg.Store,
		cooldown:   cfg.Cooldown,
		workers:    cfg.Workers,
		display:    cfg.Display,
		logger:     cfg.Logger,
	}
	if s.cooldown == nil {
		s.cooldown = ratelimit.Nop{}
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.display == nil {
		s.display = nopDisplay{}
	}
	if s.logger == nil {
		s.logger = logger.NewNopLogger()
	}
	return s, nil
}

// Run downloads the selected media of username. The returned report is
// never nil and reflects the state the run reached, even on error.
func (s *Scraper) Run(ctx context.Context, username string, sel Selection) (*Report, error) {
	report := &Report{
		RunID:    uuid.NewString(),
		State:    StateInit,
		Username: username,
	}
	log := s.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"username": username,
	})

	if username == "" {
		return report, errs.New(errs.ErrorTypeInvalidArgument, 0, "username is required")
	}
	if !sel.Any() {
		return report, errs.New(errs.ErrorTypeInvalidArgument, 0, "no media type selected")
	}

	log.InfoWithFields("Starting download run", map[string]interface{}{
		"selection": sel.Categories(),
		"workers":   s.workers,
	})

	profile, handle, err := s.profiles.ResolveProfile(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrProfileNotFound) {
			report.State = StateAbortedNotFound
			log.WithError(err).Warn("Profile not found")
		} else {
			log.WithError(err).Error("Failed to resolve profile")
		}
		return report, err
	}
	report.State = StateProfileResolved
	report.Profile = profile
	s.display.Profile(profile)

	ids, err := s.enumerator.Enumerate(ctx, handle, func(page int, ids []string) {
		log.DebugWithFields("Collected feed page", map[string]interface{}{
			"page":  page,
			"items": len(ids),
		})
	})
	if err != nil {
		log.WithError(err).Error("Failed to enumerate media")
		return report, err
	}
	report.State = StateEnumerated
	report.MediaCount = len(ids)

	if len(ids) == 0 {
		log.Warn("Profile has no posts")
		s.display.NoPosts(username)
		report.State = StateDone
		return report, nil
	}
	log.InfoWithFields("Media collected", map[string]interface{}{
		"media_count": len(ids),
	})

	runErr := s.processItems(ctx, log, username, ids, sel, report)
	if runErr != nil {
		return report, runErr
	}

	stats, err := s.store.Stats(username)
	if err != nil {
		log.WithError(err).Warn("Failed to compute download statistics")
	}
	report.Statistics = stats
	report.State = StateSummarized
	s.display.Summary(username, stats)

	log.InfoWithFields("Download run finished", map[string]interface{}{
		"items_resolved": report.ItemsResolved,
		"items_skipped":  report.ItemsSkipped,
		"completed":      report.Completed,
		"skipped_exists": report.SkippedExists,
		"failed":         report.Failed,
		"total_bytes":    stats.Total().Bytes,
	})
	report.State = StateDone
	return report, nil
}

func (s *Scraper) processItems(ctx context.Context, log logger.Logger, username string, ids []string, sel Selection, report *Report) error {
	report.State = StatePerItem

	pool := downloader.NewWorkerPool(ctx, s.workers, s.store, log)
	pool.Start()
	defer pool.Stop()

	var failures *multierror.Error
	defer func() { report.Failures = failures.ErrorOrNil() }()

	for index, id := range ids {
		itemLog := log.WithFields(map[string]interface{}{
			"media_id": id,
			"index":    index + 1,
			"total":    len(ids),
		})
		itemLog.Info("Getting content")

		outcome := s.resolveItem(ctx, id)
		if outcome.Skipped() {
			if errs.TypeOf(outcome.Err) == errs.ErrorTypeCancelled || ctx.Err() != nil {
				return cancelled(ctx, outcome.Err)
			}
			report.ItemsSkipped++
			failures = multierror.Append(failures, fmt.Errorf("media %s: %w", id, outcome.Err))
			itemLog.WithError(outcome.Err).WarnWithFields("Skipping media item", map[string]interface{}{
				"reason": string(outcome.Skip),
			})
		} else {
			report.ItemsResolved++
			s.display.Record(index+1, len(ids), outcome.Record)

			tasks := buildTasks(itemLog, username, outcome.Record, sel)
			for _, res := range dispatch(pool, tasks) {
				logger.LogDownload(itemLog, res.Task.SourceURL, string(res.Task.Category), string(res.Status), res.Size, res.Err)
				switch res.Status {
				case storage.StatusCompleted:
					report.Completed++
				case storage.StatusSkippedExists:
					report.SkippedExists++
				default:
					report.Failed++
					failures = multierror.Append(failures, fmt.Errorf("%s %s: %w", res.Task.Category, res.Task.SourceURL, res.Err))
				}
			}
			if err := ctx.Err(); err != nil {
				return cancelled(ctx, err)
			}
		}

		if index < len(ids)-1 {
			if err := s.cooldown.Wait(ctx); err != nil {
				return cancelled(ctx, err)
			}
		}
	}
	return nil
}

// resolveItem classifies resolution failures into skips. Only
// cancellation is expected to stop the caller.
func (s *Scraper) resolveItem(ctx context.Context, id string) ItemOutcome {
	record, err := s.media.ResolveMedia(ctx, id)
	switch {
	case err == nil:
		return ItemOutcome{MediaID: id, Record: record}
	case errors.Is(err, errs.ErrContentUnavailable):
		return ItemOutcome{MediaID: id, Skip: SkipUnavailable, Err: err}
	case errs.IsTransient(err):
		return ItemOutcome{MediaID: id, Skip: SkipTransient, Err: err}
	default:
		return ItemOutcome{MediaID: id, Skip: SkipError, Err: err}
	}
}

// buildTasks expands a record into download tasks: images first, then each
// video's thumbnail followed by the video itself.
func buildTasks(log logger.Logger, username string, record *picuki.ContentRecord, sel Selection) []storage.Task {
	var tasks []storage.Task
	add := func(url string, c storage.Category) {
		if url == "" {
			log.WithField("category", string(c)).Warn("Media entry has no URL")
			return
		}
		tasks = append(tasks, storage.Task{
			SourceURL: url,
			Username:  username,
			Category:  c,
			MediaID:   record.MediaID,
		})
	}

	if sel.Images {
		if len(record.Media.Images) == 0 {
			log.Debug("There are no images to download")
		}
		for _, img := range record.Media.Images {
			add(img, storage.CategoryImages)
		}
	}
	if sel.Videos || sel.Thumbnails {
		if len(record.Media.Videos) == 0 {
			log.Debug("There are no videos or thumbnails to download")
		}
		for _, v := range record.Media.Videos {
			if sel.Thumbnails {
				add(v.ThumbnailURL, storage.CategoryThumbnails)
			}
			if sel.Videos {
				add(v.URL, storage.CategoryVideos)
			}
		}
	}
	return tasks
}

// dispatch submits tasks to the pool and waits for one result per task.
// Submission runs concurrently so a full queue never blocks result
// collection.
func dispatch(pool *downloader.WorkerPool, tasks []storage.Task) []storage.Result {
	if len(tasks) == 0 {
		return nil
	}

	rejected := make(chan storage.Result, len(tasks))
	go func() {
		for _, task := range tasks {
			if err := pool.Submit(task); err != nil {
				rejected <- storage.Result{
					Task:   task,
					Status: storage.StatusFailed,
					Err:    errs.Wrap(errs.ErrorTypeCancelled, err, "download of %s not started", task.SourceURL),
				}
			}
		}
	}()

	results := make([]storage.Result, 0, len(tasks))
	for len(results) < len(tasks) {
		select {
		case res := <-pool.Results():
			results = append(results, res)
		case res := <-rejected:
			results = append(results, res)
		}
	}
	return results
}

func cancelled(ctx context.Context, cause error) error {
	if cause == nil {
		cause = ctx.Err()
	}
	var e *errs.Error
	if errors.As(cause, &e) && e.Type == errs.ErrorTypeCancelled {
		return cause
	}
	return errs.Wrap(errs.ErrorTypeCancelled, cause, "run interrupted")
}
