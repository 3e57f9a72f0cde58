// Package scraper runs the profile download pipeline.
//
// A run moves through a fixed sequence of states:
//
//	init -> profile_resolved -> enumerated -> per_item -> summarized -> done
//
// and ends in aborted_not_found when the profile does not exist. Every
// collected media id is resolved in enumeration order; the resulting
// download tasks go to a bounded worker pool and the scraper waits for all
// of an item's results before pacing on to the next item. Items that cannot
// be resolved are skipped and recorded in the run Report, which also
// carries the final on-disk statistics.
//
// Usage:
//
//	s, err := scraper.New(scraper.Config{
//		Profiles:   source,
//		Enumerator: source,
//		Media:      source,
//		Store:      store,
//		Cooldown:   ratelimit.NewFixedDelay(time.Second, nil),
//		Workers:    4,
//		Logger:     log,
//	})
//	report, err := s.Run(ctx, "alice", scraper.All())
package scraper
