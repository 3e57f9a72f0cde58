// Package storage places downloaded media in a content-addressed tree.
//
// Every asset lives at <root>/<username>/<category>/<hash>.<ext>, where hash
// is the hex encoded 128-bit BLAKE2b digest of the exact source URL and ext
// comes from the response content type. A task is skipped without any
// network request when a file for its hash already exists, which makes
// re-runs idempotent.
//
// The extension is unknown before fetching, so the existence check matches
// on the hash component of the file name. Files carrying the ".part" suffix
// are in-progress writes and never count as present.
//
// Manager.Ensure serializes the check-then-fetch sequence per destination
// with a singleflight group: concurrent tasks for the same URL and category
// perform one fetch and all report the same path.
//
//	store := storage.NewManager("./out", downloader, log)
//	res := store.Ensure(ctx, storage.Task{
//	    SourceURL: url,
//	    Username:  "alice",
//	    Category:  storage.CategoryImages,
//	})
//
// Manager.Stats recomputes per-category totals from the directory tree.
package storage
