package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
)

// PartSuffix marks a file that is still being written.
const PartSuffix = ".part"

// Manager maps download tasks onto a content-addressed directory tree and
// decides whether each one needs fetching.
type Manager struct {
	root     string
	fetcher  Fetcher
	progress ProgressReporter
	logger   logger.Logger
	group    singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithProgress installs a progress reporter for fetched tasks.
func WithProgress(p ProgressReporter) Option {
	return func(m *Manager) {
		if p != nil {
			m.progress = p
		}
	}
}

// NewManager creates a storage manager rooted at root.
func NewManager(root string, fetcher Fetcher, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &Manager{
		root:     root,
		fetcher:  fetcher,
		progress: nopReporter{},
		logger:   log.WithField("component", "storage"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the output root directory.
func (m *Manager) Root() string {
	return m.root
}

// Dir returns <root>/<username>/<category>.
func (m *Manager) Dir(username string, category Category) string {
	return filepath.Join(m.root, username, string(category))
}

// HashURL returns the hex encoded 128-bit BLAKE2b digest of url.
func HashURL(url string) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the stored file for hash in dir, if any. In-progress part
// files are ignored. When several extensions exist the lexicographically
// first name wins.
func Lookup(dir, hash string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, PartSuffix) {
			continue
		}
		if name == hash || strings.HasPrefix(name, hash+".") {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0]), true, nil
}

type outcome struct {
	path   string
	size   int64
	status Status
}

// Ensure makes sure the asset described by task is present on disk,
// fetching it only when no file for its URL hash exists yet. Concurrent
// calls for the same destination share a single fetch.
func (m *Manager) Ensure(ctx context.Context, task Task) Result {
	start := time.Now()
	res := Result{Task: task}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	if task.SourceURL == "" {
		return fail(errs.New(errs.ErrorTypeInvalidTarget, 0, "empty source URL for %s/%s", task.Username, task.Category))
	}
	if !task.Category.Valid() {
		return fail(errs.New(errs.ErrorTypeInvalidTarget, 0, "unknown category %q", task.Category))
	}
	if !validUsername(task.Username) {
		return fail(errs.New(errs.ErrorTypeInvalidTarget, 0, "unsafe username %q", task.Username))
	}

	dir := m.Dir(task.Username, task.Category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		m.logger.WithError(err).WithField("dir", dir).Warn("Cannot create destination directory")
		return fail(errs.Wrap(errs.ErrorTypeFilesystem, err, "create %s", dir))
	}

	hash := HashURL(task.SourceURL)
	prefix := filepath.Join(dir, hash)

	leader := false
	v, err, _ := m.group.Do(prefix, func() (interface{}, error) {
		leader = true
		return m.ensure(ctx, task, dir, hash, prefix)
	})
	if err != nil {
		return fail(err)
	}

	out := v.(outcome)
	res.LocalPath = out.path
	res.Size = out.size
	res.Status = out.status
	if !leader {
		res.Status = StatusSkippedExists
	}
	res.Duration = time.Since(start)
	return res
}

func (m *Manager) ensure(ctx context.Context, task Task, dir, hash, prefix string) (outcome, error) {
	existing, ok, err := Lookup(dir, hash)
	if err != nil {
		return outcome{}, errs.Wrap(errs.ErrorTypeFilesystem, err, "scan %s", dir)
	}
	if ok {
		var size int64
		if info, err := os.Stat(existing); err == nil {
			size = info.Size()
		}
		return outcome{path: existing, size: size, status: StatusSkippedExists}, nil
	}

	if m.fetcher == nil {
		return outcome{}, errs.New(errs.ErrorTypeUnknown, 0, "no fetcher configured")
	}

	transfer := m.progress.Begin(task)
	path, size, err := m.fetcher.Fetch(ctx, task.SourceURL, prefix, transfer.Update)
	transfer.Finish()
	if err != nil {
		return outcome{}, err
	}
	return outcome{path: path, size: size, status: StatusCompleted}, nil
}

func validUsername(u string) bool {
	if u == "" || u == "." || u == ".." {
		return false
	}
	return !strings.ContainsAny(u, `/\`)
}
