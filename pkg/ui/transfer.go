package ui

import (
	"fmt"
	"io"
	"os"
	"path"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"picukidl/pkg/storage"
)

// TransferTracker shows a byte progress bar for one transfer at a time.
// Transfers that start while a bar is active run without one.
type TransferTracker struct {
	mu     sync.Mutex
	out    io.Writer
	active bool
}

// NewTransferTracker creates a tracker writing to out, or stderr when out
// is nil.
func NewTransferTracker(out io.Writer) *TransferTracker {
	if out == nil {
		out = os.Stderr
	}
	return &TransferTracker{out: out}
}

// Begin implements storage.ProgressReporter.
func (t *TransferTracker) Begin(task storage.Task) storage.Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return silentTransfer{}
	}
	t.active = true

	return &barTransfer{
		tracker: t,
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(t.out),
			progressbar.OptionSetDescription(fmt.Sprintf("%-10s %s", task.Category, path.Base(task.SourceURL))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
		),
	}
}

func (t *TransferTracker) release() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

type barTransfer struct {
	tracker *TransferTracker
	bar     *progressbar.ProgressBar
	once    sync.Once
}

func (b *barTransfer) Update(written, total int64) {
	if total > 0 && b.bar.GetMax64() != total {
		b.bar.ChangeMax64(total)
	}
	_ = b.bar.Set64(written)
}

func (b *barTransfer) Finish() {
	b.once.Do(func() {
		_ = b.bar.Finish()
		b.tracker.release()
	})
}

type silentTransfer struct{}

func (silentTransfer) Update(int64, int64) {}
func (silentTransfer) Finish()             {}
