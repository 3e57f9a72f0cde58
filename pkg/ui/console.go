package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"picukidl/pkg/picuki"
	"picukidl/pkg/storage"
)

// Console prints run milestones as panels.
type Console struct {
	out io.Writer
}

// NewConsole creates a console writing to out, or stdout when out is nil.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// Profile prints the profile panel.
func (c *Console) Profile(p *picuki.Profile) {
	PrintPanel(c.out, "Profile", []Row{
		{"Username", "@" + p.Username},
		{"Name", p.DisplayName},
		{"Posts", humanize.Comma(p.PostCount)},
		{"Followers", humanize.Comma(p.FollowerCount)},
		{"Following", humanize.Comma(p.FollowingCount)},
		{"Avatar", p.AvatarURL},
	})
}

// Record prints the panel for one resolved post.
func (c *Console) Record(index, total int, r *picuki.ContentRecord) {
	rows := []Row{
		{"Media", r.MediaID},
		{"Caption", r.Caption},
		{"Likes", optionalCount(r.LikeCount)},
		{"Comments", optionalCount(r.CommentCount)},
		{"Images", strconv.Itoa(len(r.Media.Images))},
		{"Videos", strconv.Itoa(len(r.Media.Videos))},
	}
	PrintPanel(c.out, fmt.Sprintf("Item %d of %d", index, total), rows)
}

// NoPosts reports an empty profile.
func (c *Console) NoPosts(username string) {
	PrintWarning(c.out, fmt.Sprintf("The user @%s doesn't have any posts", username))
}

// Summary prints the per category size table.
func (c *Console) Summary(username string, stats storage.Stats) {
	rows := make([]Row, 0, len(storage.Categories)+1)
	for _, cat := range storage.Categories {
		rows = append(rows, Row{string(cat), sizeCell(stats.For(cat))})
	}
	rows = append(rows, Row{"total", sizeCell(stats.Total())})
	PrintPanel(c.out, "Downloaded @"+username, rows)
}

func sizeCell(cs storage.CategoryStats) string {
	return fmt.Sprintf("%s (%d files)", humanize.Bytes(uint64(cs.Bytes)), cs.Files)
}

func optionalCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return humanize.Comma(*n)
}
