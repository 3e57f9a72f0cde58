package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CategoryStats counts completed files in one category directory.
type CategoryStats struct {
	Files int
	Bytes int64
}

// Stats is the on-disk footprint of one profile.
type Stats struct {
	Images     CategoryStats
	Videos     CategoryStats
	Thumbnails CategoryStats
}

// For returns the stats of category c.
func (s Stats) For(c Category) CategoryStats {
	switch c {
	case CategoryImages:
		return s.Images
	case CategoryVideos:
		return s.Videos
	case CategoryThumbnails:
		return s.Thumbnails
	}
	return CategoryStats{}
}

// Total sums every category.
func (s Stats) Total() CategoryStats {
	return CategoryStats{
		Files: s.Images.Files + s.Videos.Files + s.Thumbnails.Files,
		Bytes: s.Images.Bytes + s.Videos.Bytes + s.Thumbnails.Bytes,
	}
}

// Stats scans the category directories of username. Missing directories
// count as empty; part files are excluded.
func (m *Manager) Stats(username string) (Stats, error) {
	var stats Stats
	for _, c := range Categories {
		cs, err := scanDir(m.Dir(username, c))
		if err != nil {
			return Stats{}, err
		}
		switch c {
		case CategoryImages:
			stats.Images = cs
		case CategoryVideos:
			stats.Videos = cs
		case CategoryThumbnails:
			stats.Thumbnails = cs
		}
	}
	return stats, nil
}

func scanDir(dir string) (CategoryStats, error) {
	var cs CategoryStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), PartSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		cs.Files++
		cs.Bytes += info.Size()
		return nil
	})
	return cs, err
}
