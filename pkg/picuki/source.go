package picuki

import (
	"context"
	"errors"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
)

// PageFetcher retrieves a page body. A 404 is reported with notFound.
type PageFetcher interface {
	GetPage(ctx context.Context, url string, notFound errs.ErrorType) ([]byte, error)
}

// Source resolves profiles, enumerates feeds and resolves media details
// against the viewer site.
type Source struct {
	fetcher   PageFetcher
	parser    Parser
	endpoints Endpoints
	logger    logger.Logger
}

// NewSource wires a fetcher and parser to the given endpoints.
func NewSource(fetcher PageFetcher, parser Parser, endpoints Endpoints, log logger.Logger) *Source {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Source{
		fetcher:   fetcher,
		parser:    parser,
		endpoints: endpoints,
		logger:    log.WithField("component", "source"),
	}
}

// ResolveProfile loads the profile page and returns the profile together
// with the handle for the first feed page.
func (s *Source) ResolveProfile(ctx context.Context, username string) (*Profile, PageHandle, error) {
	page, err := s.fetcher.GetPage(ctx, s.endpoints.ProfileURL(username), errs.ErrorTypeProfileNotFound)
	if err != nil {
		return nil, PageHandle{}, err
	}

	profile, err := s.parser.ParseProfile(page, username)
	if err != nil {
		return nil, PageHandle{}, err
	}

	s.logger.InfoWithFields("Profile resolved", map[string]interface{}{
		"username":   profile.Username,
		"post_count": profile.PostCount,
	})
	return profile, PageHandle{Username: username}, nil
}

// Enumerate walks the feed from handle and returns every media id in feed
// order. Repeated ids are kept. onPage, if set, is called after each non-empty page.
// Enumeration stops at the first empty page, a missing cursor or a cursor
// already visited.
func (s *Source) Enumerate(ctx context.Context, handle PageHandle, onPage func(page int, ids []string)) ([]string, error) {
	var ids []string
	visited := make(map[string]struct{})
	cursor := handle.Cursor

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return ids, errs.Wrap(errs.ErrorTypeCancelled, err, "enumeration of %s", handle.Username)
		}

		body, err := s.fetcher.GetPage(ctx, s.endpoints.FeedURL(handle.Username, cursor), errs.ErrorTypeEnumerationParse)
		if err != nil {
			return ids, err
		}
		feed, err := s.parser.ParseFeedPage(body)
		if err != nil {
			return ids, err
		}

		s.logger.DebugWithFields("Feed page parsed", map[string]interface{}{
			"page":        page,
			"items":       len(feed.IDs),
			"next_cursor": feed.NextCursor,
		})

		if feed.Unparsed > 0 {
			s.logger.WarnWithFields("Feed items without media id", map[string]interface{}{
				"page":     page,
				"unparsed": feed.Unparsed,
			})
		}

		if len(feed.IDs) == 0 {
			return ids, nil
		}

		ids = append(ids, feed.IDs...)
		if onPage != nil {
			onPage(page, feed.IDs)
		}

		if feed.NextCursor == "" {
			return ids, nil
		}
		if _, loop := visited[feed.NextCursor]; loop {
			s.logger.WarnWithFields("Feed cursor repeated, stopping enumeration", map[string]interface{}{
				"cursor": feed.NextCursor,
			})
			return ids, nil
		}
		visited[feed.NextCursor] = struct{}{}
		cursor = feed.NextCursor
	}
}

// ResolveMedia loads one post. Missing or unparseable posts are reported
// as content unavailable; transient transport errors pass through.
func (s *Source) ResolveMedia(ctx context.Context, mediaID string) (*ContentRecord, error) {
	if mediaID == "" {
		return nil, errs.New(errs.ErrorTypeContentUnavailable, 0, "empty media id")
	}

	page, err := s.fetcher.GetPage(ctx, s.endpoints.MediaURL(mediaID), errs.ErrorTypeContentUnavailable)
	if err != nil {
		return nil, err
	}

	record, err := s.parser.ParseDetail(page, mediaID)
	if err != nil {
		if errors.Is(err, errs.ErrContentUnavailable) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrorTypeContentUnavailable, err, "media %s", mediaID)
	}
	return record, nil
}
