package picuki

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "picukidl/pkg/errors"
)

// Parser extracts structured data from viewer site pages.
type Parser interface {
	ParseProfile(page []byte, username string) (*Profile, error)
	ParseFeedPage(page []byte) (*FeedPage, error)
	ParseDetail(page []byte, mediaID string) (*ContentRecord, error)
}

// HTMLParser is the goquery based Parser for the viewer site markup.
type HTMLParser struct {
	base *url.URL
}

// NewHTMLParser creates a parser that resolves relative references against
// baseURL.
func NewHTMLParser(baseURL string) *HTMLParser {
	base, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		base, _ = url.Parse(BaseURL)
	}
	return &HTMLParser{base: base}
}

func (p *HTMLParser) document(page []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(page))
}

// notFoundMarkers are the phrases the viewer site prints in place of a
// missing profile.
var notFoundMarkers = []string{
	"does not exist",
	"not found",
	"isn't available",
}

// ParseProfile reads the profile header. A page without the header is a
// missing profile only when it says so; anything else is a parse failure.
func (p *HTMLParser) ParseProfile(page []byte, username string) (*Profile, error) {
	doc, err := p.document(page)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "profile page for %s", username)
	}

	header := doc.Find(".profile-name-top").First()
	if header.Length() == 0 {
		if pageSaysNotFound(doc) {
			return nil, errs.New(errs.ErrorTypeProfileNotFound, 0, "profile %s not found", username)
		}
		return nil, errs.New(errs.ErrorTypeParsing, 0, "profile page for %s has no profile header", username)
	}

	profile := &Profile{
		Username:    strings.TrimPrefix(text(header), "@"),
		DisplayName: text(doc.Find(".profile-name-bottom").First()),
	}
	if profile.Username == "" {
		profile.Username = username
	}
	if src, ok := doc.Find(".profile-avatar img").First().Attr("src"); ok {
		profile.AvatarURL = p.resolve(src)
	}
	profile.PostCount, _ = ParseCount(text(doc.Find(".total_posts").First()))
	profile.FollowerCount, _ = ParseCount(text(doc.Find(".followed_by").First()))
	profile.FollowingCount, _ = ParseCount(text(doc.Find(".follows").First()))
	return profile, nil
}

// ParseFeedPage extracts media ids and the continuation cursor. The feed
// container must be present even when it holds no items, and a page whose
// items all lack an id is rejected.
func (p *HTMLParser) ParseFeedPage(page []byte) (*FeedPage, error) {
	doc, err := p.document(page)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeEnumerationParse, err, "feed page")
	}

	feed := doc.Find(".box-photos").First()
	if feed.Length() == 0 {
		return nil, errs.New(errs.ErrorTypeEnumerationParse, 0, "feed container missing")
	}

	out := &FeedPage{}
	items := feed.Find(".box-photo")
	items.Each(func(_ int, item *goquery.Selection) {
		id := ""
		if href, ok := item.Find(`a[href*="/media/"]`).First().Attr("href"); ok {
			id = mediaIDFromHref(href)
		}
		if id == "" {
			id = strings.TrimSpace(item.AttrOr("data-s", ""))
		}
		if id == "" {
			out.Unparsed++
			return
		}
		out.IDs = append(out.IDs, id)
	})
	if items.Length() > 0 && len(out.IDs) == 0 {
		return nil, errs.New(errs.ErrorTypeEnumerationParse, 0, "no media id in %d feed items", items.Length())
	}

	if next, ok := doc.Find("[data-next]").First().Attr("data-next"); ok {
		out.NextCursor = strings.TrimSpace(next)
	}
	return out, nil
}

// ParseDetail extracts the asset URLs and counters of one post.
func (p *HTMLParser) ParseDetail(page []byte, mediaID string) (*ContentRecord, error) {
	doc, err := p.document(page)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeContentUnavailable, err, "detail page for %s", mediaID)
	}

	body := doc.Find(".single-photo").First()
	if body.Length() == 0 {
		return nil, errs.New(errs.ErrorTypeContentUnavailable, 0, "media %s has no content", mediaID)
	}

	record := &ContentRecord{
		MediaID: mediaID,
		Caption: text(doc.Find(".post-description").First()),
		Media:   MediaPayload{Images: []string{}, Videos: []VideoEntry{}},
	}

	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			record.Media.Images = append(record.Media.Images, p.resolve(src))
		}
	})

	body.Find("video").Each(func(_ int, video *goquery.Selection) {
		src := strings.TrimSpace(video.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(video.Find("source[src]").First().AttrOr("src", ""))
		}
		entry := VideoEntry{URL: p.resolve(src)}
		if poster := strings.TrimSpace(video.AttrOr("poster", "")); poster != "" {
			entry.ThumbnailURL = p.resolve(poster)
		}
		record.Media.Videos = append(record.Media.Videos, entry)
	})

	if n, ok := ParseCount(text(doc.Find(".likes_photo").First())); ok {
		record.LikeCount = &n
	}
	if n, ok := ParseCount(text(doc.Find(".comments_photo").First())); ok {
		record.CommentCount = &n
	}
	return record, nil
}

func pageSaysNotFound(doc *goquery.Document) bool {
	body := strings.ToLower(text(doc.Find("body")))
	for _, marker := range notFoundMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func (p *HTMLParser) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.base.ResolveReference(u).String()
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func mediaIDFromHref(href string) string {
	i := strings.Index(href, "/media/")
	if i < 0 {
		return ""
	}
	id := href[i+len("/media/"):]
	if j := strings.IndexAny(id, "/?#"); j >= 0 {
		id = id[:j]
	}
	return id
}

var countPattern = regexp.MustCompile(`(?i)([0-9][0-9.,]*)\s*([km]?)\b`)

// ParseCount reads abbreviated counters such as "1,234", "12.5k" or "3M".
func ParseCount(s string) (int64, bool) {
	m := countPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	digits, suffix := m[1], strings.ToLower(m[2])

	multiplier := 1.0
	switch suffix {
	case "k":
		multiplier = 1e3
	case "m":
		multiplier = 1e6
	}

	if suffix == "" {
		n, err := strconv.ParseInt(strings.NewReplacer(",", "", ".", "").Replace(digits), 10, 64)
		return n, err == nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return int64(f*multiplier + 0.5), true
}
