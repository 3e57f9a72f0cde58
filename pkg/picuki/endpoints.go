package picuki

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	errs "picukidl/pkg/errors"
)

const (
	// BaseURL is the default viewer site
	BaseURL = "https://www.picuki.com"

	// ProfilePath is the path pattern for profile pages
	ProfilePath = "/profile/%s"

	// FeedPath serves paginated feed fragments
	FeedPath = "/app/controllers/ajax.php"

	// MediaPath is the path pattern for post detail pages
	MediaPath = "/media/%s"

	maxUsernameLength = 30
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

// Endpoints builds viewer site URLs relative to a base URL.
type Endpoints struct {
	base string
}

// NewEndpoints creates URL builders for base. An empty base uses BaseURL.
func NewEndpoints(base string) Endpoints {
	if base == "" {
		base = BaseURL
	}
	return Endpoints{base: strings.TrimRight(base, "/")}
}

// Base returns the base URL without a trailing slash.
func (e Endpoints) Base() string {
	return e.base
}

// ProfileURL returns the profile page URL for username
func (e Endpoints) ProfileURL(username string) string {
	return e.base + fmt.Sprintf(ProfilePath, url.PathEscape(username))
}

// FeedURL returns the feed fragment URL for one page. An empty cursor
// requests the first page.
func (e Endpoints) FeedURL(username, cursor string) string {
	params := url.Values{}
	params.Set("type", "profile")
	params.Set("username", username)
	if cursor != "" {
		params.Set("end_cursor", cursor)
	}
	return fmt.Sprintf("%s%s?%s", e.base, FeedPath, params.Encode())
}

// MediaURL returns the detail page URL for a media id
func (e Endpoints) MediaURL(mediaID string) string {
	if mediaID == "" {
		return ""
	}
	return e.base + fmt.Sprintf(MediaPath, url.PathEscape(mediaID))
}

// SanitizeUsername strips a leading @, surrounding whitespace and trailing
// slashes, then validates what remains.
func SanitizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	username = strings.TrimRight(username, "/")
	username = strings.TrimPrefix(username, "@")
	username = strings.TrimSpace(username)

	if username == "" {
		return "", errs.New(errs.ErrorTypeInvalidArgument, 0, "username is empty")
	}
	if len(username) > maxUsernameLength {
		return "", errs.New(errs.ErrorTypeInvalidArgument, 0, "username %q is longer than %d characters", username, maxUsernameLength)
	}
	if !usernamePattern.MatchString(username) || strings.Trim(username, ".") == "" {
		return "", errs.New(errs.ErrorTypeInvalidArgument, 0, "username %q contains invalid characters", username)
	}
	return username, nil
}
