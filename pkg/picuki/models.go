package picuki

// Profile is the public metadata of the target account.
type Profile struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	PostCount      int64  `json:"post_count"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	AvatarURL      string `json:"avatar_url"`
}

// PageHandle seeds feed enumeration. An empty Cursor requests the first
// feed page.
type PageHandle struct {
	Username string
	Cursor   string
}

// FeedPage is one page of the media feed.
type FeedPage struct {
	IDs []string
	// NextCursor is empty when the feed has no further pages.
	NextCursor string
	// Unparsed counts feed items without a media id.
	Unparsed int
}

// VideoEntry is one playable video and its preview image.
type VideoEntry struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// MediaPayload lists the downloadable assets of a post. Both slices may be
// empty.
type MediaPayload struct {
	Images []string     `json:"images"`
	Videos []VideoEntry `json:"videos"`
}

// Empty reports whether the payload has nothing to download.
func (m MediaPayload) Empty() bool {
	return len(m.Images) == 0 && len(m.Videos) == 0
}

// ContentRecord describes a single post.
type ContentRecord struct {
	MediaID      string       `json:"media_id"`
	Caption      string       `json:"caption,omitempty"`
	LikeCount    *int64       `json:"like_count,omitempty"`
	CommentCount *int64       `json:"comment_count,omitempty"`
	Media        MediaPayload `json:"media"`
}
