package collect

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidLink reports a link that does not match <channel>/<digits>
// for a post-scoped mode. Validated client-side before any remote call.
var ErrInvalidLink = errors.New("link is not a valid post link")

// stripPrefixes removes the URL scheme/host prefixes and the @ sigil
func stripPrefixes(link string) string {
	link = strings.TrimSpace(link)
	link = strings.TrimPrefix(link, "https://t.me/")
	link = strings.TrimPrefix(link, "t.me/")
	link = strings.TrimPrefix(link, "@")
	return link
}

// NormalizeHandle reduces a raw link or handle to a bare channel/chat
// handle: scheme prefixes, the @ sigil, trailing path segments and query
// strings are stripped. Idempotent.
func NormalizeHandle(link string) string {
	link = stripPrefixes(link)
	if i := strings.Index(link, "/"); i >= 0 {
		link = link[:i]
	}
	if i := strings.Index(link, "?"); i >= 0 {
		link = link[:i]
	}
	return link
}

// ParsePostLink splits a post-scoped link into the channel handle and the
// numeric post id, discarding any trailing query string. Returns
// ErrInvalidLink when fewer than two path segments are present or the id
// is not numeric.
func ParsePostLink(link string) (channel string, postID int64, err error) {
	parts := strings.Split(stripPrefixes(link), "/")
	if len(parts) < 2 {
		return "", 0, ErrInvalidLink
	}

	channel = parts[0]
	idPart := parts[1]
	if i := strings.Index(idPart, "?"); i >= 0 {
		idPart = idPart[:i]
	}

	postID, parseErr := strconv.ParseInt(idPart, 10, 64)
	if parseErr != nil || channel == "" || postID <= 0 {
		return "", 0, ErrInvalidLink
	}
	return channel, postID, nil
}
