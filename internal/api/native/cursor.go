package nativeapi

import (
	"encoding/base64"
	"strconv"
	"strings"

	"torrentstream/internal/domain"
)

// encodeCursor renders the list watermark as an opaque, URL-safe token;
// callers never need to parse it themselves.
func encodeCursor(c domain.ListCursor) string {
	raw := strconv.FormatInt(c.LastUpdated, 10) + ":" + string(c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor reverses encodeCursor. A malformed token is treated as no
// cursor at all rather than an error, matching the "opaque" contract.
func decodeCursor(token string) (domain.ListCursor, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return domain.ListCursor{}, false
	}
	lastUpdated, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return domain.ListCursor{}, false
	}
	ts, err := strconv.ParseInt(lastUpdated, 10, 64)
	if err != nil {
		return domain.ListCursor{}, false
	}
	return domain.ListCursor{LastUpdated: ts, ID: domain.TorrentID(id)}, true
}
