package qbcompat

import (
	"strconv"
	"strings"
)

// splitList splits a tracker/tag/web-seed list on commas or semicolons,
// trims whitespace, and drops empty entries while preserving order.
func splitList(raw string) []string {
	return splitAny(raw, ",;")
}

// splitHashes splits a qB-style "|"-separated hash list.
func splitHashes(raw string) []string {
	return splitAny(raw, "|")
}

func splitAny(raw string, cutset string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(cutset, r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// splitURLs splits the newline-separated "urls" field of torrents/add.
func splitURLs(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// parseLimit parses transfer/{up,down}loadlimit's textual body: trimmed,
// case-insensitive "nan" or empty means unset; otherwise a base-10
// integer; non-positive means unset; positive becomes the bps value.
func parseLimit(raw string) (*uint64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return nil, true
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, false
	}
	if v <= 0 {
		return nil, true
	}
	bps := uint64(v)
	return &bps, true
}

// wantsAll reports whether a hash-list parameter selects every torrent —
// an empty value or the literal "all" (case-insensitive).
func wantsAll(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, "all")
}
