package orchestrator

import (
	"path/filepath"
	"sort"
	"strings"

	"torrentstream/internal/domain"
)

func matchesFilter(status domain.TorrentStatus, meta domain.TorrentMetadata, filter domain.TorrentListFilter) bool {
	if filter.State != nil && status.State.Kind != *filter.State {
		return false
	}
	if filter.Name != "" && !containsFold(nameOf(status), filter.Name) {
		return false
	}
	if filter.Tracker != "" && !anyContainsFold(meta.Trackers, filter.Tracker) {
		return false
	}
	if filter.Extension != "" && !anyHasExtension(status.Files, filter.Extension) {
		return false
	}
	for _, want := range filter.Tags {
		if !anyEqualFold(meta.Tags, want) {
			return false
		}
	}
	return true
}

func nameOf(status domain.TorrentStatus) string {
	if status.Name == nil {
		return ""
	}
	return *status.Name
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContainsFold(values []string, needle string) bool {
	for _, v := range values {
		if containsFold(v, needle) {
			return true
		}
	}
	return false
}

func anyEqualFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func anyHasExtension(files []domain.TorrentFile, ext string) bool {
	want := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range files {
		got := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Path), "."))
		if got == want {
			return true
		}
	}
	return false
}

// sortStatuses orders the list per filter.SortBy/SortOrder, defaulting to
// last_updated descending with id ascending as the tiebreak — the ordering
// the opaque cursor is built from. Only the default key (last_updated) is
// cursor-resumable; name/addedAt/progress are plain offset-paginated.
func sortStatuses(statuses []domain.TorrentStatus, filter domain.TorrentListFilter) {
	desc := filter.SortOrder != domain.SortAsc

	less := func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if !a.LastUpdated.Equal(b.LastUpdated) {
			if desc {
				return a.LastUpdated.After(b.LastUpdated)
			}
			return a.LastUpdated.Before(b.LastUpdated)
		}
		return a.ID < b.ID
	}

	switch filter.SortBy {
	case "name":
		less = func(i, j int) bool {
			a, b := statuses[i], statuses[j]
			an, bn := nameOf(a), nameOf(b)
			if an != bn {
				if desc {
					return an > bn
				}
				return an < bn
			}
			return a.ID < b.ID
		}
	case "addedAt":
		less = func(i, j int) bool {
			a, b := statuses[i], statuses[j]
			if !a.AddedAt.Equal(b.AddedAt) {
				if desc {
					return a.AddedAt.After(b.AddedAt)
				}
				return a.AddedAt.Before(b.AddedAt)
			}
			return a.ID < b.ID
		}
	case "progress":
		less = func(i, j int) bool {
			a, b := statuses[i], statuses[j]
			ap, bp := a.Progress.Percent(), b.Progress.Percent()
			if ap != bp {
				if desc {
					return ap > bp
				}
				return ap < bp
			}
			return a.ID < b.ID
		}
	}

	sort.Slice(statuses, less)
}

// indexAfterCursor finds the position immediately following the row
// matching the cursor's watermark, assuming statuses is already sorted
// last_updated desc, id asc (the default/only order the cursor supports).
func indexAfterCursor(statuses []domain.TorrentStatus, cursor domain.ListCursor) int {
	for i, status := range statuses {
		if status.ID == cursor.ID && status.LastUpdated.UnixNano() == cursor.LastUpdated {
			return i + 1
		}
	}
	return 0
}
