package picker

import (
	"sort"
	"strings"
	"time"

	"driveindex/internal/domain/models"
)

// TypeFilter restricts the listing to files, folders or both.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeFiles   TypeFilter = "files"
	TypeFolders TypeFilter = "folders"
)

// IndexedFilter restricts the listing by membership in the active
// knowledge base.
type IndexedFilter string

const (
	IndexedAll  IndexedFilter = "all"
	IndexedOnly IndexedFilter = "indexed"
	NotIndexed  IndexedFilter = "not-indexed"
)

// SortField selects the sort key.
type SortField string

const (
	SortByName         SortField = "name"
	SortByCreatedTime  SortField = "createdTime"
	SortByModifiedTime SortField = "modifiedTime"
	SortBySize         SortField = "size"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ViewConfig is pure view configuration; nothing here is persisted.
type ViewConfig struct {
	Type          TypeFilter    `json:"type_filter"`
	Indexed       IndexedFilter `json:"indexed_filter"`
	NameSearch    string        `json:"name_search"`
	SortField     SortField     `json:"sort_field"`
	SortDirection SortDirection `json:"sort_direction"`
}

// DefaultViewConfig matches a freshly opened picker.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		Type:          TypeAll,
		Indexed:       IndexedAll,
		SortField:     SortByName,
		SortDirection: SortAsc,
	}
}

// Entry is one row of the derived view. IsIndexed is computed from the
// membership set at derivation time; it is never stored on the resource.
type Entry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"type"` // "file" or "folder"
	Path         string    `json:"path"`
	MimeType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`
	CreatedTime  time.Time `json:"created_time"`
	ModifiedTime time.Time `json:"modified_time"`
	IsIndexed    bool      `json:"is_indexed"`
}

// DeriveView computes the visible, ordered listing from a raw resource
// page and the authoritative membership set. The pipeline order is fixed:
// type filter, indexed filter, case-insensitive name search, stable sort.
func DeriveView(resources []models.Resource, membershipIDs []string, cfg ViewConfig) []Entry {
	membership := make(map[string]struct{}, len(membershipIDs))
	for _, id := range membershipIDs {
		membership[id] = struct{}{}
	}

	entries := make([]Entry, 0, len(resources))
	for i := range resources {
		r := &resources[i]

		if cfg.Type == TypeFiles && r.IsDirectory() {
			continue
		}
		if cfg.Type == TypeFolders && !r.IsDirectory() {
			continue
		}

		_, indexed := membership[r.ResourceID]
		if cfg.Indexed == IndexedOnly && !indexed {
			continue
		}
		if cfg.Indexed == NotIndexed && indexed {
			continue
		}

		entries = append(entries, toEntry(r, indexed))
	}

	if cfg.NameSearch != "" {
		needle := strings.ToLower(cfg.NameSearch)
		filtered := entries[:0]
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Name), needle) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	sortEntries(entries, cfg.SortField, cfg.SortDirection)
	return entries
}

func toEntry(r *models.Resource, indexed bool) Entry {
	e := Entry{
		ID:        r.ResourceID,
		Name:      r.Name(),
		Kind:      "file",
		Path:      r.InodePath.Path,
		MimeType:  r.MimeType,
		Size:      r.Size,
		IsIndexed: indexed,
	}
	if r.IsDirectory() {
		e.Kind = "folder"
	}
	if r.CreatedAt != nil {
		e.CreatedTime = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		e.ModifiedTime = *r.UpdatedAt
	}
	return e
}

// sortEntries sorts in place. Equal primary keys keep their prior relative
// order; an unknown sort field leaves the input order untouched.
func sortEntries(entries []Entry, field SortField, direction SortDirection) {
	var less func(a, b *Entry) int

	switch field {
	case SortByName:
		less = func(a, b *Entry) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortBySize:
		less = func(a, b *Entry) int {
			switch {
			case a.Size < b.Size:
				return -1
			case a.Size > b.Size:
				return 1
			}
			return 0
		}
	case SortByCreatedTime:
		less = func(a, b *Entry) int { return a.CreatedTime.Compare(b.CreatedTime) }
	case SortByModifiedTime:
		less = func(a, b *Entry) int { return a.ModifiedTime.Compare(b.ModifiedTime) }
	default:
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		cmp := less(&entries[i], &entries[j])
		if direction == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}
