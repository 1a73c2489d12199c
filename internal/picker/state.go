package picker

import (
	"sort"
	"sync"
)

// Crumb is one breadcrumb entry.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StateSnapshot is an immutable copy of the picker state.
type StateSnapshot struct {
	CurrentFolderID string     `json:"current_folder_id,omitempty"`
	Breadcrumbs     []Crumb    `json:"breadcrumbs"`
	SelectedIDs     []string   `json:"selected_ids"`
	View            ViewConfig `json:"view"`
}

// State holds the navigation, selection and view configuration of the
// picker. Selection is scoped to the currently displayed listing: every
// navigation, of any kind, clears it.
type State struct {
	mu sync.Mutex

	currentFolderID string
	breadcrumbs     []Crumb
	selected        map[string]struct{}
	view            ViewConfig
}

// NewState creates a picker state at the connection root.
func NewState() *State {
	return &State{
		selected: make(map[string]struct{}),
		view:     DefaultViewConfig(),
	}
}

// EnterFolder navigates into a folder, pushing it onto the breadcrumb
// stack. An empty id navigates to the root.
func (s *State) EnterFolder(folderID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if folderID == "" {
		s.currentFolderID = ""
		s.breadcrumbs = nil
	} else {
		s.currentFolderID = folderID
		s.breadcrumbs = append(s.breadcrumbs, Crumb{ID: folderID, Name: displayName})
	}
	s.clearSelectionLocked()
}

// NavigateBreadcrumb jumps to an entry already on the stack, truncating it
// inclusively. An empty id navigates to the root. Returns false when the
// id is not on the stack; the state is unchanged except that selection is
// still cleared, because the caller did navigate.
func (s *State) NavigateBreadcrumb(folderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.clearSelectionLocked()

	if folderID == "" {
		s.currentFolderID = ""
		s.breadcrumbs = nil
		return true
	}

	for i := range s.breadcrumbs {
		if s.breadcrumbs[i].ID == folderID {
			s.breadcrumbs = s.breadcrumbs[:i+1]
			s.currentFolderID = folderID
			return true
		}
	}
	return false
}

// Select adds or removes a resource from the selection.
func (s *State) Select(resourceID string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if selected {
		s.selected[resourceID] = struct{}{}
	} else {
		delete(s.selected, resourceID)
	}
}

// ClearSelection empties the selection without navigating.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

// SetSearch updates the name search text.
func (s *State) SetSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.NameSearch = query
}

// SetSort updates the sort key and direction.
func (s *State) SetSort(field SortField, direction SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SortField = field
	s.view.SortDirection = direction
}

// SetFilters updates the type and indexed filters.
func (s *State) SetFilters(typeFilter TypeFilter, indexedFilter IndexedFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Type = typeFilter
	s.view.Indexed = indexedFilter
}

// CurrentFolderID returns the folder whose listing is displayed, empty for
// the connection root.
func (s *State) CurrentFolderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFolderID
}

// SelectedIDs returns the selection in deterministic (sorted) order.
func (s *State) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedIDsLocked()
}

// Snapshot returns a consistent copy of the whole state.
func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	crumbs := make([]Crumb, len(s.breadcrumbs))
	copy(crumbs, s.breadcrumbs)

	return StateSnapshot{
		CurrentFolderID: s.currentFolderID,
		Breadcrumbs:     crumbs,
		SelectedIDs:     s.selectedIDsLocked(),
		View:            s.view,
	}
}

// Reset returns the picker to its initial state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentFolderID = ""
	s.breadcrumbs = nil
	s.view = DefaultViewConfig()
	s.clearSelectionLocked()
}

func (s *State) clearSelectionLocked() {
	s.selected = make(map[string]struct{})
}

func (s *State) selectedIDsLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
