package domain

import "time"

// SelectionItem is a folder or a named selection set in the document.
type SelectionItem struct {
	ID        string
	ParentID  *string
	Kind      SelectionKind
	Name      string
	Position  int
	Members   []int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *SelectionItem) IsFolder() bool {
	return s.Kind == SelectionFolder
}

// SelectionEntry is a flattened view of a selection item with its path.
type SelectionEntry struct {
	Path        string
	Kind        SelectionKind
	Name        string
	MemberCount int
}
