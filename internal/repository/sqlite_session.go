package repository

import (
	"database/sql"

	"github.com/alexanderramin/awp4d/internal/db"
)

// ModelSession bundles the capabilities of one open model document. Tasks
// is nil when the document has no simulation task list.
type ModelSession struct {
	Tree       ModelTree
	Writer     ModelWriter
	Properties PropertyStore
	Selections SelectionRepository
	Tasks      TaskRepository
	UoW        db.UnitOfWork
}

// HasTasks reports whether the document carries a task list.
func (s *ModelSession) HasTasks() bool {
	return s != nil && s.Tasks != nil
}

// NewSQLiteSession wires every capability to the same database.
func NewSQLiteSession(conn *sql.DB) *ModelSession {
	uow := db.NewSQLiteUnitOfWork(conn)
	tree := NewSQLiteModelTree(conn)
	return &ModelSession{
		Tree:       tree,
		Writer:     tree,
		Properties: NewSQLitePropertyStore(conn, uow),
		Selections: NewSQLiteSelectionRepo(conn),
		Tasks:      NewSQLiteTaskRepo(conn, uow),
		UoW:        uow,
	}
}

// WithoutTasks returns a copy of s with no task list.
func (s *ModelSession) WithoutTasks() *ModelSession {
	cp := *s
	cp.Tasks = nil
	return &cp
}
