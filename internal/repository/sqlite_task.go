package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/google/uuid"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, parent_id, kind, name, sync_id, task_type,
		planned_start, planned_end, actual_start, actual_end, position`

// SQLiteTaskRepo implements TaskRepository using a SQLite database.
type SQLiteTaskRepo struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLiteTaskRepo creates a task repository. Replace runs inside uow.
func NewSQLiteTaskRepo(conn db.DBTX, uow db.UnitOfWork) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn, uow: uow}
}

// WorkingCopy loads the whole task tree. The result shares nothing with the
// store; edits take effect only through Replace.
func (r *SQLiteTaskRepo) WorkingCopy(ctx context.Context) (*domain.TaskTree, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	type loaded struct {
		node   *domain.TaskNode
		parent sql.NullString
	}
	var all []loaded
	byID := make(map[string]*domain.TaskNode)
	for rows.Next() {
		n, parent, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		all = append(all, loaded{node: n, parent: parent})
		byID[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	rows.Close()

	if err := r.loadMembers(ctx, byID); err != nil {
		return nil, err
	}

	tree := &domain.TaskTree{}
	for _, l := range all {
		if !l.parent.Valid {
			tree.Roots = append(tree.Roots, l.node)
			continue
		}
		parent, ok := byID[l.parent.String]
		if !ok {
			return nil, fmt.Errorf("task %s references missing parent %s: %w", l.node.ID, l.parent.String, ErrCorruptedState)
		}
		parent.Children = append(parent.Children, l.node)
	}
	return tree, nil
}

func (r *SQLiteTaskRepo) loadMembers(ctx context.Context, byID map[string]*domain.TaskNode) error {
	rows, err := r.db.QueryContext(ctx, `SELECT task_id, node_key FROM task_members ORDER BY task_id, position`)
	if err != nil {
		return fmt.Errorf("loading task members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var key int64
		if err := rows.Scan(&id, &key); err != nil {
			return fmt.Errorf("scanning task member row: %w", err)
		}
		if n, ok := byID[id]; ok {
			n.Members = append(n.Members, key)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating task members: %w", err)
	}
	return nil
}

// Replace swaps the stored tree for tree in one transaction. Nodes without an
// ID are assigned one.
func (r *SQLiteTaskRepo) Replace(ctx context.Context, tree *domain.TaskTree) error {
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return fmt.Errorf("clearing tasks: %w", err)
		}

		type frame struct {
			node     *domain.TaskNode
			parentID *string
			position int
		}
		stack := make([]frame, 0, len(tree.Roots))
		for i := len(tree.Roots) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: tree.Roots[i], position: i})
		}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := f.node
			if n.ID == "" {
				n.ID = uuid.NewString()
			}
			if err := insertTask(ctx, tx, n, f.parentID, f.position); err != nil {
				return err
			}
			id := n.ID
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: n.Children[i], parentID: &id, position: i})
			}
		}
		return nil
	})
}

func insertTask(ctx context.Context, tx db.DBTX, n *domain.TaskNode, parentID *string, position int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		nullableString(parentID),
		string(n.Kind),
		n.Name,
		n.SyncID,
		string(n.TaskType),
		nullableTimeToString(n.PlannedStart, dateLayout),
		nullableTimeToString(n.PlannedEnd, dateLayout),
		nullableTimeToString(n.ActualStart, dateLayout),
		nullableTimeToString(n.ActualEnd, dateLayout),
		position,
	)
	if err != nil {
		return fmt.Errorf("inserting task %s: %w", n.Name, err)
	}
	for i, key := range n.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_members (task_id, node_key, position) VALUES (?, ?, ?)`,
			n.ID, key, i); err != nil {
			return fmt.Errorf("linking node %d to task %s: %w", key, n.Name, err)
		}
	}
	return nil
}

// Count returns the number of tasks, folders excluded.
func (r *SQLiteTaskRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE kind = 'task'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}

func scanTask(rows *sql.Rows) (*domain.TaskNode, sql.NullString, error) {
	var n domain.TaskNode
	var parent sql.NullString
	var kind, taskType string
	var ps, pe, as, ae sql.NullString
	var position int
	err := rows.Scan(&n.ID, &parent, &kind, &n.Name, &n.SyncID, &taskType,
		&ps, &pe, &as, &ae, &position)
	if err != nil {
		return nil, parent, fmt.Errorf("scanning task row: %w", err)
	}
	n.Kind = domain.TaskNodeKind(kind)
	n.TaskType = domain.TaskType(taskType)
	n.PlannedStart = parseNullableTime(ps, dateLayout)
	n.PlannedEnd = parseNullableTime(pe, dateLayout)
	n.ActualStart = parseNullableTime(as, dateLayout)
	n.ActualEnd = parseNullableTime(ae, dateLayout)
	return &n, parent, nil
}
