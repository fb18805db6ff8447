package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/google/uuid"
)

// selectionColumns is the canonical SELECT column list for selection_items.
const selectionColumns = `id, parent_id, kind, name, position, created_at, updated_at`

// subtreeCTE selects the ids of every top-level folder named ? and all of
// their descendants.
const subtreeCTE = `WITH RECURSIVE subtree(id) AS (
		SELECT id FROM selection_items WHERE parent_id IS NULL AND kind = 'folder' AND name = ?
		UNION ALL
		SELECT s.id FROM selection_items s JOIN subtree ON s.parent_id = subtree.id
	)`

// SQLiteSelectionRepo implements SelectionRepository using a SQLite database.
type SQLiteSelectionRepo struct {
	db db.DBTX
}

func NewSQLiteSelectionRepo(conn db.DBTX) *SQLiteSelectionRepo {
	return &SQLiteSelectionRepo{db: conn}
}

func (r *SQLiteSelectionRepo) EnsureFolder(ctx context.Context, parentID *string, name string) (*domain.SelectionItem, error) {
	item, err := r.findChild(ctx, parentID, domain.SelectionFolder, name)
	if err == nil {
		return item, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return r.insert(ctx, parentID, domain.SelectionFolder, name)
}

func (r *SQLiteSelectionRepo) UpsertSet(ctx context.Context, folderID, name string, members []int64) (*domain.SelectionItem, error) {
	parent := folderID
	item, err := r.findChild(ctx, &parent, domain.SelectionSet, name)
	switch {
	case err == nil:
		if _, err := r.db.ExecContext(ctx, `DELETE FROM selection_members WHERE item_id = ?`, item.ID); err != nil {
			return nil, fmt.Errorf("clearing members of set %s: %w", name, err)
		}
		now := nowUTC()
		if _, err := r.db.ExecContext(ctx, `UPDATE selection_items SET updated_at = ? WHERE id = ?`, now, item.ID); err != nil {
			return nil, fmt.Errorf("touching set %s: %w", name, err)
		}
		item.UpdatedAt = parseTimestamp(now)
	case isNotFound(err):
		item, err = r.insert(ctx, &parent, domain.SelectionSet, name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	item.Members = item.Members[:0]
	for _, key := range members {
		res, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO selection_members (item_id, node_key, position) VALUES (?, ?, ?)`,
			item.ID, key, len(item.Members))
		if err != nil {
			return nil, fmt.Errorf("adding node %d to set %s: %w", key, name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			item.Members = append(item.Members, key)
		}
	}
	return item, nil
}

// FindSetByName returns the most recently updated set named setName below
// the root folder rootName.
func (r *SQLiteSelectionRepo) FindSetByName(ctx context.Context, rootName, setName string) (*domain.SelectionItem, error) {
	query := subtreeCTE + `
		SELECT ` + selectionColumns + ` FROM selection_items
		WHERE id IN (SELECT id FROM subtree) AND kind = 'set' AND name = ?
		ORDER BY updated_at DESC, position LIMIT 1`
	item, err := scanSelection(r.db.QueryRowContext(ctx, query, rootName, setName))
	if err != nil {
		return nil, fmt.Errorf("set %s under %s: %w", setName, rootName, err)
	}
	members, err := r.members(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Members = members
	return item, nil
}

// List flattens the subtree below rootName in pre-order. Paths start with
// the root folder name and use "/" separators.
func (r *SQLiteSelectionRepo) List(ctx context.Context, rootName string) ([]domain.SelectionEntry, error) {
	query := subtreeCTE + `
		SELECT s.id, s.parent_id, s.kind, s.name, s.position,
			(SELECT COUNT(*) FROM selection_members m WHERE m.item_id = s.id)
		FROM selection_items s WHERE s.id IN (SELECT id FROM subtree)
		ORDER BY s.position, s.created_at`
	rows, err := r.db.QueryContext(ctx, query, rootName)
	if err != nil {
		return nil, fmt.Errorf("listing selection items under %s: %w", rootName, err)
	}
	defer rows.Close()

	type listed struct {
		entry    domain.SelectionEntry
		id       string
		children []string
	}
	byID := make(map[string]*listed)
	var roots []string
	var order []string
	parents := make(map[string]string)
	for rows.Next() {
		var id, kind, name string
		var parent sql.NullString
		var pos, count int
		if err := rows.Scan(&id, &parent, &kind, &name, &pos, &count); err != nil {
			return nil, fmt.Errorf("scanning selection row: %w", err)
		}
		byID[id] = &listed{id: id, entry: domain.SelectionEntry{Kind: domain.SelectionKind(kind), Name: name, MemberCount: count}}
		order = append(order, id)
		if parent.Valid {
			parents[id] = parent.String
		} else {
			roots = append(roots, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selection items: %w", err)
	}
	for _, id := range order {
		if p, ok := parents[id]; ok {
			if parentItem, ok := byID[p]; ok {
				parentItem.children = append(parentItem.children, id)
			}
		}
	}

	var out []domain.SelectionEntry
	type frame struct {
		id   string
		path string
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		it := byID[f.id]
		path := it.entry.Name
		if f.path != "" {
			path = f.path + "/" + it.entry.Name
		}
		e := it.entry
		e.Path = path
		out = append(out, e)
		for i := len(it.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: it.children[i], path: path})
		}
	}
	return out, nil
}

func (r *SQLiteSelectionRepo) DeleteRoot(ctx context.Context, rootName string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, subtreeCTE+` SELECT COUNT(*) FROM subtree`, rootName).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting items under %s: %w", rootName, err)
	}
	if count == 0 {
		return 0, nil
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM selection_items WHERE parent_id IS NULL AND kind = 'folder' AND name = ?`, rootName); err != nil {
		return 0, fmt.Errorf("deleting root folder %s: %w", rootName, err)
	}
	return count, nil
}

func (r *SQLiteSelectionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM selection_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting selection items: %w", err)
	}
	return n, nil
}

func (r *SQLiteSelectionRepo) findChild(ctx context.Context, parentID *string, kind domain.SelectionKind, name string) (*domain.SelectionItem, error) {
	query := `SELECT ` + selectionColumns + ` FROM selection_items
		WHERE parent_id IS ? AND kind = ? AND name = ? ORDER BY position LIMIT 1`
	item, err := scanSelection(r.db.QueryRowContext(ctx, query, nullableString(parentID), string(kind), name))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, name, err)
	}
	if kind == domain.SelectionSet {
		members, err := r.members(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item.Members = members
	}
	return item, nil
}

func (r *SQLiteSelectionRepo) insert(ctx context.Context, parentID *string, kind domain.SelectionKind, name string) (*domain.SelectionItem, error) {
	var pos int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM selection_items WHERE parent_id IS ?`, nullableString(parentID)).Scan(&pos); err != nil {
		return nil, fmt.Errorf("counting siblings: %w", err)
	}

	now := nowUTC()
	item := &domain.SelectionItem{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Kind:      kind,
		Name:      name,
		Position:  pos,
		CreatedAt: parseTimestamp(now),
		UpdatedAt: parseTimestamp(now),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO selection_items (id, parent_id, kind, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, nullableString(parentID), string(kind), name, pos, now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting %s %s: %w", kind, name, err)
	}
	return item, nil
}

func (r *SQLiteSelectionRepo) members(ctx context.Context, itemID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT node_key FROM selection_members WHERE item_id = ? ORDER BY position`, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading members of %s: %w", itemID, err)
	}
	defer rows.Close()
	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return keys, nil
}

func scanSelection(row *sql.Row) (*domain.SelectionItem, error) {
	var s domain.SelectionItem
	var parent sql.NullString
	var kind, created, updated string
	err := row.Scan(&s.ID, &parent, &kind, &s.Name, &s.Position, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning selection item: %w", err)
	}
	if parent.Valid {
		s.ParentID = &parent.String
	}
	s.Kind = domain.SelectionKind(kind)
	s.CreatedAt = parseTimestamp(created)
	s.UpdatedAt = parseTimestamp(updated)
	return &s, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
