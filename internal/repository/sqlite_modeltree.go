package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/domain"
)

// nodeColumns is the canonical SELECT column list for nodes, qualified with
// the alias n.
const nodeColumns = `n.id, n.model_id, n.parent_key, n.position, n.ordinal,
		n.display_name, n.class_name, n.instance_id, n.hidden, n.has_geometry`

// matchOrder mirrors domain.SortMatchCandidates.
const matchOrder = `ORDER BY CASE WHEN n.instance_id = '' THEN 1 ELSE 0 END, n.instance_id, n.ordinal`

// SQLiteModelTree implements ModelTree and ModelWriter using a SQLite database.
type SQLiteModelTree struct {
	db db.DBTX
}

func NewSQLiteModelTree(conn db.DBTX) *SQLiteModelTree {
	return &SQLiteModelTree{db: conn}
}

func (r *SQLiteModelTree) Models(ctx context.Context) ([]domain.Model, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_guid, file_name, position FROM models ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var models []domain.Model
	for rows.Next() {
		var m domain.Model
		if err := rows.Scan(&m.ID, &m.SourceGUID, &m.FileName, &m.Position); err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating models: %w", err)
	}
	return models, nil
}

func (r *SQLiteModelTree) Roots(ctx context.Context, modelID string) ([]domain.ModelNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes n
		WHERE n.model_id = ? AND n.parent_key IS NULL ORDER BY n.position, n.id`
	rows, err := r.db.QueryContext(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("listing roots of model %s: %w", modelID, err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteModelTree) Children(ctx context.Context, parentKey int64) ([]domain.ModelNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes n
		WHERE n.parent_key = ? ORDER BY n.position, n.id`
	rows, err := r.db.QueryContext(ctx, query, parentKey)
	if err != nil {
		return nil, fmt.Errorf("listing children of node %d: %w", parentKey, err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteModelTree) Node(ctx context.Context, key int64) (*domain.ModelNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes n WHERE n.id = ?`
	row := r.db.QueryRowContext(ctx, query, key)

	var n domain.ModelNode
	var parent sql.NullInt64
	var hidden, geometry int
	err := row.Scan(&n.Key, &n.ModelID, &parent, &n.Position, &n.Ordinal,
		&n.DisplayName, &n.ClassName, &n.InstanceID, &hidden, &geometry)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("node %d: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}
	populateNode(&n, parent, hidden, geometry)
	return &n, nil
}

// Properties returns the node's property categories in stored order.
// Properties of one category are grouped even when stored apart.
func (r *SQLiteModelTree) Properties(ctx context.Context, key int64) ([]domain.PropertyCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, category_internal, name, internal_name, value, read_only
		FROM node_properties WHERE node_key = ? ORDER BY position, rowid`, key)
	if err != nil {
		return nil, fmt.Errorf("loading properties of node %d: %w", key, err)
	}
	defer rows.Close()

	var cats []domain.PropertyCategory
	index := make(map[[2]string]int)
	for rows.Next() {
		var catName, catInternal string
		var p domain.Property
		var readOnly int
		if err := rows.Scan(&catName, &catInternal, &p.Name, &p.InternalName, &p.Value, &readOnly); err != nil {
			return nil, fmt.Errorf("scanning property row: %w", err)
		}
		p.ReadOnly = intToBool(readOnly)

		k := [2]string{catName, catInternal}
		i, ok := index[k]
		if !ok {
			i = len(cats)
			index[k] = i
			cats = append(cats, domain.PropertyCategory{Name: catName, InternalName: catInternal})
		}
		cats[i].Properties = append(cats[i].Properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return cats, nil
}

func (r *SQLiteModelTree) Search(ctx context.Context, cond domain.PropertyCondition) ([]domain.ModelNode, error) {
	valueClause, value := `p.value = ?`, cond.Value
	if cond.IgnoreCase {
		valueClause, value = `p.value_folded = ?`, domain.FoldValue(cond.Value)
	}
	query := `SELECT ` + nodeColumns + ` FROM nodes n
		WHERE n.id IN (
			SELECT p.node_key FROM node_properties p
			WHERE (p.category = ? OR p.category_internal = ?)
			  AND (p.name = ? OR p.internal_name = ?)
			  AND ` + valueClause + `
		) ` + matchOrder
	rows, err := r.db.QueryContext(ctx, query,
		cond.Category, cond.Category, cond.Name, cond.Name, value)
	if err != nil {
		return nil, fmt.Errorf("searching %s.%s: %w", cond.Category, cond.Name, err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteModelTree) CountNodes(ctx context.Context) (NodeCounts, error) {
	var c NodeCounts
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM models),
		(SELECT COUNT(*) FROM nodes),
		(SELECT COUNT(*) FROM nodes WHERE has_geometry = 1)`).Scan(&c.Models, &c.Nodes, &c.WithGeometry)
	if err != nil {
		return NodeCounts{}, fmt.Errorf("counting nodes: %w", err)
	}
	return c, nil
}

func (r *SQLiteModelTree) CreateModel(ctx context.Context, m *domain.Model) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO models (id, source_guid, file_name, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SourceGUID, m.FileName, m.Position, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting model: %w", err)
	}
	return nil
}

func (r *SQLiteModelTree) InsertNode(ctx context.Context, n *domain.ModelNode) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO nodes (model_id, parent_key, position, ordinal, display_name, class_name, instance_id, hidden, has_geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ModelID,
		nullableKey(n.ParentKey),
		n.Position,
		n.Ordinal,
		n.DisplayName,
		n.ClassName,
		n.InstanceID,
		boolToInt(n.Hidden),
		boolToInt(n.HasGeometry),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting node: %w", err)
	}
	key, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading node key: %w", err)
	}
	n.Key = key
	return key, nil
}

func (r *SQLiteModelTree) InsertProperties(ctx context.Context, nodeKey int64, cats []domain.PropertyCategory) error {
	pos := 0
	for _, c := range cats {
		for _, p := range c.Properties {
			_, err := r.db.ExecContext(ctx,
				`INSERT INTO node_properties
				(node_key, category, category_internal, name, internal_name, value, value_folded, read_only, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				nodeKey, c.Name, c.InternalName, p.Name, p.InternalName,
				p.Value, domain.FoldValue(p.Value), boolToInt(p.ReadOnly), pos)
			if err != nil {
				return fmt.Errorf("inserting property %s.%s: %w", c.Name, p.Name, err)
			}
			pos++
		}
	}
	return nil
}

// DeleteModels removes every model; nodes, properties and memberships
// cascade.
func (r *SQLiteModelTree) DeleteModels(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM models`)
	if err != nil {
		return 0, fmt.Errorf("deleting models: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted models: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteModelTree) scanNodes(rows *sql.Rows) ([]domain.ModelNode, error) {
	var nodes []domain.ModelNode
	for rows.Next() {
		var n domain.ModelNode
		var parent sql.NullInt64
		var hidden, geometry int
		err := rows.Scan(&n.Key, &n.ModelID, &parent, &n.Position, &n.Ordinal,
			&n.DisplayName, &n.ClassName, &n.InstanceID, &hidden, &geometry)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		populateNode(&n, parent, hidden, geometry)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func populateNode(n *domain.ModelNode, parent sql.NullInt64, hidden, geometry int) {
	if parent.Valid {
		k := parent.Int64
		n.ParentKey = &k
	}
	n.Hidden = intToBool(hidden)
	n.HasGeometry = intToBool(geometry)
}
