package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/domain"
)

// SQLitePropertyStore implements PropertyStore using a SQLite database.
type SQLitePropertyStore struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLitePropertyStore creates a store whose category writes are atomic
// through uow. A nil uow writes directly on conn.
func NewSQLitePropertyStore(conn db.DBTX, uow db.UnitOfWork) *SQLitePropertyStore {
	return &SQLitePropertyStore{db: conn, uow: uow}
}

func (s *SQLitePropertyStore) WriteCategory(ctx context.Context, nodeKey int64, cat domain.CustomCategory) error {
	if s.uow == nil {
		return writeCategory(ctx, s.db, nodeKey, cat)
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return writeCategory(ctx, tx, nodeKey, cat)
	})
}

func writeCategory(ctx context.Context, conn db.DBTX, nodeKey int64, cat domain.CustomCategory) error {
	var exists int
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ?`, nodeKey).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking node %d: %w", nodeKey, err)
	}
	if exists == 0 {
		return fmt.Errorf("node %d: %w", nodeKey, ErrNotFound)
	}

	if _, err := conn.ExecContext(ctx,
		`DELETE FROM custom_categories WHERE node_key = ? AND internal_name = ?`,
		nodeKey, cat.InternalName); err != nil {
		return fmt.Errorf("removing category %s: %w", cat.InternalName, err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO custom_categories (node_key, internal_name, display_name, updated_at) VALUES (?, ?, ?, ?)`,
		nodeKey, cat.InternalName, cat.DisplayName, nowUTC()); err != nil {
		return fmt.Errorf("inserting category %s: %w", cat.InternalName, err)
	}
	for i, p := range cat.Properties {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO custom_properties
			(node_key, category_internal, position, internal_name, display_name, value_type, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			nodeKey, cat.InternalName, i, p.InternalName, p.DisplayName, string(p.Value.Type), p.Value.Raw); err != nil {
			return fmt.Errorf("inserting property %s: %w", p.InternalName, err)
		}
	}
	return nil
}

func (s *SQLitePropertyStore) ReadCategory(ctx context.Context, nodeKey int64, internalName string) (*domain.CustomCategory, error) {
	cat := domain.CustomCategory{InternalName: internalName}
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM custom_categories WHERE node_key = ? AND internal_name = ?`,
		nodeKey, internalName).Scan(&cat.DisplayName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("category %s on node %d: %w", internalName, nodeKey, ErrNotFound)
		}
		return nil, fmt.Errorf("reading category: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT internal_name, display_name, value_type, value FROM custom_properties
		WHERE node_key = ? AND category_internal = ? ORDER BY position`, nodeKey, internalName)
	if err != nil {
		return nil, fmt.Errorf("reading properties of %s: %w", internalName, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.CustomProperty
		var typ string
		if err := rows.Scan(&p.InternalName, &p.DisplayName, &typ, &p.Value.Raw); err != nil {
			return nil, fmt.Errorf("scanning custom property row: %w", err)
		}
		p.Value.Type = domain.ValueType(typ)
		cat.Properties = append(cat.Properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating custom properties: %w", err)
	}
	return &cat, nil
}
