package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/domain"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillValueFolded(db); err != nil {
		return fmt.Errorf("backfilling folded property values: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS models (
		id          TEXT PRIMARY KEY,
		source_guid TEXT NOT NULL DEFAULT '',
		file_name   TEXT NOT NULL,
		position    INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		model_id     TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		parent_key   INTEGER REFERENCES nodes(id) ON DELETE CASCADE,
		position     INTEGER NOT NULL DEFAULT 0,
		ordinal      INTEGER NOT NULL DEFAULT 0,
		display_name TEXT NOT NULL DEFAULT '',
		class_name   TEXT NOT NULL DEFAULT '',
		instance_id  TEXT NOT NULL DEFAULT '',
		hidden       INTEGER NOT NULL DEFAULT 0,
		has_geometry INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_model_parent ON nodes(model_id, parent_key, position)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_key, position)`,
	`CREATE TABLE IF NOT EXISTS node_properties (
		node_key          INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		category          TEXT NOT NULL COLLATE NOCASE,
		category_internal TEXT NOT NULL DEFAULT '' COLLATE NOCASE,
		name              TEXT NOT NULL COLLATE NOCASE,
		internal_name     TEXT NOT NULL DEFAULT '' COLLATE NOCASE,
		value             TEXT NOT NULL DEFAULT '',
		read_only         INTEGER NOT NULL DEFAULT 1,
		position          INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_node_properties_node ON node_properties(node_key, position)`,
	`CREATE INDEX IF NOT EXISTS idx_node_properties_value ON node_properties(category, name, value)`,
	// value_folded holds domain.FoldValue(value) for case-insensitive search.
	`ALTER TABLE node_properties ADD COLUMN value_folded TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_node_properties_folded ON node_properties(category, name, value_folded)`,
	`CREATE TABLE IF NOT EXISTS custom_categories (
		node_key      INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		internal_name TEXT NOT NULL,
		display_name  TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		PRIMARY KEY (node_key, internal_name)
	)`,
	`CREATE TABLE IF NOT EXISTS custom_properties (
		node_key          INTEGER NOT NULL,
		category_internal TEXT NOT NULL,
		position          INTEGER NOT NULL,
		internal_name     TEXT NOT NULL,
		display_name      TEXT NOT NULL,
		value_type        TEXT NOT NULL CHECK(value_type IN ('string','int','float')),
		value             TEXT NOT NULL,
		PRIMARY KEY (node_key, category_internal, position),
		FOREIGN KEY (node_key, category_internal)
			REFERENCES custom_categories(node_key, internal_name) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS selection_items (
		id         TEXT PRIMARY KEY,
		parent_id  TEXT REFERENCES selection_items(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL CHECK(kind IN ('folder','set')),
		name       TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_selection_items_parent ON selection_items(parent_id, position)`,
	`CREATE TABLE IF NOT EXISTS selection_members (
		item_id  TEXT NOT NULL REFERENCES selection_items(id) ON DELETE CASCADE,
		node_key INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (item_id, node_key)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id            TEXT PRIMARY KEY,
		parent_id     TEXT REFERENCES tasks(id) ON DELETE CASCADE,
		kind          TEXT NOT NULL CHECK(kind IN ('folder','task')),
		name          TEXT NOT NULL,
		sync_id       TEXT NOT NULL DEFAULT '',
		task_type     TEXT NOT NULL DEFAULT '',
		planned_start TEXT,
		planned_end   TEXT,
		actual_start  TEXT,
		actual_end    TEXT,
		position      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_sync_id ON tasks(sync_id)`,
	`CREATE TABLE IF NOT EXISTS task_members (
		task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		node_key INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (task_id, node_key)
	)`,
}

// migrateBackfillValueFolded fills value_folded for rows written before the
// column existed. The fold must equal domain.FoldValue; SQLite's lower()
// folds only ASCII.
func migrateBackfillValueFolded(db *sql.DB) error {
	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `SELECT rowid, value FROM node_properties WHERE value_folded IS NULL`)
	if err != nil {
		return fmt.Errorf("querying unfolded values: %w", err)
	}
	type pending struct {
		rowid int64
		value string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.rowid, &p.value); err != nil {
			rows.Close()
			return fmt.Errorf("scanning unfolded value: %w", err)
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	if len(todo) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting backfill transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, p := range todo {
		if _, err := tx.ExecContext(ctx,
			`UPDATE node_properties SET value_folded = ? WHERE rowid = ?`,
			domain.FoldValue(p.value), p.rowid); err != nil {
			return fmt.Errorf("folding row %d: %w", p.rowid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing backfill: %w", err)
	}
	committed = true
	return nil
}
