package schemainfo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column is one field of a table schema.
type Column struct {
	Name string
	Type string
}

// Relation is a foreign-key edge to another table.
type Relation struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableFact is an immutable record of one selected table: its description,
// field list and join annotations. Produced here, consumed read-only by the
// pipeline's contextualize stage.
type TableFact struct {
	Name        string
	Description string
	Columns     []Column
	Relations   []Relation
}

// Render formats the fact the way the pipeline presents schema evidence to
// the model.
func (f *TableFact) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Selected Table %s\n\n", f.Name)
	if f.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", f.Description)
	}
	sb.WriteString("Fields:\n")
	for _, c := range f.Columns {
		fmt.Fprintf(&sb, "  %s (%s)\n", c.Name, c.Type)
	}
	if len(f.Relations) > 0 {
		sb.WriteString("Joins:\n")
		for _, r := range f.Relations {
			fmt.Fprintf(&sb, "  %s.%s = %s.%s\n", f.Name, r.Column, r.RefTable, r.RefColumn)
		}
	}
	return sb.String()
}

// Service reads table metadata from the target database's catalogs.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ListTables returns every table in the public schema with its comment, as a
// single text block used by the informational side path and the selector.
func (s *Service) ListTables(ctx context.Context) (string, error) {
	const q = `
		SELECT c.relname, COALESCE(obj_description(c.oid), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'public' AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	sb.WriteString("Tables and Descriptions:\n\n")
	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%s: %s\n", name, comment)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// FetchFact resolves one table name to its TableFact.
func (s *Service) FetchFact(ctx context.Context, table string) (*TableFact, error) {
	fact := &TableFact{Name: table}

	const descQ = `
		SELECT COALESCE(obj_description(c.oid), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'public' AND c.relname = $1`
	if err := s.db.QueryRowContext(ctx, descQ, table).Scan(&fact.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("table %q not found", table)
		}
		return nil, fmt.Errorf("table description: %w", err)
	}

	const colQ = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`
	rows, err := s.db.QueryContext(ctx, colQ, table)
	if err != nil {
		return nil, fmt.Errorf("table columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		fact.Columns = append(fact.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const fkQ = `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1`
	fkRows, err := s.db.QueryContext(ctx, fkQ, table)
	if err != nil {
		return nil, fmt.Errorf("table relations: %w", err)
	}
	defer fkRows.Close()
	for fkRows.Next() {
		var r Relation
		if err := fkRows.Scan(&r.Column, &r.RefTable, &r.RefColumn); err != nil {
			return nil, err
		}
		fact.Relations = append(fact.Relations, r)
	}
	if err := fkRows.Err(); err != nil {
		return nil, err
	}

	return fact, nil
}
