package pgsql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// VerifySchema checks the live catalog against domain.Schema: every table,
// named unique key, index and cascading foreign key must be present. Error
// mapping in dbError relies on the constraint names.
func (s *Store) VerifySchema(ctx context.Context) error {
	q := s.base.db()

	tables, err := catalogSet(ctx, q, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE';`)
	if err != nil {
		return err
	}
	constraints, err := catalogSet(ctx, q, `
		SELECT c.conname
		FROM pg_constraint c
		JOIN pg_namespace n ON n.oid = c.connamespace
		WHERE n.nspname = current_schema() AND c.contype IN ('u', 'p');`)
	if err != nil {
		return err
	}
	indexes, err := catalogSet(ctx, q, `
		SELECT indexname FROM pg_indexes WHERE schemaname = current_schema();`)
	if err != nil {
		return err
	}
	cascades, err := catalogSet(ctx, q, `
		SELECT cl.relname || '.' || a.attname
		FROM pg_constraint c
		JOIN pg_class cl ON cl.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = c.connamespace
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = c.conkey[1]
		WHERE n.nspname = current_schema() AND c.contype = 'f' AND c.confdeltype = 'c';`)
	if err != nil {
		return err
	}

	var missing []string
	for _, t := range domain.Schema.Tables {
		if _, ok := tables[t.Name]; !ok {
			missing = append(missing, "table "+t.Name)
			continue
		}
		for _, u := range t.UniqueKeys {
			if _, ok := constraints[u.Name]; !ok {
				missing = append(missing, "constraint "+u.Name)
			}
		}
		for _, idx := range t.Indexes {
			if _, ok := indexes[idx.Name]; !ok {
				missing = append(missing, "index "+idx.Name)
			}
		}
		for _, fk := range t.ForeignKeys {
			if fk.OnDelete != domain.DeleteCascade {
				continue
			}
			if _, ok := cascades[t.Name+"."+fk.Column]; !ok {
				missing = append(missing, fmt.Sprintf("cascading foreign key %s.%s", t.Name, fk.Column))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("database schema does not match the model: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func catalogSet(ctx context.Context, q querier, query string) (map[string]struct{}, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, dbError("failed to read catalog", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dbError("failed to scan catalog rows", err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}
