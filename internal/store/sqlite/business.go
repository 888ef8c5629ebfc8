package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/askerp/askerp-server/internal/store/model"
)

var validAggregations = map[string]bool{
	"SUM": true, "COUNT": true, "AVG": true, "MAX": true, "MIN": true,
}

type businessRepo struct {
	db DB
}

func (r *businessRepo) Aggregate(ctx context.Context, doctype, field, fn string, filters map[string]interface{}) (float64, error) {
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return 0, fmt.Errorf("unknown doctype %q", doctype)
	}
	fn = strings.ToUpper(strings.TrimSpace(fn))
	if !validAggregations[fn] {
		return 0, fmt.Errorf("invalid aggregation %q", fn)
	}
	if fn != "COUNT" && !dt.Fields[field] {
		return 0, fmt.Errorf("field %q is not queryable on %s", field, doctype)
	}

	col := field
	if fn == "COUNT" {
		col = "*"
	}
	where, args, err := buildWhere(dt, filters)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COALESCE(%s(%s), 0) FROM %s%s`, fn, col, dt.Table, where)
	var value float64
	if err := r.db.GetContext(ctx, &value, query, args...); err != nil {
		return 0, err
	}
	return value, nil
}

func (r *businessRepo) Count(ctx context.Context, doctype string, filters map[string]interface{}) (int64, error) {
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return 0, fmt.Errorf("unknown doctype %q", doctype)
	}
	where, args, err := buildWhere(dt, filters)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, dt.Table, where)
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// Select runs an arbitrary read-only query. Callers are responsible for
// validating the statement first (see tools.Guard); this layer only maps
// rows into generic maps.
func (r *businessRepo) Select(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		// sqlite hands back []byte for TEXT columns
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Upsert writes one mirrored document row. Only whitelisted columns are
// accepted; the row is keyed by the upstream document name.
func (r *businessRepo) Upsert(ctx context.Context, doctype, name string, fields map[string]interface{}) error {
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return fmt.Errorf("unknown doctype %q", doctype)
	}
	if name == "" {
		return fmt.Errorf("document name is required")
	}

	cols := []string{"name"}
	args := []interface{}{name}
	var updates []string
	for key, val := range fields {
		if !dt.Fields[key] {
			return fmt.Errorf("field %q is not a column of %s", key, doctype)
		}
		cols = append(cols, key)
		args = append(args, val)
		updates = append(updates, key+" = excluded."+key)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		dt.Table, strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if len(updates) > 0 {
		query += " ON CONFLICT(name) DO UPDATE SET " + strings.Join(updates, ", ")
	} else {
		query += " ON CONFLICT(name) DO NOTHING"
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *businessRepo) Remove(ctx context.Context, doctype, name string) error {
	dt, ok := model.LookupDoctype(doctype)
	if !ok {
		return fmt.Errorf("unknown doctype %q", doctype)
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, dt.Table), name)
	return err
}

// buildWhere turns equality filters into a WHERE clause, rejecting any
// key that is not a known column of the doctype.
func buildWhere(dt model.Doctype, filters map[string]interface{}) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []interface{}
	for key, val := range filters {
		if !dt.Fields[key] {
			return "", nil, fmt.Errorf("filter field %q is not queryable on %s", key, dt.Name)
		}
		clauses = append(clauses, key+" = ?")
		args = append(args, val)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
