package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/retry"
)

// SearchRecords returns the records of model matching d, ordered by id. A
// non-positive limit returns every match.
func (c *Catalog) SearchRecords(ctx context.Context, model string, d domain.Domain, limit int) ([]Record, error) {
	all, err := retry.Value(ctx, c.retry, retry.IsTransient, func() ([]Record, error) {
		return c.scanModel(ctx, model)
	})
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range all {
		ok, err := Match(d, r)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Catalog) scanModel(ctx context.Context, model string) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, vals FROM records WHERE model = ? ORDER BY id`, model)
	if err != nil {
		return nil, fmt.Errorf("catalog: query failed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r := Record{Model: model}
		var vals string
		if err := rows.Scan(&r.ID, &r.Name, &vals); err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &r.Values); err != nil {
			return nil, fmt.Errorf("catalog: corrupt record %s/%d: %w", model, r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadRecord returns one record.
func (c *Catalog) ReadRecord(ctx context.Context, model string, id int64) (*Record, error) {
	return retry.Value(ctx, c.retry, retry.IsTransient, func() (*Record, error) {
		r := &Record{Model: model, ID: id}
		var vals string
		err := c.db.QueryRowContext(ctx, `SELECT name, vals FROM records WHERE model = ? AND id = ?`, model, id).Scan(&r.Name, &vals)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: record %s/%d: %w", model, id, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: query failed: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &r.Values); err != nil {
			return nil, fmt.Errorf("catalog: corrupt record %s/%d: %w", model, id, err)
		}
		return r, nil
	})
}

// WriteRecord merges vals into a stored record. A "name" entry renames it.
func (c *Catalog) WriteRecord(ctx context.Context, model string, id int64, vals map[string]any) error {
	r, err := c.ReadRecord(ctx, model, id)
	if err != nil {
		return err
	}
	if r.Values == nil {
		r.Values = map[string]any{}
	}
	for k, v := range vals {
		if k == "name" {
			if s, ok := v.(string); ok {
				r.Name = s
			}
			continue
		}
		r.Values[k] = v
	}
	payload, err := json.Marshal(r.Values)
	if err != nil {
		return fmt.Errorf("catalog: encode record %s/%d: %w", model, id, err)
	}
	return retry.Do(ctx, c.retry, retry.IsTransient, func() error {
		_, err := c.db.ExecContext(ctx, `UPDATE records SET name = ?, vals = ? WHERE model = ? AND id = ?`,
			r.Name, string(payload), model, id)
		if err != nil {
			return fmt.Errorf("catalog: update record %s/%d: %w", model, id, err)
		}
		return nil
	})
}

// Group is one bucket of CountBy.
type Group struct {
	Key   string
	Count int
}

// CountBy counts the records of model matching d per value of field,
// ordered by key. Records without the field fall in the "None" bucket.
func (c *Catalog) CountBy(ctx context.Context, model string, d domain.Domain, field string) ([]Group, error) {
	records, err := c.SearchRecords(ctx, model, d, 0)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, r := range records {
		key := "None"
		if v, ok := r.Field(field); ok && v != nil && v != false {
			key = fmt.Sprint(v)
		}
		counts[key]++
	}

	out := make([]Group, 0, len(counts))
	for _, key := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, Group{Key: key, Count: counts[key]})
	}
	return out, nil
}

// Match evaluates a prefix-notation domain against r. Leaves not joined by
// an operator are and-ed. Supported leaf operators: = != < <= > >= in
// "not in" like ilike "not ilike".
func Match(d domain.Domain, r Record) (bool, error) {
	var stack []bool
	pop := func() (bool, error) {
		if len(stack) == 0 {
			return false, fmt.Errorf("catalog: malformed domain %v", d)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for i := len(d) - 1; i >= 0; i-- {
		t := d[i]
		if t.IsLeaf() {
			ok, err := matchLeaf(t, r)
			if err != nil {
				return false, err
			}
			stack = append(stack, ok)
			continue
		}
		a, err := pop()
		if err != nil {
			return false, err
		}
		if t.Logic == "!" {
			stack = append(stack, !a)
			continue
		}
		b, err := pop()
		if err != nil {
			return false, err
		}
		if t.Logic == "&" {
			stack = append(stack, a && b)
		} else {
			stack = append(stack, a || b)
		}
	}

	for _, v := range stack {
		if !v {
			return false, nil
		}
	}
	return true, nil
}

func matchLeaf(t domain.Term, r Record) (bool, error) {
	got, present := r.Field(t.Field)
	switch strings.ToLower(t.Operator) {
	case "=", "==":
		return equal(got, present, t.Value), nil
	case "!=", "<>":
		return !equal(got, present, t.Value), nil
	case "<", "<=", ">", ">=":
		a, okA := number(got)
		b, okB := number(t.Value)
		if !okA || !okB {
			return false, nil
		}
		switch t.Operator {
		case "<":
			return a < b, nil
		case "<=":
			return a <= b, nil
		case ">":
			return a > b, nil
		}
		return a >= b, nil
	case "in", "not in":
		list, ok := t.Value.([]any)
		if !ok {
			return false, fmt.Errorf("catalog: operator %q needs a list, got %T", t.Operator, t.Value)
		}
		in := slices.ContainsFunc(list, func(v any) bool { return equal(got, present, v) })
		return in == (t.Operator == "in"), nil
	case "like":
		return strings.Contains(fmt.Sprint(got), fmt.Sprint(t.Value)), nil
	case "ilike", "not ilike":
		hit := strings.Contains(strings.ToLower(fmt.Sprint(got)), strings.ToLower(fmt.Sprint(t.Value)))
		return hit == (t.Operator == "ilike"), nil
	}
	return false, fmt.Errorf("catalog: unsupported operator %q", t.Operator)
}

// equal treats a false comparison value as "unset".
func equal(got any, present bool, want any) bool {
	if want == false {
		return !present || got == nil || got == false
	}
	if !present {
		return false
	}
	a, okA := number(got)
	b, okB := number(want)
	if okA && okB {
		return a == b
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
