package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/retry"
	"nathanbeddoewebdev/actionmgr/internal/swrcache"
)

const (
	cachePrefix = "action_"

	maxSuggestions = 3
)

// LoadAction returns the descriptor stored under ref's id or xml id. The
// active record context is accepted for interface parity; stored
// descriptors do not depend on it.
func (c *Catalog) LoadAction(ctx context.Context, ref actions.Ref, _ domain.Context) (*domain.Action, error) {
	key, query, arg := lookupFor(ref)
	if query == "" {
		return nil, fmt.Errorf("catalog: %w: empty reference", domain.ErrNotFound)
	}

	act, err := swrcache.GetOrFetch(c.cache, ctx, key, func(ctx context.Context) (*domain.Action, error) {
		return c.readAction(ctx, query, arg)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.notFound(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	c.logger.V(logging.DEBUG).Info("loaded action", "ref", ref.String(), "kind", string(act.Kind))
	return act.Clone(), nil
}

func lookupFor(ref actions.Ref) (key, query string, arg any) {
	switch {
	case ref.ID > 0:
		return cachePrefix + strconv.FormatInt(ref.ID, 10),
			`SELECT descriptor FROM actions WHERE id = ?`, ref.ID
	case ref.Name != "":
		return cachePrefix + "x_" + ref.Name,
			`SELECT descriptor FROM actions WHERE xml_id = ?`, ref.Name
	}
	return "", "", nil
}

func (c *Catalog) readAction(ctx context.Context, query string, arg any) (*domain.Action, error) {
	return retry.Value(ctx, c.retry, retry.IsTransient, func() (*domain.Action, error) {
		var payload string
		if err := c.db.QueryRowContext(ctx, query, arg).Scan(&payload); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			return nil, fmt.Errorf("catalog: query failed: %w", err)
		}
		var act domain.Action
		if err := json.Unmarshal([]byte(payload), &act); err != nil {
			return nil, fmt.Errorf("catalog: corrupt descriptor: %w", err)
		}
		return &act, nil
	})
}

func (c *Catalog) notFound(ctx context.Context, ref actions.Ref) error {
	if ref.Name == "" {
		return fmt.Errorf("catalog: action %d: %w", ref.ID, domain.ErrNotFound)
	}
	suggestions, err := c.Suggest(ctx, ref.Name)
	if err != nil || len(suggestions) == 0 {
		return fmt.Errorf("catalog: action %q: %w", ref.Name, domain.ErrNotFound)
	}
	return fmt.Errorf("catalog: action %q: %w (did you mean %s?)", ref.Name, domain.ErrNotFound, strings.Join(suggestions, ", "))
}

// Suggest returns up to three stored xml ids or names close to name, best
// match first.
func (c *Catalog) Suggest(ctx context.Context, name string) ([]string, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		value string
		dist  int
	}
	needle := strings.ToLower(name)
	limit := max(2, len(needle)/3)

	var found []candidate
	seen := map[string]bool{}
	for _, s := range all {
		for _, v := range []string{s.XMLID, s.Name} {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			if d := levenshtein.ComputeDistance(needle, strings.ToLower(v)); d <= limit {
				found = append(found, candidate{value: v, dist: d})
			}
		}
	}
	slices.SortStableFunc(found, func(a, b candidate) int { return a.dist - b.dist })

	out := make([]string, 0, min(len(found), maxSuggestions))
	for _, f := range found {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, f.value)
	}
	return out, nil
}
