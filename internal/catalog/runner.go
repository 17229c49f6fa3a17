package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/retry"
)

// RunServerAction records a run of server action id and returns its stored
// follow-up, nil meaning "close".
func (c *Catalog) RunServerAction(ctx context.Context, id int64, _ domain.Context) (*domain.Action, error) {
	stamp := c.now().UTC().Format(time.RFC3339Nano)
	act, err := retry.Value(ctx, c.retry, retry.IsTransient, func() (*domain.Action, error) {
		var result string
		err := c.db.QueryRowContext(ctx, `
			UPDATE server_actions SET run_count = run_count + 1, last_run_at = ?
			WHERE id = ? RETURNING result`, stamp, id).Scan(&result)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: server action %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: run server action %d: %w", id, err)
		}
		act, err := decodeResult(result)
		if err != nil {
			return nil, fmt.Errorf("catalog: corrupt result of server action %d: %w", id, err)
		}
		return act, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.V(logging.VERBOSE).Info("ran server action", "id", id, "followUp", act != nil)
	return act, nil
}

// RunCount reports how many times server action id has run.
func (c *Catalog) RunCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT run_count FROM server_actions WHERE id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("catalog: server action %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: query failed: %w", err)
	}
	return n, nil
}

// CallButton returns the stored result of model.method. The ids are logged
// only; stored methods do not act on records.
func (c *Catalog) CallButton(ctx context.Context, model, method string, ids []int64, _ []any, _ domain.Context) (*domain.Action, error) {
	act, err := retry.Value(ctx, c.retry, retry.IsTransient, func() (*domain.Action, error) {
		var result string
		err := c.db.QueryRowContext(ctx, `SELECT result FROM methods WHERE model = ? AND name = ?`, model, method).Scan(&result)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: method %s.%s: %w", model, method, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: query failed: %w", err)
		}
		act, err := decodeResult(result)
		if err != nil {
			return nil, fmt.Errorf("catalog: corrupt result of %s.%s: %w", model, method, err)
		}
		return act, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.V(logging.VERBOSE).Info("called button", "model", model, "method", method, "ids", ids)
	return act, nil
}
