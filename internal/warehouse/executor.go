package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/models"
)

// Executor runs generated SQL against the data warehouse and returns
// tabular results. The warehouse is read-only from this service's
// point of view.
type Executor struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *logrus.Logger
}

// NewExecutor creates a warehouse executor with a per-statement timeout.
func NewExecutor(db *sqlx.DB, timeout time.Duration, logger *logrus.Logger) *Executor {
	return &Executor{db: db, timeout: timeout, logger: logger}
}

// Execute runs the query and returns its result set. Transient
// failures (timeouts, lost connections) are retried once; all other
// failures are returned as execution errors with the diagnostic kept.
func (e *Executor) Execute(ctx context.Context, query string) (*models.ResultSet, error) {
	rs, err := e.executeOnce(ctx, query)
	if err == nil {
		return rs, nil
	}
	if !IsTransient(err) {
		return nil, err
	}

	e.logger.WithError(err).Warn("Transient warehouse error, retrying once")
	return e.executeOnce(ctx, query)
}

func (e *Executor) executeOnce(ctx context.Context, query string) (*models.ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapExecError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapExecError(err)
	}

	result := &models.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, wrapExecError(err)
		}
		for i, v := range values {
			// Drivers hand text columns back as []byte
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapExecError(err)
	}

	e.logger.WithFields(logrus.Fields{
		"rows":     result.RowCount(),
		"columns":  len(result.Columns),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Warehouse query executed")
	return result, nil
}

// Ping verifies warehouse connectivity.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("warehouse ping failed: %w", err)
	}
	return nil
}
