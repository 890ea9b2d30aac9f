package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// ExecError is a failed warehouse statement with its diagnostic.
type ExecError struct {
	Err       error
	Transient bool
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient execution failure
// (timeout, cancelled statement, lost connection) that may be retried.
func IsTransient(err error) bool {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Transient
	}
	return false
}

func wrapExecError(err error) error {
	return &ExecError{Err: err, Transient: isTransientCause(err)}
}

func isTransientCause(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "57014", // query_canceled (statement timeout)
			"53300", // too_many_connections
			"08006", // connection_failure
			"08003": // connection_does_not_exist
			return true
		}
	}
	return false
}
