package temporal

import (
	"errors"
	"fmt"
)

// ErrNoTable is returned by operations on a Versioner without a table.
var ErrNoTable = errors.New("no table configured")

// StoreError wraps a failed statement.
type StoreError struct {
	// Table is the versioned table the statement belonged to.
	Table string

	// Op names the step that failed (e.g. "read floor timestamps").
	Op string

	// Err is the driver error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("temporal store %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// InvariantError reports a state the store cannot continue from, such as an
// insert that did not produce exactly one row.
type InvariantError struct {
	Table   string
	Op      string
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("temporal invariant %s: %s: %s", e.Table, e.Op, e.Message)
}

// IsStoreError returns true if err wraps a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsInvariantError returns true if err wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

func (v *Versioner) storeErr(op string, err error) error {
	return &StoreError{Table: v.table.Name, Op: op, Err: err}
}

func (v *Versioner) invariant(op, format string, args ...any) error {
	return &InvariantError{Table: v.table.Name, Op: op, Message: fmt.Sprintf(format, args...)}
}
