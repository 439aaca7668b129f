package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError is bad caller input. Surfaced synchronously, never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DataIntegrityError is malformed persisted state (bad period key, mixed
// metric/money line). Fatal, not retried; redelivery cannot fix it.
type DataIntegrityError struct {
	Message string
}

func (e *DataIntegrityError) Error() string { return e.Message }

func NewDataIntegrityError(message string) error {
	return &DataIntegrityError{Message: message}
}

func IsDataIntegrityError(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}

// TransientInfraError wraps analyzer timeouts, storage unavailability and the
// like. The whole invocation fails and transport redelivery retries it.
type TransientInfraError struct {
	Op  string
	Err error
}

func (e *TransientInfraError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransientInfraError) Unwrap() error { return e.Err }

func NewTransientInfraError(op string, err error) error {
	return &TransientInfraError{Op: op, Err: err}
}

// IsRetryable reports whether an error should be redelivered by the transport.
// Validation and integrity failures are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !IsValidationError(err) && !IsDataIntegrityError(err)
}

// IsDuplicateKeyErr detects a MySQL unique-constraint violation (error 1062).
// Posting handlers convert this to success: the row already exists, which is
// exactly the state the handler was trying to reach.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
