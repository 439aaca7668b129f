package utils

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate entry", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"wrapped duplicate entry", fmt.Errorf("save snapshot: %w", &mysqlDriver.MySQLError{Number: 1062}), true},
		{"other mysql error", &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}, false},
		{"plain error", errors.New("duplicate entry"), false},
	}
	for _, c := range cases {
		if got := IsDuplicateKeyErr(c.err); got != c.want {
			t.Fatalf("%s: IsDuplicateKeyErr = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("bad input"), false},
		{"data integrity", NewDataIntegrityError("bad period key"), false},
		{"wrapped validation", fmt.Errorf("handler: %w", NewValidationError("bad input")), false},
		{"transient infra", NewTransientInfraError("analyze", errors.New("timeout")), true},
		{"plain error", errors.New("connection reset"), true},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", c.name, got, c.want)
		}
	}
}
