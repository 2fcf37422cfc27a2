// Package etlerr holds the error taxonomy shared by the load pipeline.
//
// Every failure surfaced by the resolver, coercer and loader either is one of
// the sentinels below or wraps one, so callers can branch with errors.Is:
//
//	res, err := loader.Load(ctx, req, raw)
//	if errors.Is(err, etlerr.ErrMissingColumn) {
//	    // input file does not carry every destination column
//	}
package etlerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection indicates a database connection could not be established.
	ErrConnection = errors.New("connection failed")

	// ErrSchemaResolution indicates the reference schema could not be read.
	ErrSchemaResolution = errors.New("schema resolution failed")

	// ErrMissingColumn indicates a reference column is absent from the input table.
	ErrMissingColumn = errors.New("missing reference column")

	// ErrCoercion indicates one or more column conversions failed.
	ErrCoercion = errors.New("column coercion failed")

	// ErrStagingWrite indicates the staging table could not be written.
	ErrStagingWrite = errors.New("staging write failed")

	// ErrKillFill indicates the kill-and-fill procedure failed.
	ErrKillFill = errors.New("kill and fill failed")

	// ErrProcedure indicates a stored procedure call failed.
	ErrProcedure = errors.New("stored procedure failed")

	// ErrNotImplemented indicates a deferred capability was invoked.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSecretNotFound indicates a named secret or config string does not exist.
	ErrSecretNotFound = errors.New("secret not found")
)

// Stage names a step of the load pipeline.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageCoerce   Stage = "coerce"
	StageStaging  Stage = "staging"
	StageKillFill Stage = "kill_fill"
	StageProc     Stage = "procedure"
)

// StageError reports which pipeline stage failed for which table.
type StageError struct {
	Stage Stage
	Table string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("load %s failed at %s: %v", e.Table, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// MissingColumnError lists the reference columns absent from an input table.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// ColumnFailure describes a column whose conversion could not be applied.
type ColumnFailure struct {
	Column string
	Type   string
	Err    error
}

func (f ColumnFailure) String() string {
	return fmt.Sprintf("%s (%s): %v", f.Column, f.Type, f.Err)
}

// CoercionError carries every column failure of a single reconcile pass.
// The partial result travels separately, next to the error.
type CoercionError struct {
	Failures []ColumnFailure
}

func (e *CoercionError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrCoercion, strings.Join(parts, "; "))
}

func (e *CoercionError) Is(target error) bool {
	return target == ErrCoercion
}

// Exit codes returned by the CLI.
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitConfigError     = 2
	ExitConnectionError = 3
	ExitSchemaError     = 4
	ExitDataError       = 5
	ExitLoadFailed      = 6
	ExitNotImplemented  = 7
)

// ExitCode maps an error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrSecretNotFound):
		return ExitConfigError
	case errors.Is(err, ErrConnection):
		return ExitConnectionError
	case errors.Is(err, ErrSchemaResolution):
		return ExitSchemaError
	case errors.Is(err, ErrMissingColumn), errors.Is(err, ErrCoercion):
		return ExitDataError
	case errors.Is(err, ErrStagingWrite), errors.Is(err, ErrKillFill), errors.Is(err, ErrProcedure):
		return ExitLoadFailed
	case errors.Is(err, ErrNotImplemented):
		return ExitNotImplemented
	}
	return ExitGeneralError
}
