package etlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageError_UnwrapsToSentinel(t *testing.T) {
	err := &StageError{Stage: StageStaging, Table: "Orders", Err: fmt.Errorf("write RAW_Orders: %w", ErrStagingWrite)}

	assert.True(t, errors.Is(err, ErrStagingWrite))
	assert.False(t, errors.Is(err, ErrKillFill))
	assert.Contains(t, err.Error(), "Orders")
	assert.Contains(t, err.Error(), "staging")
}

func TestMissingColumnError_Is(t *testing.T) {
	err := fmt.Errorf("reconcile: %w", &MissingColumnError{Columns: []string{"a", "b"}})

	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "a, b")

	var mce *MissingColumnError
	assert.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{"a", "b"}, mce.Columns)
}

func TestCoercionError_ListsFailures(t *testing.T) {
	err := &CoercionError{Failures: []ColumnFailure{
		{Column: "amount", Type: "decimal", Err: errors.New("unsupported value type map[string]int")},
	}}

	assert.True(t, errors.Is(err, ErrCoercion))
	assert.Contains(t, err.Error(), "amount (decimal)")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config", fmt.Errorf("x: %w", ErrInvalidConfig), ExitConfigError},
		{"secret", ErrSecretNotFound, ExitConfigError},
		{"connection", ErrConnection, ExitConnectionError},
		{"schema", &StageError{Stage: StageResolve, Err: ErrSchemaResolution}, ExitSchemaError},
		{"missing", &StageError{Stage: StageCoerce, Err: &MissingColumnError{Columns: []string{"x"}}}, ExitDataError},
		{"killfill", &StageError{Stage: StageKillFill, Err: ErrKillFill}, ExitLoadFailed},
		{"deferred", ErrNotImplemented, ExitNotImplemented},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
