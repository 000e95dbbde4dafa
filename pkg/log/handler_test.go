package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

func handlerRecord(t *testing.T, log func(*slog.Logger)) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(WrapErrorContextHandler(slog.NewJSONHandler(&buf, nil)))
	log(logger)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestErrorContextHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantParam string
		wantStack bool
	}{
		{
			name:      "configuration error",
			err:       errors.NewConfigurationError("binary", "must precede multiclass", 3),
			wantCode:  ErrorInvalidConfig,
			wantParam: "binary",
			wantStack: true,
		},
		{
			name:      "wrapped shape mismatch",
			err:       errors.Wrap(errors.NewShapeMismatchError("compute", []int{2, 4}, []int{2, 3}, ""), "eval"),
			wantCode:  ErrorShapeMismatch,
			wantStack: true,
		},
		{
			name:      "invalid label",
			err:       errors.NewValueError("compute", "label 7"),
			wantCode:  ErrorInvalidLabel,
			wantStack: true,
		},
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := handlerRecord(t, func(l *slog.Logger) {
				l.Error("failed", ErrAttr(tt.err))
			})

			code, ok := entry[ErrorCodeKey]
			if tt.wantCode == "" {
				assert.False(t, ok)
			} else {
				assert.Equal(t, tt.wantCode, code)
			}

			param, ok := entry[ErrorParamKey]
			if tt.wantParam == "" {
				assert.False(t, ok)
			} else {
				assert.Equal(t, tt.wantParam, param)
			}

			stack, ok := entry[StacktraceAttrKey].(string)
			assert.Equal(t, tt.wantStack, ok && stack != "")
		})
	}
}

func TestErrorContextHandlerKeepsAttrs(t *testing.T) {
	entry := handlerRecord(t, func(l *slog.Logger) {
		l.With(OperationKey, OperationCompute).Info("done", LossKey, 0.5)
	})
	assert.Equal(t, OperationCompute, entry[OperationKey])
	assert.Equal(t, 0.5, entry[LossKey])
	assert.NotContains(t, entry, ErrorCodeKey)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrorNumerical, ErrorCode(errors.NewNumericalInstabilityError("compute", []float64{0})))
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorCode(errors.ErrEmptyData))
}
