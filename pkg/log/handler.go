package log

import (
	"context"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// ErrorContextHandler は ErrAttr で渡されたエラーから、スタックトレースと
// エラーコード（INVALID_CONFIG など）を取り出して属性として追加する slog ハンドラ。
type ErrorContextHandler struct {
	next slog.Handler
}

// WrapErrorContextHandler wraps next with ErrorContextHandler.
func WrapErrorContextHandler(next slog.Handler) slog.Handler {
	return &ErrorContextHandler{next: next}
}

func (h *ErrorContextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrorContextHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			err, _ = attr.Value.Any().(error)
			return false
		}
		return true
	})
	if err == nil {
		return h.next.Handle(ctx, r)
	}

	if code := ErrorCode(err); code != "" {
		r.AddAttrs(slog.String(ErrorCodeKey, code))
	}
	var cfgErr *errors.ConfigurationError
	if errors.As(err, &cfgErr) {
		r.AddAttrs(slog.String(ErrorParamKey, cfgErr.Param))
	}
	if stack := stacktraceOf(err); stack != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stack))
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrorContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrorContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ErrorContextHandler) WithGroup(g string) slog.Handler {
	return &ErrorContextHandler{next: h.next.WithGroup(g)}
}

// ErrorCode maps a tabloss error to its structured code, or "" for errors
// outside the taxonomy.
func ErrorCode(err error) string {
	var (
		cfgErr   *errors.ConfigurationError
		shapeErr *errors.ShapeMismatchError
		valErr   *errors.ValueError
		numErr   *errors.NumericalInstabilityError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ErrorInvalidConfig
	case errors.As(err, &shapeErr):
		return ErrorShapeMismatch
	case errors.As(err, &valErr):
		return ErrorInvalidLabel
	case errors.As(err, &numErr):
		return ErrorNumerical
	default:
		return ""
	}
}

// stacktraceOf は最も外側で記録されたスタックを返す。
func stacktraceOf(err error) string {
	for _, payload := range cerrors.GetAllSafeDetails(err) {
		for _, d := range payload.SafeDetails {
			if d != "" {
				return d
			}
		}
	}
	return ""
}
