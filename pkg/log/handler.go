package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler は error 属性を持つレコードに cockroachdb/errors 由来の
// スタックトレースを stacktrace 属性として付加する slog ハンドラです。
// それ以外のレコードはそのまま内側のハンドラへ渡します。
type ErrFmtHandler struct {
	inner slog.Handler
}

// WrapByErrFmtHandler は任意の slog ハンドラをラップして返します。
func WrapByErrFmtHandler(h slog.Handler) slog.Handler {
	return &ErrFmtHandler{inner: h}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.inner.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			trace = stacktraceOf(err)
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return eh.inner.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{inner: eh.inner.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(name string) slog.Handler {
	return &ErrFmtHandler{inner: eh.inner.WithGroup(name)}
}

// stacktraceOf は WithStack 系の構築子が付与した安全詳細の先頭、すなわち
// スタックトレースを取り出します。トレースを持たないエラーでは空です。
func stacktraceOf(err error) string {
	if details := errors.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	return ""
}
