package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CallerAttrKey はレコードの発生箇所 (file:line) を記録する属性キーです。
const CallerAttrKey = "caller"

// SetupLogger はライブラリ標準の JSON ロガーを slog のデフォルトとして
// 設定します。各レコードには短い呼び出し位置が付き、エラー値を含む
// レコードには ErrFmtHandler がスタックトレース属性を付加します。
func SetupLogger(loglevel string) {
	handler := slog.NewJSONHandler(os.Stdout, handlerOptions(ToLogLevel(loglevel)))
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			// source 構造体は冗長なので file:line に畳む
			if attr.Key == slog.SourceKey {
				if src, ok := attr.Value.Any().(*slog.Source); ok {
					return slog.String(CallerAttrKey,
						fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
}

// ToLogLevel は文字列のログレベルを slog.Level へ変換します。
// 未知のレベルは設定ミスなので panic します。
func ToLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
}

const (
	// ErrAttrKey is the attribute key ErrFmtHandler watches for error values.
	ErrAttrKey = "error"

	// StacktraceAttrKey is the attribute key the extracted stacktrace is
	// recorded under.
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr はエラーを slog 属性として渡すためのヘルパーです。
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
