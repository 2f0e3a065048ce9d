// Package logs builds the structured loggers used for execution traces.
package logs

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Level is shared by every logger built by New.
var Level = new(slog.LevelVar)

// New returns a logger writing text records to w, fanned out to any
// extra handlers. A nil w drops the text output.
func New(w io.Writer, extra ...slog.Handler) *slog.Logger {
	var handlers []slog.Handler

	if w != nil {
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level,
		}))
	}

	handlers = append(handlers, extra...)

	return slog.New(slogmulti.Fanout(handlers...))
}

// JSON returns a handler writing one JSON record per line to w, at the
// shared level.
func JSON(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: Level,
	})
}
