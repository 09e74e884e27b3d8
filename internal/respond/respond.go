// Package respond projects application errors onto the client-visible
// outcome of a request.
package respond

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticketdesk/internal/shared"
)

// UnhandledClientError is the only failure body a client ever sees.
const UnhandledClientError = "UNHANDLED_CLIENT_ERROR"

// Outcome is a transport-agnostic failure response.
type Outcome struct {
	Status int
	Body   string
}

// Responder logs errors in full and masks them for the caller.
type Responder struct {
	log *slog.Logger
}

// New creates a Responder writing diagnostics to log.
func New(log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{log: log.With(slog.String("component", "responder"))}
}

// Respond records err with its code, kind and fields, then returns the same
// opaque outcome regardless of which error it was. The typed error found in
// the chain is logged as "detail" so its fields survive wrapping.
func (r *Responder) Respond(ctx context.Context, err error) Outcome {
	attrs := []slog.Attr{
		slog.String("code", string(shared.CodeOf(err))),
		slog.String("kind", shared.KindOf(err).String()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	} else {
		attrs = append(attrs, slog.Any("error", nil))
	}
	var coded shared.Coded
	if errors.As(err, &coded) {
		attrs = append(attrs, slog.Any("detail", coded))
	}
	r.log.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	return Outcome{Status: http.StatusInternalServerError, Body: UnhandledClientError}
}
