// Package httpapi exposes the ticket service over HTTP with gin.
package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"ticketdesk/internal/model"
	"ticketdesk/internal/respond"
)

// Credentials is the single demo account accepted by the login route.
type Credentials struct {
	Username string
	Password string
}

// Deps holds everything the router needs.
type Deps struct {
	Log       *slog.Logger
	Model     model.ModelController
	Responder *respond.Responder
	Login     Credentials
	StaticDir string
	// HiddenDirs are never served by the static fallback, e.g. the log directory.
	HiddenDirs     []string
	RateInterval   time.Duration
	TrustedProxies []string
}

type handler struct {
	mc    model.ModelController
	resp  *respond.Responder
	login Credentials
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	resp := d.Responder
	if resp == nil {
		resp = respond.New(log)
	}
	h := &handler{mc: d.Model, resp: resp, login: d.Login}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", slog.Any("error", err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
			h.fail(c, fmt.Errorf("panic: %v", rec))
		}),
		RequestID(),
		ResponseMapper(log.With(slog.String("component", "http"))),
	)
	if d.RateInterval > 0 {
		r.Use(NewRateLimiter(d.RateInterval).Middleware())
	}

	r.GET("/hello", h.hello)
	r.GET("/hello2/:name", h.hello2)

	api := r.Group("/api")
	api.POST("/login", h.apiLogin)
	api.POST("/tickets", h.createTicket)
	api.GET("/tickets", h.listTickets)
	api.DELETE("/tickets/:id", h.deleteTicket)

	r.NoRoute(newStaticHandler(d.StaticDir, d.HiddenDirs))

	return r
}

// fail masks err through the Responder and aborts the request.
func (h *handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	o := h.resp.Respond(c.Request.Context(), err)
	c.Abort()
	c.String(o.Status, o.Body)
}
