package httpapi

import (
	"crypto/subtle"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketdesk/internal/model"
	"ticketdesk/internal/shared"
)

const (
	authCookie      = "auth-token"
	authCookieValue = "user-1.exp.signature"
)

type loginPayload struct {
	Username *string `json:"username" binding:"required"`
	Pwd      *string `json:"pwd" binding:"required"`
}

type createTicketPayload struct {
	Title *string `json:"title" binding:"required"`
}

// invalidBody answers a body that could not be decoded. It is a boundary
// rejection and never reaches the Responder.
func invalidBody(c *gin.Context, err error) {
	c.String(http.StatusUnprocessableEntity, "invalid request body: %v", err)
}

func (h *handler) apiLogin(c *gin.Context) {
	var p loginPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		invalidBody(c, err)
		return
	}
	if !equal(*p.Username, h.login.Username) || !equal(*p.Pwd, h.login.Password) {
		h.fail(c, shared.ErrLoginFail)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, authCookieValue, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"result": gin.H{"success": true}})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (h *handler) createTicket(c *gin.Context) {
	var p createTicketPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		invalidBody(c, err)
		return
	}
	t, err := h.mc.CreateTicket(c.Request.Context(), model.TicketForCreate{Title: *p.Title})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) listTickets(c *gin.Context) {
	tickets, err := h.mc.ListTickets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *handler) deleteTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid ticket id %q", c.Param("id"))
		return
	}
	t, err := h.mc.DeleteTicket(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) hello(c *gin.Context) {
	greet(c, c.DefaultQuery("name", "World!"))
}

func (h *handler) hello2(c *gin.Context) {
	greet(c, c.Param("name"))
}

func greet(c *gin.Context, name string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("Hello <strong> "+html.EscapeString(name)+" </strong>"))
}
