package http

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/usecases"
)

//go:embed static/index.html
var indexHTML []byte

// Index serves the single page dashboard.
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// GetConfig returns the client's bot settings with today's stats.
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, stats, err := h.Dashboard.GetConfig(c.Request.Context(), clientIDQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"config": cfg, "stats": stats})
}

func (h *Handler) SaveConfig(c *gin.Context) {
	var in usecases.ConfigUpdate
	if !bindJSON(c, &in) {
		return
	}
	if err := h.Dashboard.SaveConfig(c.Request.Context(), in, requestMeta(c)); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"saved": true})
}

func (h *Handler) BroadcastAudience(c *gin.Context) {
	members, err := h.Broadcast.Audience(c.Request.Context(), clientIDQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"members": members, "total": len(members)})
}

func (h *Handler) SendBroadcast(c *gin.Context) {
	var req usecases.BroadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Phones) > MaxPhones {
		fail(c, http.StatusBadRequest, "Too many phones")
		return
	}
	req.Message = TruncateString(SanitizeString(req.Message), MaxMessageLength)

	res, err := h.Broadcast.Send(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// RunSetup reports failures with their text, since it is an operator tool.
func (h *Handler) RunSetup(c *gin.Context) {
	res, err := h.Setup.Run(c.Request.Context())
	if err != nil {
		h.log.Error("setup failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *Handler) SendChat(c *gin.Context) {
	var req struct {
		Message  string         `json:"message"`
		ClientID string         `json:"clientId"`
		Niche    entities.Niche `json:"niche"`
	}
	if !bindJSON(c, &req) {
		return
	}
	msg := TruncateString(SanitizeString(req.Message), MaxMessageLength)
	if msg == "" {
		fail(c, http.StatusBadRequest, "Mensagem é obrigatória")
		return
	}
	res, err := h.Chat.Send(c.Request.Context(), msg, req.ClientID, req.Niche)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	rows, err := h.Analytics.Daily(c.Request.Context(), clientIDQuery(c), queryInt(c, "days", 7))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, rows)
}

func (h *Handler) GetAudit(c *gin.Context) {
	rows, err := h.Analytics.Audit(c.Request.Context(), clientIDQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, rows)
}

func (h *Handler) ListNiches(c *gin.Context) {
	ok(c, http.StatusOK, entities.AllNiches)
}
