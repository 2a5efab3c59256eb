package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsbot/internal/infrastructure"
)

type integrationsView struct {
	WhatsAppCloud bool         `json:"whatsappCloud"`
	AI            aiView       `json:"ai"`
	Telegram      telegramView `json:"telegram"`
	Devices       devicesView  `json:"devices"`
}

type aiView struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

type telegramView struct {
	Enabled bool   `json:"enabled"`
	Bot     string `json:"bot,omitempty"`
}

type devicesView struct {
	Enabled  bool                          `json:"enabled"`
	Sessions []infrastructure.DeviceStatus `json:"sessions"`
}

// GetIntegrations reports which outbound services are wired.
func (h *Handler) GetIntegrations(c *gin.Context) {
	in := h.Integrations
	view := integrationsView{
		WhatsAppCloud: in.CloudConfigured,
		AI:            aiView{Provider: in.AIProvider, Model: in.AIModel},
		Telegram:      telegramView{Enabled: in.TelegramBot != "", Bot: in.TelegramBot},
		Devices:       devicesView{Sessions: []infrastructure.DeviceStatus{}},
	}
	if view.AI.Provider == "" {
		view.AI.Provider = "none"
	}
	if h.Devices != nil {
		view.Devices.Enabled = true
		view.Devices.Sessions = h.Devices.List()
	}
	ok(c, http.StatusOK, view)
}
