// Package http exposes the REST API, the WhatsApp webhook and the embedded
// dashboard.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"whatsbot/internal/entities"
	"whatsbot/internal/infrastructure"
	"whatsbot/internal/usecases"
)

// Devices is the subset of the device manager the API drives.
type Devices interface {
	Connect(ctx context.Context, clientID string) (*infrastructure.DeviceSession, error)
	Status(clientID string) infrastructure.DeviceStatus
	QR(clientID string) string
	Logout(ctx context.Context, clientID string) error
	List() []infrastructure.DeviceStatus
}

// Integrations describes the configured outbound services.
type Integrations struct {
	CloudConfigured bool
	AIProvider      string
	AIModel         string
	TelegramBot     string
}

// Deps wires the handlers. Devices is nil when device sessions are disabled.
type Deps struct {
	Messages      *usecases.MessageService
	Clients       *usecases.ClientUsecase
	Members       *usecases.MemberUsecase
	Conversations *usecases.ConversationUsecase
	Templates     *usecases.TemplateUsecase
	Flows         *usecases.FlowUsecase
	Dashboard     *usecases.DashboardUsecase
	Broadcast     *usecases.BroadcastUsecase
	Setup         *usecases.SetupUsecase
	Chat          *usecases.ChatUsecase
	Auth          *usecases.AuthUsecase
	Analytics     *usecases.AnalyticsUsecase
	Reports       *usecases.ReportUsecase
	Devices       Devices
	Integrations  Integrations

	VerifyToken string
	AppSecret   string

	RateLimit rate.Limit
	RateBurst int

	Log *zap.Logger
}

type Handler struct {
	Deps
	log *zap.Logger
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Deps: d, log: log.Named("http")}
}

func SetupRoutes(r *gin.Engine, d Deps, middleware *Middleware) {
	h := NewHandler(d)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)

	r.GET("/api/webhook/whatsapp", h.VerifyWebhook)
	r.POST("/api/webhook/whatsapp", h.ReceiveWebhook)
	r.POST("/api/auth/login", h.Login)

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	if d.RateLimit > 0 {
		api.Use(middleware.RateLimitPerUser(d.RateLimit, d.RateBurst))
	}
	{
		api.GET("/members", h.ListMembers)
		api.GET("/members/export", h.ExportMembers)
		api.POST("/members", h.CreateMember)
		api.PUT("/members/:id", h.UpdateMember)
		api.DELETE("/members/:id", h.DeleteMember)

		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/export", h.ExportConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.PUT("/conversations/:id", h.UpdateConversation)
		api.POST("/conversations/:id/reply", h.ReplyConversation)

		api.GET("/templates", h.ListTemplates)
		api.POST("/templates", h.CreateTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)
		api.POST("/templates/:id/preview", h.PreviewTemplate)

		api.GET("/flows", h.ListFlows)
		api.POST("/flows", h.CreateFlow)
		api.PUT("/flows/:id", h.UpdateFlow)
		api.DELETE("/flows/:id", h.DeleteFlow)

		api.GET("/config", h.GetConfig)
		api.POST("/config", h.SaveConfig)

		api.GET("/clients", h.ListClients)
		api.POST("/clients", h.CreateClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.GET("/clients/:id/qrcode", h.ClientQRCode)
		api.POST("/clients/:id/device/connect", h.ConnectDevice)
		api.GET("/clients/:id/device", h.DeviceStatus)
		api.GET("/clients/:id/device/qr", h.DeviceQR)
		api.POST("/clients/:id/device/logout", h.LogoutDevice)

		api.GET("/broadcast", h.BroadcastAudience)
		api.POST("/broadcast", h.SendBroadcast)

		api.GET("/setup", h.RunSetup)
		api.POST("/setup", h.RunSetup)
		api.POST("/chat", h.SendChat)

		api.GET("/analytics", h.GetAnalytics)
		api.GET("/audit", h.GetAudit)
		api.GET("/integrations", h.GetIntegrations)
		api.GET("/niches", h.ListNiches)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(entities.RoleAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// handleError maps domain errors onto the envelope. Anything unexpected is
// logged and answered with a generic 500.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		fail(c, http.StatusNotFound, publicMessage(err, entities.ErrNotFound))
	case errors.Is(err, entities.ErrDuplicate):
		fail(c, http.StatusBadRequest, publicMessage(err, entities.ErrDuplicate))
	case errors.Is(err, entities.ErrInvalid):
		fail(c, http.StatusBadRequest, publicMessage(err, entities.ErrInvalid))
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, "Erro interno do servidor")
	}
}

// publicMessage returns the detail that follows the sentinel in a wrapped
// error chain, or the sentinel text itself.
func publicMessage(err, sentinel error) string {
	s := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.LastIndex(s, prefix); i >= 0 {
		return s[i+len(prefix):]
	}
	return sentinel.Error()
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func requestMeta(c *gin.Context) usecases.RequestMeta {
	return usecases.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func clientIDQuery(c *gin.Context) string {
	if id := c.Query("clientId"); id != "" {
		return id
	}
	return entities.DefaultClientID
}
