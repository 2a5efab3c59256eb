package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"whatsbot/internal/usecases"
)

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.Clients.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, clients)
}

func (h *Handler) CreateClient(c *gin.Context) {
	var p usecases.ClientPatch
	if !bindJSON(c, &p) {
		return
	}
	client, err := h.Clients.Create(c.Request.Context(), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	var p usecases.ClientPatch
	if !bindJSON(c, &p) {
		return
	}
	client, err := h.Clients.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, client)
}

// ClientQRCode returns a PNG that opens a chat with the client's number.
func (h *Handler) ClientQRCode(c *gin.Context) {
	png, err := h.Clients.ShareQRCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Device sessions

func (h *Handler) devices(c *gin.Context) (Devices, bool) {
	if h.Devices == nil {
		fail(c, http.StatusServiceUnavailable, "Device sessions are disabled")
		return nil, false
	}
	return h.Devices, true
}

// ConnectDevice starts pairing; the QR becomes available shortly after.
func (h *Handler) ConnectDevice(c *gin.Context) {
	devices, enabled := h.devices(c)
	if !enabled {
		return
	}
	clientID := c.Param("id")
	if _, err := h.Clients.Get(c.Request.Context(), clientID); err != nil {
		h.handleError(c, err)
		return
	}
	if _, err := devices.Connect(c.Request.Context(), clientID); err != nil {
		h.log.Error("connect device", zap.String("client_id", clientID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to connect device")
		return
	}
	ok(c, http.StatusOK, devices.Status(clientID))
}

func (h *Handler) DeviceStatus(c *gin.Context) {
	devices, enabled := h.devices(c)
	if !enabled {
		return
	}
	ok(c, http.StatusOK, devices.Status(c.Param("id")))
}

func (h *Handler) DeviceQR(c *gin.Context) {
	devices, enabled := h.devices(c)
	if !enabled {
		return
	}
	code := devices.QR(c.Param("id"))
	if code == "" {
		fail(c, http.StatusNotFound, "No QR code pending")
		return
	}
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) LogoutDevice(c *gin.Context) {
	devices, enabled := h.devices(c)
	if !enabled {
		return
	}
	clientID := c.Param("id")
	// The session is dropped even when the unlink call fails.
	if err := devices.Logout(c.Request.Context(), clientID); err != nil {
		h.log.Warn("device logout", zap.String("client_id", clientID), zap.Error(err))
	}
	ok(c, http.StatusOK, gin.H{"status": "logged_out"})
}
