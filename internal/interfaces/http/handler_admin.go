package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsbot/internal/usecases"
)

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, usecases.ErrInvalidCredentials) {
		h.log.Info("login rejected", zap.String("username", req.Username), zap.String("ip", c.ClientIP()))
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": token})
}

// ListUsers returns every operator account.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Auth.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !ValidUsername(req.Username) {
		fail(c, http.StatusBadRequest, "Invalid username")
		return
	}
	user, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == c.GetString(ctxUserID) {
		fail(c, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if err := h.Auth.DeleteUser(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}
