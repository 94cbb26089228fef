package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anbuselvan/assetsync/internal/apperr"
	"github.com/anbuselvan/assetsync/internal/models"
	"github.com/anbuselvan/assetsync/internal/service"
	"github.com/anbuselvan/assetsync/internal/utils"
)

// Handler holds the HTTP handlers for all routes
type Handler struct {
	svc    service.Service
	logger *utils.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: utils.NewLogger("api"),
	}
}

// SetupRoutes registers all routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.POST("/token", h.Login)

	authed := router.Group("", AuthMiddleware(h.svc))
	authed.GET("/users/me", h.CurrentUser)

	admin := authed.Group("", RequireAdmin())
	admin.POST("/register", h.Register)
	admin.GET("/assets/:asset_tag", h.GetAssetByTag)
	admin.PUT("/assets/:asset_tag/reassign", h.ReassignAsset)
	admin.POST("/sync/refresh", h.RefreshSync)
}

// Register creates a new user account (admin only)
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.svc.Register(c.Request.Context(), req); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			errorJSON(c, http.StatusBadRequest, "DUPLICATE_USERNAME", "Username already registered")
		case errors.Is(err, apperr.ErrValidation):
			errorJSON(c, http.StatusBadRequest, "VALIDATION", err.Error())
		default:
			h.logger.Error("register failed: %v", err)
			errorJSON(c, http.StatusInternalServerError, "INTERNAL", "Failed to create user")
		}
		return
	}

	c.JSON(http.StatusCreated, models.MessageResponse{Message: "User created successfully"})
}

// Login exchanges form-encoded credentials for a signed access token
func (h *Handler) Login(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "VALIDATION", "username and password are required")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			c.Header("WWW-Authenticate", "Bearer")
			errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect username or password")
			return
		}
		h.logger.Error("login failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "Failed to log in")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CurrentUser returns the identity bound to the presented token
func (h *Handler) CurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, models.MeResponse{
		Username: c.GetString(ContextUsername),
		Role:     c.GetString(ContextRole),
	})
}

// GetAssetByTag searches all asset tables for the tag (admin only)
func (h *Handler) GetAssetByTag(c *gin.Context) {
	tag := c.Param("asset_tag")

	records, err := h.svc.FindAssetByTag(c.Request.Context(), tag)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Asset not found")
			return
		}
		h.logger.Error("asset lookup failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	c.JSON(http.StatusOK, records)
}

// ReassignAsset applies a partial field update to the asset (admin only)
func (h *Handler) ReassignAsset(c *gin.Context) {
	tag := c.Param("asset_tag")

	var req models.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.svc.ReassignAsset(c.Request.Context(), tag, req); err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			errorJSON(c, http.StatusBadRequest, "VALIDATION", "No fields to update")
		case errors.Is(err, apperr.ErrNotFound):
			errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Asset not found")
		default:
			h.logger.Error("asset reassignment failed: %v", err)
			errorJSON(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Asset reassigned successfully"})
}

// RefreshSync exports the database back to the spreadsheet (admin only)
func (h *Handler) RefreshSync(c *gin.Context) {
	result, err := h.svc.RefreshSync(c.Request.Context())
	if err != nil {
		h.logger.Error("manual sync failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.SyncResponse{
		Message:    result.Message,
		BackupPath: result.BackupPath,
	})
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
