package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	apperrors "github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/models"
	"github.com/stackmates/stackmates/internal/output"
)

// InvalidTokenMessage is shown when GitHub rejects a login token
const InvalidTokenMessage = "Invalid token. Please check your token and try again."

const defaultSearchLimit = 10

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "Service is running",
	})
}

// SessionHandler handles login state and the feed
type SessionHandler struct {
	session Session
	logger  logrus.FieldLogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sess Session, logger logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{session: sess, logger: logger}
}

// LoginRequest is the body of POST /api/v1/login
type LoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// DevelopersResponse is the body of GET /api/v1/developers
type DevelopersResponse struct {
	Outcome       models.Outcome       `json:"outcome,omitempty"`
	LastRefreshed time.Time            `json:"last_refreshed"`
	Developers    []models.MatchRecord `json:"developers"`
}

// State handles GET /api/v1/session
func (h *SessionHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

// Login handles POST /api/v1/login
func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must contain a token",
			Details: err.Error(),
		})
		return
	}

	if err := h.session.Login(c.Request.Context(), req.Token); err != nil {
		switch {
		case apperrors.IsAuth(err):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: InvalidTokenMessage,
			})
		case apperrors.IsValidation(err):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
		default:
			h.logger.WithError(err).Error("login failed")
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "github_unavailable",
				Message: "Could not reach GitHub to verify the token",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, h.session.State())
}

// Logout handles POST /api/v1/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(); err != nil {
		// state is already cleared; only the stored token may linger
		h.logger.WithError(err).Warn("failed to delete stored token")
	}
	c.JSON(http.StatusOK, h.session.State())
}

// Refresh handles POST /api/v1/refresh
func (h *SessionHandler) Refresh(c *gin.Context) {
	if !h.session.State().IsAuthenticated {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "not_authenticated",
			Message: "Log in before refreshing the feed",
		})
		return
	}

	result := h.session.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, output.FeedFromResult(result))
}

// Developers handles GET /api/v1/developers
func (h *SessionHandler) Developers(c *gin.Context) {
	state := h.session.State()
	c.JSON(http.StatusOK, DevelopersResponse{
		Outcome:       state.LastOutcome,
		LastRefreshed: state.LastRefreshed,
		Developers:    state.Developers,
	})
}

// UserHandler handles profile and search lookups
type UserHandler struct {
	session Session
}

// NewUserHandler creates a new user handler
func NewUserHandler(sess Session) *UserHandler {
	return &UserHandler{session: sess}
}

// Profile handles GET /api/v1/users/:handle
func (h *UserHandler) Profile(c *gin.Context) {
	handle := c.Param("handle")

	profile, err := h.session.Profile(c.Request.Context(), handle)
	if err != nil {
		switch {
		case apperrors.IsAuth(err):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "not_authenticated",
				Message: "Log in to view profiles",
			})
		case apperrors.IsNotFound(err):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "user_not_found",
				Message: "User not found",
				Details: handle,
			})
		default:
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "github_error",
				Message: "Failed to load profile",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Search handles GET /api/v1/search?q=&limit=
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Query parameter q is required",
		})
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	users, err := h.session.Search(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "github_error",
			Message: "Search failed",
			Details: err.Error(),
		})
		return
	}
	if users == nil {
		users = []models.AccountProfile{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
