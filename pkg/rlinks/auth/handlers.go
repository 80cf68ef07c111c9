package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"gorm.io/gorm"
)

// MessageBadCredentials is returned for every failed login.
const MessageBadCredentials = "invalid username and/or password"

var errBadCredentials = errors.New("bad credentials")

// Handler handles authentication requests
type Handler struct {
	db     *gorm.DB
	tokens *TokenService
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, tokens *TokenService) *Handler {
	return &Handler{db: db, tokens: tokens}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the authentication response
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login handles user login
// @Summary Login
// @Description Authenticate with username and password to receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	const op = "auth.Login"

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.WriteError(c, errx.Msg(op, errx.Unauthorized, err, MessageBadCredentials))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || username == models.PublicUsername {
		httpx.WriteError(c, errx.Msg(op, errx.Unauthorized, errBadCredentials, MessageBadCredentials))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.WriteError(c, errx.Msg(op, errx.Unauthorized, errBadCredentials, MessageBadCredentials))
			return
		}
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		httpx.WriteError(c, errx.Msg(op, errx.Unauthorized, errBadCredentials, MessageBadCredentials))
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Username)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Username: user.Username})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}
