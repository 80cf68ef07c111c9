package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"gorm.io/gorm"
)

const (
	MessageUsernameTaken   = "Username is already taken."
	MessageMissingFields   = "Username and password are required."
	MessageMissingPassword = "Password is required."
	MessageUsernameTooLong = "Username is too long."

	maxUsernameLength = 64
)

var (
	errNotSelf     = errors.New("target is not the requester")
	errMissingUser = errors.New("user not found")
)

// Handler handles user account requests
type Handler struct {
	db         *gorm.DB
	tokens     *auth.TokenService
	bcryptCost int
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, tokens *auth.TokenService, bcryptCost int) *Handler {
	return &Handler{db: db, tokens: tokens, bcryptCost: bcryptCost}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdatePasswordRequest represents the password change request body
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	Username string `json:"username"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an account. The username "public" is reserved.
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error or username taken"
// @Router /users [post]
func (h *Handler) Register(c *gin.Context) {
	const op = "users.Register"

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, err, MessageMissingFields))
		return
	}

	// required accepts whitespace
	username := strings.TrimSpace(req.Username)
	if username == "" {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, errors.New("blank field"), MessageMissingFields))
		return
	}
	if len(username) > maxUsernameLength {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, errors.New("username too long"), MessageUsernameTooLong))
		return
	}
	if strings.EqualFold(username, models.PublicUsername) {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, errors.New("reserved username"), MessageUsernameTaken))
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, errors.New("duplicate username"), MessageUsernameTaken))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	user := models.User{Username: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.WriteError(c, errx.Msg(op, errx.Invalid, err, MessageUsernameTaken))
			return
		}
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	c.JSON(http.StatusCreated, UserResponse{Username: user.Username})
}

// UpdatePassword changes the requester's own password
// @Summary Change password
// @Description Change your own password. The key is your user id or username.
// @Tags users
// @Accept json
// @Produce json
// @Param key path string true "User id or username"
// @Param request body UpdatePasswordRequest true "New password"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Password is required."
// @Failure 401 {object} map[string]string "Unauthorized access."
// @Security BearerAuth
// @Router /users/{key} [patch]
func (h *Handler) UpdatePassword(c *gin.Context) {
	const op = "users.UpdatePassword"

	user, err := h.self(c, op)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.WriteError(c, errx.Msg(op, errx.Invalid, err, MessageMissingPassword))
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(&user).Update("password_hash", hash).Error; err != nil {
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	c.JSON(http.StatusOK, UserResponse{Username: user.Username})
}

// Delete removes the requester's own account and its links
// @Summary Delete account
// @Description Delete your own account together with every link it owns.
// @Tags users
// @Produce json
// @Param key path string true "User id or username"
// @Success 200 {object} map[string]string "User deleted"
// @Failure 401 {object} map[string]string "Unauthorized access."
// @Security BearerAuth
// @Router /users/{key} [delete]
func (h *Handler) Delete(c *gin.Context) {
	const op = "users.Delete"

	user, err := h.self(c, op)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	// links never change owner, so they go with the account
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Link{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		httpx.WriteError(c, errx.E(op, errx.Internal, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// self loads the user named by :key, provided it is the requester.
func (h *Handler) self(c *gin.Context, op string) (models.User, error) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		return models.User{}, errx.E(op, errx.Unauthorized, errNotSelf)
	}

	key := c.Param("key")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil && id > 0 {
		if uint(id) != identity.UserID {
			return models.User{}, errx.E(op, errx.Unauthorized, errNotSelf)
		}
	} else if key != identity.Username {
		return models.User{}, errx.E(op, errx.Unauthorized, errNotSelf)
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, identity.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errx.E(op, errx.Unauthorized, errMissingUser)
		}
		return models.User{}, errx.E(op, errx.Internal, err)
	}
	if user.IsPublic() || user.Username != identity.Username {
		return models.User{}, errx.E(op, errx.Unauthorized, errNotSelf)
	}
	return user, nil
}

// RegisterRoutes registers user routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/users", h.Register)

	self := rg.Group("/users", auth.RequireAuth(h.tokens))
	self.PATCH("/:key", h.UpdatePassword)
	self.DELETE("/:key", h.Delete)
}
