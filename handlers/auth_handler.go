package handlers

import (
	"errors"
	"net/http"
	"time"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthHandler struct {
	users     *repositories.UserRepository
	jwtConfig config.JWTConfig
	logger    *zap.Logger
}

func NewAuthHandler(users *repositories.UserRepository, jwtConfig config.JWTConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtConfig: jwtConfig,
		logger:    logger.Named("auth"),
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	NIP       *int64     `json:"nip,omitempty"`
	RoleID    uint       `json:"role_id"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		NIP:       user.NIP,
		RoleID:    user.RoleID,
		Role:      roleName(user),
		LastLogin: user.LastLogin,
	}
}

func roleName(user *models.User) string {
	if user.Role == nil {
		return ""
	}
	return user.Role.Name
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		h.logger.Error("Failed to load user", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	tokenString, err := h.issueToken(user)
	if err != nil {
		h.logger.Error("Failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	if err := h.users.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("Failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: tokenString,
		User:  newUserResponse(user),
	})
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	expiry, err := time.ParseDuration(h.jwtConfig.Expiry)
	if err != nil || expiry <= 0 {
		expiry = 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     roleName(user),
		"exp":      time.Now().Add(expiry).Unix(),
	})
	return token.SignedString([]byte(h.jwtConfig.Secret))
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := currentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// Tokens are stateless; the client drops its copy.
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
