package handlers

import (
	"net/http"
	"time"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"
	"cctv-monitoring/be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users    *repositories.UserRepository
	roles    *repositories.RoleRepository
	importer *services.UserImportService
	logger   *zap.Logger
}

func NewUserHandler(users *repositories.UserRepository, roles *repositories.RoleRepository,
	importer *services.UserImportService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		roles:    roles,
		importer: importer,
		logger:   logger.Named("users"),
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	NIP      *int64 `json:"nip"`
	Password string `json:"password" binding:"required,min=6"`
	RoleID   uint   `json:"role_id" binding:"required"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	NIP      *int64  `json:"nip"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	RoleID   *uint   `json:"role_id"`
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if _, err := h.roles.GetByID(ctx, req.RoleID); err != nil {
		respondLookupError(c, err, "Role")
		return
	}
	taken, err := h.users.Taken(ctx, req.Username, req.NIP, 0)
	if err != nil {
		h.logger.Error("Failed to check username", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or NIP already in use"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		Name:     req.Name,
		Username: req.Username,
		NIP:      req.NIP,
		Password: hash,
		RoleID:   req.RoleID,
	}
	if err := h.users.Create(ctx, &user); err != nil {
		h.logger.Error("Failed to create user", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	created, err := h.users.GetByID(ctx, user.ID)
	if err != nil {
		respondLookupError(c, err, "User")
		return
	}
	h.logger.Info("User created", zap.Uint("user_id", created.ID), zap.String("username", created.Username))
	c.JSON(http.StatusCreated, newUserResponse(created))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		respondLookupError(c, err, "User")
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.NIP != nil {
		user.NIP = req.NIP
	}
	if req.RoleID != nil && *req.RoleID != user.RoleID {
		if _, err := h.roles.GetByID(ctx, *req.RoleID); err != nil {
			respondLookupError(c, err, "Role")
			return
		}
		user.RoleID = *req.RoleID
	}

	taken, err := h.users.Taken(ctx, user.Username, user.NIP, user.ID)
	if err != nil {
		h.logger.Error("Failed to check username", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or NIP already in use"})
		return
	}

	if err := h.users.UpdateProfile(ctx, user); err != nil {
		h.logger.Error("Failed to update user", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			h.logger.Error("Failed to hash password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		if err := h.users.UpdatePassword(ctx, id, hash); err != nil {
			h.logger.Error("Failed to update password", zap.Uint("user_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	updated, err := h.users.GetByID(ctx, id)
	if err != nil {
		respondLookupError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, newUserResponse(updated))
}

// DeleteUser soft deletes a user. Deleted users stop receiving incident
// notifications. Admins cannot delete their own account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	found, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) ExportUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export users"})
		return
	}

	workbook, err := services.BuildUserWorkbook(users)
	if err != nil {
		h.logger.Error("Failed to build user workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export users"})
		return
	}
	sendWorkbook(c, workbook, services.ExportFilename("Users", time.Now()), h.logger)
}

func (h *UserHandler) ImportUsers(c *gin.Context) {
	src, ok := openUpload(c)
	if !ok {
		return
	}
	defer src.Close()

	rows, err := services.ParseUserImport(src)
	if err != nil {
		respondImportError(c, err, h.logger)
		return
	}

	summary, err := h.importer.Import(c.Request.Context(), rows)
	if err != nil {
		respondImportError(c, err, h.logger)
		return
	}

	h.logger.Info("Users imported",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
	)
	c.JSON(http.StatusOK, summary)
}
