package handlers

import (
	"net/http"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoleHandler struct {
	roles  *repositories.RoleRepository
	logger *zap.Logger
}

func NewRoleHandler(roles *repositories.RoleRepository, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		roles:  roles,
		logger: logger.Named("roles"),
	}
}

type CreateRoleRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

func (h *RoleHandler) GetRoles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list roles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch roles"})
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.roles.GetByName(c.Request.Context(), req.Name); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Role already exists"})
		return
	}

	role := models.Role{Name: req.Name}
	if err := h.roles.Create(c.Request.Context(), &role); err != nil {
		h.logger.Error("Failed to create role", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create role"})
		return
	}
	c.JSON(http.StatusCreated, role)
}
