package handlers

import (
	"net/http"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LocationHandler struct {
	locations *repositories.LocationRepository
	cameras   *repositories.CameraRepository
	streams   *services.StreamService
	logger    *zap.Logger
}

func NewLocationHandler(locations *repositories.LocationRepository, cameras *repositories.CameraRepository,
	streams *services.StreamService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		cameras:   cameras,
		streams:   streams,
		logger:    logger.Named("locations"),
	}
}

// LocationRequest is the body of both create and update.
type LocationRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	locations, err := h.locations.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch locations"})
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location := models.Location{Name: req.Name}
	if err := h.locations.Create(c.Request.Context(), &location); err != nil {
		h.logger.Warn("Failed to create location", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create location"})
		return
	}
	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	found, err := h.locations.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.logger.Warn("Failed to rename location", zap.Uint("location_id", id), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to update location"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}
	c.JSON(http.StatusOK, models.Location{ID: id, Name: req.Name})
}

// DeleteLocation removes a location that no longer has cameras.
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	count, err := h.cameras.CountByLocation(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to count location cameras", zap.Uint("location_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Location still has cameras", "cameras": count})
		return
	}

	found, err := h.locations.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete location", zap.Uint("location_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted successfully"})
}

// GetLocationStreams publishes every camera of the location on the relay
// and returns their playback URLs.
func (h *LocationHandler) GetLocationStreams(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.locations.GetByID(c.Request.Context(), id); err != nil {
		respondLookupError(c, err, "Location")
		return
	}

	streams, err := h.streams.LocationStreams(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to prepare location streams", zap.Uint("location_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch streams"})
		return
	}
	c.JSON(http.StatusOK, streams)
}
