package handlers

import (
	"net/http"
	"strconv"
	"time"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CameraHandler struct {
	cameras   *repositories.CameraRepository
	locations *repositories.LocationRepository
	streams   *services.StreamService
	importer  *services.CameraImportService
	logger    *zap.Logger
}

func NewCameraHandler(cameras *repositories.CameraRepository, locations *repositories.LocationRepository,
	streams *services.StreamService, importer *services.CameraImportService, logger *zap.Logger) *CameraHandler {
	return &CameraHandler{
		cameras:   cameras,
		locations: locations,
		streams:   streams,
		importer:  importer,
		logger:    logger.Named("cameras"),
	}
}

// CreateCameraRequest creates an IP camera with a generated stream key, or
// an analog camera without one when Analog is set.
type CreateCameraRequest struct {
	Name       string `json:"name" binding:"required"`
	IPAddress  string `json:"ip_address" binding:"required,ip"`
	LocationID uint   `json:"location_id" binding:"required"`
	Analog     bool   `json:"analog"`
}

type UpdateCameraRequest struct {
	Name       *string `json:"name"`
	IPAddress  *string `json:"ip_address" binding:"omitempty,ip"`
	LocationID *uint   `json:"location_id"`
}

func (h *CameraHandler) GetCameras(c *gin.Context) {
	var locationID uint
	if raw := c.Query("location_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location_id"})
			return
		}
		locationID = uint(id)
	}

	cameras, err := h.cameras.List(c.Request.Context(), locationID)
	if err != nil {
		h.logger.Error("Failed to list cameras", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cameras"})
		return
	}

	c.JSON(http.StatusOK, cameras)
}

func (h *CameraHandler) GetCamera(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	camera, err := h.cameras.GetByID(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, err, "Camera")
		return
	}

	c.JSON(http.StatusOK, camera)
}

func (h *CameraHandler) CreateCamera(c *gin.Context) {
	var req CreateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.locations.GetByID(c.Request.Context(), req.LocationID); err != nil {
		respondLookupError(c, err, "Location")
		return
	}

	camera := models.Camera{
		Name:       req.Name,
		IPAddress:  req.IPAddress,
		LocationID: req.LocationID,
	}
	if !req.Analog {
		streamKey := services.NewStreamKey(req.LocationID)
		camera.StreamKey = &streamKey
	}

	if err := h.cameras.Create(c.Request.Context(), &camera); err != nil {
		h.logger.Error("Failed to create camera", zap.String("ip_address", req.IPAddress), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create camera"})
		return
	}

	c.JSON(http.StatusCreated, camera)
}

func (h *CameraHandler) UpdateCamera(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	camera, err := h.cameras.GetByID(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, err, "Camera")
		return
	}

	if req.Name != nil {
		camera.Name = *req.Name
	}
	if req.IPAddress != nil {
		camera.IPAddress = *req.IPAddress
	}
	if req.LocationID != nil && *req.LocationID != camera.LocationID {
		if _, err := h.locations.GetByID(c.Request.Context(), *req.LocationID); err != nil {
			respondLookupError(c, err, "Location")
			return
		}
		camera.LocationID = *req.LocationID
	}

	if err := h.cameras.UpdateDetails(c.Request.Context(), camera); err != nil {
		h.logger.Error("Failed to update camera", zap.Uint("cctv_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update camera"})
		return
	}

	updated, err := h.cameras.GetByID(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, err, "Camera")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CameraHandler) DeleteCamera(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	found, err := h.cameras.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to delete camera", zap.Uint("cctv_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete camera"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Camera deleted successfully"})
}

// GetStreamURL registers the camera with the relay when needed and returns
// its HLS playlist URL.
func (h *CameraHandler) GetStreamURL(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	camera, err := h.cameras.GetByID(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, err, "Camera")
		return
	}
	if camera.StreamKey == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Camera has no stream key"})
		return
	}

	stream := h.streams.StreamFor(c.Request.Context(), *camera)
	if !stream.Configured {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to configure MediaMTX stream"})
		return
	}

	c.JSON(http.StatusOK, stream)
}

func (h *CameraHandler) ImportCameras(c *gin.Context) {
	src, ok := openUpload(c)
	if !ok {
		return
	}
	defer src.Close()

	rows, err := services.ParseCameraImport(src)
	if err != nil {
		respondImportError(c, err, h.logger)
		return
	}

	summary, err := h.importer.Import(c.Request.Context(), rows)
	if err != nil {
		respondImportError(c, err, h.logger)
		return
	}

	h.logger.Info("Cameras imported",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
	)
	c.JSON(http.StatusOK, summary)
}

// ExportCameras returns every camera in the import layout.
func (h *CameraHandler) ExportCameras(c *gin.Context) {
	cameras, err := h.cameras.ListForExport(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list cameras for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export cameras"})
		return
	}

	workbook, err := services.BuildCameraWorkbook(cameras)
	if err != nil {
		h.logger.Error("Failed to build camera workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export cameras"})
		return
	}
	sendWorkbook(c, workbook, services.ExportFilename("Cctvs", time.Now()), h.logger)
}
