package handlers

import (
	"net/http"
	"strconv"
	"time"

	"cctv-monitoring/be/middleware"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HistoryHandler struct {
	histories *repositories.HistoryRepository
	logger    *zap.Logger
}

func NewHistoryHandler(histories *repositories.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		histories: histories,
		logger:    logger.Named("histories"),
	}
}

type MarkServicedRequest struct {
	Note string `json:"note"`
}

func (h *HistoryHandler) GetHistories(c *gin.Context) {
	var filter repositories.HistoryFilter
	if raw := c.Query("camera_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid camera_id"})
			return
		}
		filter.CameraID = uint(id)
	}
	if raw := c.Query("service"); raw != "" {
		service, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service"})
			return
		}
		filter.Service = &service
	}

	histories, err := h.histories.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list histories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch histories"})
		return
	}
	c.JSON(http.StatusOK, histories)
}

// MarkServiced closes an incident by hand, e.g. after a repair visit.
func (h *HistoryHandler) MarkServiced(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req MarkServicedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history, err := h.histories.MarkServiced(c.Request.Context(), id, req.Note)
	if err != nil {
		respondLookupError(c, err, "History")
		return
	}
	c.JSON(http.StatusOK, history)
}

// ExportHistories streams an xlsx report of incidents opened between
// start_date and end_date, both inclusive.
func (h *HistoryHandler) ExportHistories(c *gin.Context) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("start_date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("end_date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date is before start_date"})
		return
	}

	end := to.AddDate(0, 0, 1)
	rows, err := h.histories.List(c.Request.Context(), repositories.HistoryFilter{From: &from, To: &end})
	if err != nil {
		h.logger.Error("Failed to load histories for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export histories"})
		return
	}

	report := services.HistoryReport{
		From:       from,
		To:         to,
		ExportedBy: c.GetString(middleware.ContextUsername),
		ExportedAt: time.Now(),
		Rows:       rows,
	}
	workbook, err := services.BuildHistoryWorkbook(report)
	if err != nil {
		h.logger.Error("Failed to build history workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export histories"})
		return
	}
	sendWorkbook(c, workbook, report.Filename(), h.logger)
}
