package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"cctv-monitoring/be/middleware"
	"cctv-monitoring/be/services"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// respondLookupError writes 404 for a missing record and 500 otherwise.
func respondLookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + strings.ToLower(what)})
}

func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// sendWorkbook streams f as an xlsx attachment and closes it.
func sendWorkbook(c *gin.Context, f *excelize.File, filename string, logger *zap.Logger) {
	defer f.Close()
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		logger.Error("Failed to write workbook", zap.String("filename", filename), zap.Error(err))
	}
}

// openUpload opens the multipart "file" field, writing 400 when it is missing.
func openUpload(c *gin.Context) (multipart.File, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, false
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, false
	}
	return src, true
}

// respondImportError writes 400 with every problem for an invalid import and
// 500 for anything else.
func respondImportError(c *gin.Context, err error, logger *zap.Logger) {
	var invalid *services.ImportValidationError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import data", "errors": invalid.Problems})
		return
	}
	logger.Error("Import failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import data"})
}
