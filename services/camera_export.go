package services

import (
	"cctv-monitoring/be/models"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

const cameraExportSheet = "Cctvs"

// The export header matches what ParseCameraImport accepts, so an exported
// file can be edited and imported back.
var cameraExportHeader = []interface{}{"Titik Letak", "Ip Address", "Server Monitoring"}

func BuildCameraWorkbook(cameras []models.MonitoredCamera) (*excelize.File, error) {
	rows := lo.Map(cameras, func(c models.MonitoredCamera, _ int) []interface{} {
		return []interface{}{c.Name, c.IPAddress, c.LocationName}
	})
	return buildTable(cameraExportSheet, cameraExportHeader, rows)
}
