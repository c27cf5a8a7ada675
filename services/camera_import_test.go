package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"testing"

	"cctv-monitoring/be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func openImportDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.Location{}, &models.Camera{}))
	return db
}

func TestParseCameraImport(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Titik Letak", "Ip Address", "Server Monitoring"},
		{"Gerbang Utama", "10.0.0.1", "DVR 1"},
		{"", "", ""},
		{" Parkir ", "10.0.0.2", "DVR 2"},
	})

	rows, err := ParseCameraImport(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CameraImportRow{Line: 2, Name: "Gerbang Utama", IPAddress: "10.0.0.1", Location: "DVR 1"}, rows[0])
	assert.Equal(t, "Parkir", rows[1].Name)
	assert.Equal(t, 4, rows[1].Line)
}

func TestParseCameraImportEnglishHeaders(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Location", "Name", "IP"},
		{"DVR 1", "Lobby", "10.0.0.1"},
	})

	rows, err := ParseCameraImport(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lobby", rows[0].Name)
	assert.Equal(t, "DVR 1", rows[0].Location)
}

func TestParseCameraImportRejectsInvalidRows(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Titik Letak", "Ip Address", "Server Monitoring"},
		{"A", "not-an-ip", "DVR 1"},
		{"B", "10.0.0.2", ""},
		{"C", "10.0.0.3", "DVR 1"},
		{"D", "10.0.0.3", "DVR 1"},
		{"C", "10.0.0.4", "DVR 1"},
	})

	_, err := ParseCameraImport(buf)
	var invalid *ImportValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Problems, 4)
	assert.Contains(t, invalid.Problems[0], "row 2")
	assert.Contains(t, invalid.Problems[1], "row 3")
	assert.Contains(t, err.Error(), `duplicate ip address "10.0.0.3"`)
	assert.Contains(t, err.Error(), `duplicate name "C"`)
}

func TestParseCameraImportMissingHeader(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"Foo", "Bar"}, {"a", "b"}})

	_, err := ParseCameraImport(buf)
	var invalid *ImportValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestCameraImportUpserts(t *testing.T) {
	db := openImportDB(t)
	ctx := context.Background()

	dvr1 := models.Location{Name: "DVR 1"}
	require.NoError(t, db.Create(&dvr1).Error)
	key := "loc_1_cam_00000000"
	existing := models.Camera{Name: "Gerbang", IPAddress: "10.0.0.1", LocationID: dvr1.ID, StreamKey: &key}
	unchanged := models.Camera{Name: "Kantor", IPAddress: "10.0.0.3", LocationID: dvr1.ID}
	require.NoError(t, db.Create(&existing).Error)
	require.NoError(t, db.Create(&unchanged).Error)

	summary, err := NewCameraImportService(db).Import(ctx, []CameraImportRow{
		{Line: 2, Name: "Gerbang Utama", IPAddress: "10.0.0.1", Location: "DVR 1"},
		{Line: 3, Name: "Parkir", IPAddress: "10.0.0.2", Location: "DVR 2"},
		{Line: 4, Name: "Kantor", IPAddress: "10.0.0.3", Location: "DVR 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Created: 1, Updated: 1, Unchanged: 1}, summary)

	var updated models.Camera
	require.NoError(t, db.First(&updated, existing.ID).Error)
	assert.Equal(t, "Gerbang Utama", updated.Name)
	assert.Equal(t, key, *updated.StreamKey)

	var created models.Camera
	require.NoError(t, db.Where("ip_address = ?", "10.0.0.2").First(&created).Error)
	require.NotNil(t, created.StreamKey)
	assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^loc_%d_cam_[0-9a-f]{8}$`, created.LocationID)), *created.StreamKey)

	var locations int64
	db.Model(&models.Location{}).Count(&locations)
	assert.Equal(t, int64(2), locations)
}

func TestNewStreamKey(t *testing.T) {
	a := NewStreamKey(4)
	b := NewStreamKey(4)
	assert.Regexp(t, `^loc_4_cam_[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestCameraImportMatchesAddressBeforeName(t *testing.T) {
	db := openImportDB(t)
	ctx := context.Background()

	dvr1 := models.Location{Name: "DVR 1"}
	require.NoError(t, db.Create(&dvr1).Error)
	lobby := models.Camera{Name: "Lobby", IPAddress: "10.0.0.1", LocationID: dvr1.ID, IsStreaming: true}
	gate := models.Camera{Name: "Gate", IPAddress: "10.0.0.2", LocationID: dvr1.ID}
	require.NoError(t, db.Create(&lobby).Error)
	require.NoError(t, db.Create(&gate).Error)

	summary, err := NewCameraImportService(db).Import(ctx, []CameraImportRow{
		{Line: 2, Name: "Lobby Timur", IPAddress: "10.0.0.1", Location: "DVR 1"},
		{Line: 3, Name: "Gate", IPAddress: "10.0.0.5", Location: "DVR 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Updated: 2}, summary)

	var stored models.Camera
	require.NoError(t, db.First(&stored, lobby.ID).Error)
	assert.Equal(t, "Lobby Timur", stored.Name)
	assert.True(t, stored.IsStreaming)

	require.NoError(t, db.First(&stored, gate.ID).Error)
	assert.Equal(t, "10.0.0.5", stored.IPAddress)
}

func TestCameraImportRejectsNameOfAnotherCamera(t *testing.T) {
	db := openImportDB(t)
	ctx := context.Background()

	dvr1 := models.Location{Name: "DVR 1"}
	require.NoError(t, db.Create(&dvr1).Error)
	lobby := models.Camera{Name: "Lobby", IPAddress: "10.0.0.1", LocationID: dvr1.ID}
	gate := models.Camera{Name: "Gate", IPAddress: "10.0.0.2", LocationID: dvr1.ID}
	require.NoError(t, db.Create(&lobby).Error)
	require.NoError(t, db.Create(&gate).Error)

	_, err := NewCameraImportService(db).Import(ctx, []CameraImportRow{
		{Line: 2, Name: "Parkir", IPAddress: "10.0.0.9", Location: "DVR 3"},
		{Line: 3, Name: "Gate", IPAddress: "10.0.0.1", Location: "DVR 1"},
	})
	var invalid *ImportValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Problems, 1)
	assert.Contains(t, invalid.Problems[0], "row 3")

	var names []string
	require.NoError(t, db.Model(&models.Camera{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"Lobby", "Gate"}, names, "import is all or nothing")

	var locations int64
	db.Model(&models.Location{}).Count(&locations)
	assert.Equal(t, int64(1), locations)
}
