package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/database"
	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"
	"cctv-monitoring/be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newUserRouter(t *testing.T, db *gorm.DB, admin models.User) *gin.Engine {
	t.Helper()
	users := repositories.NewUserRepository(db)
	roles := repositories.NewRoleRepository(db)
	h := NewUserHandler(users, roles, services.NewUserImportService(db, "Default123"), zap.NewNop())
	rh := NewRoleHandler(roles, zap.NewNop())

	r := gin.New()
	r.Use(asUser(admin))
	r.GET("/users", h.GetUsers)
	r.GET("/users/export", h.ExportUsers)
	r.POST("/users", h.CreateUser)
	r.POST("/users/import", h.ImportUsers)
	r.PUT("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	r.GET("/roles", rh.GetRoles)
	r.POST("/roles", rh.CreateRole)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestRoles(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin", "demo123", models.RoleAdmin)
	r := newUserRouter(t, db, admin)

	w := serve(r, http.MethodPost, "/roles", `{"name":"security"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodPost, "/roles", `{"name":"Security"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodPost, "/roles", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, w.Code)
	var roles []models.Role
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roles))
	assert.Len(t, roles, 2)
}

func TestUserCRUD(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin", "demo123", models.RoleAdmin)
	r := newUserRouter(t, db, admin)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", fmt.Sprintf(`{"name":"Budi","username":"budi","nip":1987,"password":"rahasia1","role_id":%d}`, admin.RoleID), http.StatusCreated},
		{"duplicate username", fmt.Sprintf(`{"name":"B","username":"budi","password":"rahasia1","role_id":%d}`, admin.RoleID), http.StatusConflict},
		{"duplicate nip", fmt.Sprintf(`{"name":"C","username":"citra","nip":1987,"password":"rahasia1","role_id":%d}`, admin.RoleID), http.StatusConflict},
		{"unknown role", `{"name":"D","username":"dewi","password":"rahasia1","role_id":999}`, http.StatusNotFound},
		{"short password", fmt.Sprintf(`{"name":"E","username":"eko","password":"123","role_id":%d}`, admin.RoleID), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/users", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	budi, err := repositories.NewUserRepository(db).GetByUsername(context.Background(), "budi")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(budi.Password, "rahasia1"))

	w := serve(r, http.MethodPut, fmt.Sprintf("/users/%d", budi.ID), `{"name":"Budi Santoso","password":"baru12345"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Budi Santoso", resp.Name)
	require.NotNil(t, resp.NIP)
	assert.Equal(t, int64(1987), *resp.NIP)
	assert.Equal(t, models.RoleAdmin, resp.Role)

	updated, err := repositories.NewUserRepository(db).GetByID(context.Background(), budi.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(updated.Password, "baru12345"))

	w = serve(r, http.MethodPut, fmt.Sprintf("/users/%d", budi.ID), `{"username":"admin"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var listed []UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, fmt.Sprintf("/users/%d", admin.ID), "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, fmt.Sprintf("/users/%d", budi.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, fmt.Sprintf("/users/%d", budi.ID), "").Code)

	// the deleted account still holds its username
	w = serve(r, http.MethodPost, "/users",
		fmt.Sprintf(`{"name":"Budi","username":"budi","password":"rahasia1","role_id":%d}`, admin.RoleID))
	assert.Equal(t, http.StatusConflict, w.Code)
}

type readyRelay map[string]bool

func (r readyRelay) TestConnection(context.Context) bool { return true }

func (r readyRelay) ListPathStatus(context.Context) map[string]services.PathStatus {
	out := map[string]services.PathStatus{}
	for k, v := range r {
		out[k] = services.PathStatus{Name: k, HasSource: v, Ready: v}
	}
	return out
}

type downProber struct{}

func (downProber) Probe(context.Context, string) services.ProbeResult { return services.HostDown }

func TestUserChangesReachIncidentNotifications(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin", "demo123", models.RoleAdmin)
	leaver := seedUser(t, db, "leaver", "secret1", models.RoleAdmin)
	r := newUserRouter(t, db, admin)

	w := serve(r, http.MethodPost, "/users",
		fmt.Sprintf(`{"name":"Operator","username":"operator","password":"rahasia1","role_id":%d}`, admin.RoleID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var operator UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &operator))

	require.Equal(t, http.StatusOK, serve(r, http.MethodDelete, fmt.Sprintf("/users/%d", leaver.ID), "").Code)

	location := models.Location{Name: "DVR 1"}
	require.NoError(t, db.Create(&location).Error)
	key := "cam_gate"
	camera := models.Camera{Name: "Gerbang", IPAddress: "10.0.0.1", StreamKey: &key, IsStreaming: true, LocationID: location.ID}
	require.NoError(t, db.Create(&camera).Error)

	streams := services.NewStreamMonitor(readyRelay{key: false}, downProber{},
		services.NewEvaluator(services.NewFailureCounter(), 1), 2, zap.NewNop())
	monitor := services.NewMonitor(database.NewSessionFactory(db), streams, config.MonitorConfig{}, nil, zap.NewNop())

	result := monitor.RunCycle(context.Background())
	require.NoError(t, result.Err)
	require.Equal(t, 1, result.IncidentsOpened)
	assert.Equal(t, 2, result.Notified)

	var recipients []uint
	require.NoError(t, db.Model(&models.Notification{}).Order("user_id").Pluck("user_id", &recipients).Error)
	assert.ElementsMatch(t, []uint{admin.ID, operator.ID}, recipients)
	assert.NotContains(t, recipients, leaver.ID)
}

func TestImportAndExportUsers(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin", "demo123", models.RoleAdmin)
	require.NoError(t, db.Create(&models.Role{Name: "security"}).Error)
	r := newUserRouter(t, db, admin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/users/import", [][]interface{}{
		{"Nama", "Username", "Nik", "Password", "Role"},
		{"Satpam Satu", "satpam1", "19870001", "", "Security"},
		{"Admin Baru", "admin", "", "gantipass", "admin"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"created": 1, "updated": 1, "unchanged": 0}`, w.Body.String())

	users := repositories.NewUserRepository(db)
	satpam, err := users.GetByUsername(context.Background(), "satpam1")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(satpam.Password, "Default123"))
	require.NotNil(t, satpam.Role)
	assert.Equal(t, "security", satpam.Role.Name)

	renamed, err := users.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admin Baru", renamed.Name)
	assert.True(t, utils.CheckPassword(renamed.Password, "gantipass"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/users/import", [][]interface{}{
		{"Nama", "Username", "Role"},
		{"X", "x", "janitor"},
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `unknown role`)

	w = serve(r, http.MethodGet, "/users/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `filename="Users_export_\d{14}\.xlsx"`, w.Header().Get("Content-Disposition"))

	rows, err := services.ParseUserImport(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "admin", rows[0].Username)
	assert.Equal(t, "satpam1", rows[1].Username)
	require.NotNil(t, rows[1].NIP)
	assert.Equal(t, int64(19870001), *rows[1].NIP)
	assert.Empty(t, rows[1].Password)
}
