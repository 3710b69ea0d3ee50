package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hqv2016/salonpulse/internal/auth"
	"github.com/hqv2016/salonpulse/internal/database/testutil"
	"github.com/hqv2016/salonpulse/internal/models"
	"github.com/hqv2016/salonpulse/internal/notify"
	"github.com/hqv2016/salonpulse/internal/realtime"
	"github.com/hqv2016/salonpulse/internal/services"
)

type testEnv struct {
	router *gin.Engine
	jwt    *auth.JWTService
	deps   Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "salonpulse"})
	require.NoError(t, err)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry)

	notifications, err := services.NewNotificationService(db)
	require.NoError(t, err)
	chat, err := services.NewChatService(db, hub)
	require.NoError(t, err)
	dispatcher, err := notify.NewDispatcher(db, hub)
	require.NoError(t, err)

	deps := Dependencies{
		DB:            db,
		JWTService:    jwtService,
		Hub:           hub,
		Registry:      registry,
		Notifications: notifications,
		Chat:          chat,
		Dispatcher:    dispatcher,
	}
	return &testEnv{router: NewRouter(deps), jwt: jwtService, deps: deps}
}

func (e *testEnv) token(t *testing.T, userID, role, staffID string) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(auth.AccessTokenInput{UserID: userID, Role: role, StaffID: staffID})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"status":"ok"`)
}

func TestNotificationRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	staffToken := env.token(t, "u1", realtime.RoleStaff, "staff-1")
	res = env.do(t, http.MethodGet, "/api/notifications", staffToken, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	adminToken := env.token(t, "admin-1", realtime.RoleAdmin, "")
	res = env.do(t, http.MethodGet, "/api/notifications", adminToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestNotificationMarkReadFlow(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.token(t, "admin-1", realtime.RoleAdmin, "")

	seeded := models.Notification{Type: "NewOrder", Title: "New order", Content: "Order #1023"}
	require.NoError(t, env.deps.DB.Create(&seeded).Error)

	res := env.do(t, http.MethodGet, "/api/notifications/unread-count", adminToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"unread_count":1`)

	res = env.do(t, http.MethodPut, "/api/notifications/"+seeded.ID+"/read", adminToken, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(t, http.MethodGet, "/api/notifications/unread-count", adminToken, nil)
	require.Contains(t, res.Body.String(), `"unread_count":0`)
}

func TestChatFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "u5", realtime.RoleStaff, "staff-5")

	res := env.do(t, http.MethodPost, "/api/chat/rooms", alice, gin.H{"staff_id": "staff-9"})
	require.Equal(t, http.StatusOK, res.Code)

	var opened struct {
		Data models.ChatRoom `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.Data.ID)

	res = env.do(t, http.MethodPost, "/api/chat/rooms/"+opened.Data.ID+"/messages", alice,
		gin.H{"content": "hello there"})
	require.Equal(t, http.StatusCreated, res.Code)

	res = env.do(t, http.MethodGet, "/api/chat/rooms/"+opened.Data.ID+"/messages", alice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "hello there")

	// A customer token has no staff profile and is rejected.
	customer := env.token(t, "cust-1", realtime.RoleCustomer, "")
	res = env.do(t, http.MethodGet, "/api/chat/rooms", customer, nil)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestEventIngestionPersistsNotification(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.token(t, "admin-1", realtime.RoleAdmin, "")

	res := env.do(t, http.MethodPost, "/api/events/orders", adminToken, gin.H{
		"order_id":      1023,
		"customer_name": "Dana",
		"total_amount":  84.5,
	})
	require.Equal(t, http.StatusAccepted, res.Code)

	var stored models.Notification
	require.NoError(t, env.deps.DB.First(&stored, "type = ?", realtime.EventNewOrder).Error)
	require.Contains(t, stored.Content, "1023")

	// Staff cannot publish events.
	staffToken := env.token(t, "u1", realtime.RoleStaff, "staff-1")
	res = env.do(t, http.MethodPost, "/api/events/dashboard/refresh", staffToken, nil)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestChatContactsIncludePresence(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "u5", realtime.RoleStaff, "staff-5")

	require.NoError(t, env.deps.DB.Create(&models.Staff{
		BaseModel:   models.BaseModel{ID: "staff-9"},
		UserID:      "u9",
		DisplayName: "Bea",
		Role:        realtime.RoleStaff,
		IsActive:    true,
	}).Error)
	require.NoError(t, env.deps.DB.Create(&models.Staff{
		BaseModel:   models.BaseModel{ID: "staff-5"},
		UserID:      "u5",
		DisplayName: "Alice",
		Role:        realtime.RoleStaff,
		IsActive:    true,
	}).Error)
	env.deps.Registry.Register("conn-9", realtime.Identity{UserID: "u9", Role: realtime.RoleStaff, StaffID: "staff-9"})

	res := env.do(t, http.MethodGet, "/api/chat/contacts", alice, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Bea")
	require.Contains(t, res.Body.String(), `"online":true`)
	// The caller is excluded from their own contact list.
	require.NotContains(t, res.Body.String(), "Alice")
}

func TestPresenceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	staffToken := env.token(t, "u1", realtime.RoleStaff, "staff-1")

	env.deps.Registry.Register("conn-1", realtime.Identity{UserID: "u2", Role: realtime.RoleStaff, StaffID: "staff-2"})

	res := env.do(t, http.MethodGet, "/api/presence/staff", staffToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "staff-2")

	res = env.do(t, http.MethodGet, "/api/presence/staff/staff-2", staffToken, nil)
	require.Contains(t, res.Body.String(), `"online":true`)

	res = env.do(t, http.MethodGet, "/api/presence/staff/staff-3", staffToken, nil)
	require.Contains(t, res.Body.String(), `"online":false`)
}
