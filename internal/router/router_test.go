package router

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FieldForce/internal/handler"
	"FieldForce/internal/middleware"
	"FieldForce/internal/model"
	"FieldForce/internal/repository/repofake"
	"FieldForce/internal/service"
	"FieldForce/pkg/token"
)

const employeeID int64 = 42

// 2025-03-14 09:00 UTC
var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Data    map[string]interface{} `json:"data"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	ErrorID string                 `json:"errorId"`
	Success bool                   `json:"success"`
}

type testServer struct {
	h     *server.Hertz
	store *repofake.Store
	clock *time.Time
	token string
}

func newTestServer(t *testing.T, checks map[string]handler.HealthCheck) *testServer {
	t.Helper()

	require.NoError(t, token.Init(token.Options{
		Secret:     "router-test-secret-router-test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}))
	require.NoError(t, middleware.Init(nil))

	store := repofake.New()
	store.AddEmployee(model.Employee{
		BaseModel: model.BaseModel{ID: employeeID},
		Name:      "Asha",
		Email:     "asha@example.com",
		Timezone:  "UTC",
	})

	now := fixedNow
	svc := service.NewAttendanceService(service.AttendanceOptions{
		Store: store,
		Clock: func() time.Time { return now },
	})

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	Register(h, Dependencies{
		Attendance: handler.NewAttendanceHandler(svc),
		Auth:       handler.NewAuthHandler(svc),
		Health:     handler.NewHealthHandler(checks),
	})

	access, _, _, err := token.GenerateTokenPair(employeeID)
	require.NoError(t, err)

	return &testServer{h: h, store: store, clock: &now, token: access}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...ut.Header) (int, envelope) {
	t.Helper()

	var reqBody *ut.Body
	if body != "" {
		reqBody = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
		headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	}

	resp := ut.PerformRequest(s.h.Engine, method, path, reqBody, headers...).Result()

	var env envelope
	if len(resp.Body()) > 0 {
		require.NoError(t, json.Unmarshal(resp.Body(), &env), string(resp.Body()))
	}
	return resp.StatusCode(), env
}

func (s *testServer) authed(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	return s.do(t, method, path, body, ut.Header{Key: "Authorization", Value: "Bearer " + s.token})
}

const checkInBody = `{"type":"check-in","location":{"coordinates":[77.5946,12.9716],"address":"MG Road"}}`
const checkOutBody = `{"type":"check-out","location":{"coordinates":[77.6,12.98]}}`

func TestAttendanceRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(t, http.MethodPost, "/v1/attendances", checkInBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
	assert.Zero(t, s.store.SessionCount())
}

func TestRefreshTokenIsRejectedAsAccessToken(t *testing.T) {
	s := newTestServer(t, nil)
	_, refresh, _, err := token.GenerateTokenPair(employeeID)
	require.NoError(t, err)

	status, env := s.do(t, http.MethodGet, "/v1/attendances", "", ut.Header{Key: "Authorization", Value: "Bearer " + refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestCheckInCheckOutLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.authed(t, http.MethodGet, "/v1/attendances/today", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No attendance recorded for today", env.Message)
	assert.Equal(t, false, env.Data["exists"])
	assert.Nil(t, env.Data["session"])

	status, env = s.authed(t, http.MethodPost, "/v1/attendances", checkInBody)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Check-in recorded successfully", env.Message)
	assert.Equal(t, "2025-03-14", env.Data["date"])
	assert.NotEmpty(t, env.Data["attendanceId"])
	location := env.Data["location"].(map[string]interface{})
	assert.Equal(t, "Point", location["type"])
	assert.Equal(t, []interface{}{77.5946, 12.9716}, location["coordinates"])

	*s.clock = fixedNow.Add(2*time.Hour + 15*time.Minute + 15*time.Second)

	status, env = s.authed(t, http.MethodPost, "/v1/attendances", checkOutBody)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Check-out recorded successfully", env.Message)
	assert.Equal(t, "2 hr 15 min 15 sec", env.Data["workingHours"])
	duration := env.Data["workingDuration"].(map[string]interface{})
	assert.Equal(t, float64(8115), duration["totalSeconds"])

	status, env = s.authed(t, http.MethodGet, "/attendances", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Today's attendance retrieved successfully", env.Message)
	assert.Equal(t, true, env.Data["checkedIn"])
	assert.Equal(t, true, env.Data["checkedOut"])
}

func TestTransitionConflictsMapTo409(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.authed(t, http.MethodPost, "/attendances", checkOutBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOT_CHECKED_IN", env.Code)

	status, _ = s.authed(t, http.MethodPost, "/attendances", checkInBody)
	require.Equal(t, http.StatusCreated, status)

	status, env = s.authed(t, http.MethodPost, "/v1/attendances", checkInBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_CHECKED_IN", env.Code)
	assert.Equal(t, 1, s.store.SessionCount())
}

func TestValidationErrorsMapTo400(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name string
		body string
		code string
	}{
		{name: "unknown type", body: `{"type":"lunch","location":{"coordinates":[77.5,12.9]}}`, code: "INVALID_ATTENDANCE_TYPE"},
		{name: "missing location", body: `{"type":"check-in"}`, code: "INVALID_LOCATION"},
		{name: "string coordinates", body: `{"type":"check-in","location":{"coordinates":["77.5","12.9"]}}`, code: "INVALID_LOCATION"},
		{name: "three coordinates", body: `{"type":"check-in","location":{"coordinates":[77.5,12.9,1]}}`, code: "INVALID_LOCATION"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.authed(t, http.MethodPost, "/v1/attendances", tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.code, env.Code)
		})
	}
	assert.Zero(t, s.store.SessionCount())
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	start := fixedNow.Add(-48 * time.Hour)
	end := start.Add(8 * time.Hour)
	s.store.PutSession(model.AttendanceSession{
		EmployeeID: employeeID,
		WorkDate:   "2025-03-12",
		Timezone:   "UTC",
		Status:     model.AttendanceStatusPresent,
		StartTime:  &start,
		EndTime:    &end,
	})

	status, env := s.authed(t, http.MethodGet, "/v1/attendances/history?from=2025-03-01&to=2025-03-31&limit=10", "")
	require.Equal(t, http.StatusOK, status)
	items := env.Data["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "2025-03-12", item["date"])
	assert.Equal(t, false, env.Data["hasMore"])

	status, env = s.authed(t, http.MethodGet, "/v1/attendances/history?from=2025-03-31&to=2025-03-01", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DATE_RANGE", env.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	status, env := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	down := newTestServer(t, map[string]handler.HealthCheck{
		"redis": func(ctx context.Context) error { return stderrors.New("connection refused") },
	})
	status, env = down.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Success)
	assert.Equal(t, "down", env.Data["redis"])
}

func TestPreflightAndRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	resp := ut.PerformRequest(s.h.Engine, http.MethodOptions, "/v1/attendances", nil,
		ut.Header{Key: "Origin", Value: "https://app.example.com"},
	).Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "https://app.example.com", string(resp.Header.Peek("Access-Control-Allow-Origin")))

	resp = ut.PerformRequest(s.h.Engine, http.MethodGet, "/healthz", nil,
		ut.Header{Key: "X-Request-ID", Value: "req-123"},
	).Result()
	assert.Equal(t, "req-123", string(resp.Header.Peek("X-Request-ID")))
}

func TestRefreshToken(t *testing.T) {
	s := newTestServer(t, nil)
	_, refresh, _, err := token.GenerateTokenPair(employeeID)
	require.NoError(t, err)

	status, env := s.do(t, http.MethodPost, "/v1/auth/token/refresh", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, env.Data["access_token"])
	assert.Equal(t, "Bearer", env.Data["token_type"])

	// access token 不能用来刷新
	status, env = s.do(t, http.MethodPost, "/v1/auth/token/refresh", `{"refresh_token":"`+s.token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	_, unknown, _, err := token.GenerateTokenPair(999)
	require.NoError(t, err)
	status, env = s.do(t, http.MethodPost, "/v1/auth/token/refresh", `{"refresh_token":"`+unknown+`"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "EMPLOYEE_NOT_FOUND", env.Code)

	status, env = s.do(t, http.MethodPost, "/v1/auth/token/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", env.Code)
}
