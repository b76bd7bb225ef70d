package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"FieldForce/internal/middleware"
	"FieldForce/internal/model"
	"FieldForce/internal/model/dto"
	"FieldForce/internal/service"
	"FieldForce/pkg/errors"
	"FieldForce/pkg/response"
)

// AttendanceService handler 依赖的考勤能力
type AttendanceService interface {
	ApplyTransition(ctx context.Context, in service.TransitionInput) (*model.TransitionResult, error)
	GetTodaySession(ctx context.Context, employeeID int64, now time.Time) (*model.TodaySession, error)
	ListHistory(ctx context.Context, in service.HistoryInput) (*model.HistoryPage, error)
}

type AttendanceHandler struct {
	svc AttendanceService
}

func NewAttendanceHandler(svc AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// MarkAttendance 签到或签退
// POST /v1/attendances
func (h *AttendanceHandler) MarkAttendance(ctx context.Context, c *app.RequestContext) {
	employeeID, ok := middleware.GetEmployeeID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.MarkAttendanceRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := h.svc.ApplyTransition(ctx, service.TransitionInput{
		EmployeeID: employeeID,
		Type:       req.Type,
		Location:   req.Location,
		Remarks:    req.Remarks,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if result.Type == model.AttendanceCheckIn {
		response.SuccessWithMessage(ctx, c, http.StatusCreated, "Check-in recorded successfully", dto.NewCheckInData(result.Session))
		return
	}

	var duration model.WorkingDuration
	if result.Duration != nil {
		duration = *result.Duration
	}
	response.SuccessWithMessage(ctx, c, http.StatusOK, "Check-out recorded successfully", dto.NewCheckOutData(result.Session, duration))
}

// GetToday 当日考勤状态
// GET /v1/attendances
// GET /v1/attendances/today
func (h *AttendanceHandler) GetToday(ctx context.Context, c *app.RequestContext) {
	employeeID, ok := middleware.GetEmployeeID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	today, err := h.svc.GetTodaySession(ctx, employeeID, time.Time{})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	message := "Today's attendance retrieved successfully"
	if !today.Exists {
		message = "No attendance recorded for today"
	}
	response.SuccessWithMessage(ctx, c, http.StatusOK, message, dto.NewTodayAttendanceData(today))
}

// GetHistory 分页查询历史考勤
// GET /v1/attendances/history
func (h *AttendanceHandler) GetHistory(ctx context.Context, c *app.RequestContext) {
	employeeID, ok := middleware.GetEmployeeID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var query dto.AttendanceHistoryQuery
	if err := c.Bind(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	page, err := h.svc.ListHistory(ctx, service.HistoryInput{
		EmployeeID: employeeID,
		From:       query.From,
		To:         query.To,
		Cursor:     query.Cursor,
		Limit:      query.Limit,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewAttendanceHistoryData(page))
}
