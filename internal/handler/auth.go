package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"FieldForce/internal/model/dto"
	"FieldForce/pkg/errors"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/response"
	"FieldForce/pkg/token"
)

// EmployeeChecker 刷新前确认员工仍然有效
type EmployeeChecker interface {
	CheckEmployee(ctx context.Context, employeeID int64) error
}

type AuthHandler struct {
	employees EmployeeChecker
}

func NewAuthHandler(employees EmployeeChecker) *AuthHandler {
	return &AuthHandler{employees: employees}
}

// RefreshToken 用 refresh token 换取新的 token 对
// POST /v1/auth/token/refresh
func (h *AuthHandler) RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		response.Error(ctx, c, errors.InvalidRequest.WithMessage("refresh_token is required"))
		return
	}

	employeeID, err := token.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		logger.Logger.Debug("Refresh token rejected", zap.Error(err))
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	if err := h.employees.CheckEmployee(ctx, employeeID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(employeeID)
	if err != nil {
		response.Error(ctx, c, errors.Storage("generate token pair", err))
		return
	}

	response.Success(ctx, c, dto.NewTokenPairData(access, refresh, expiresIn))
}
