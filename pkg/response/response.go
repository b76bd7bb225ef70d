package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/pkg/errors"
	"FieldForce/pkg/logger"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	ErrorID string                 `json:"errorId,omitempty"`
	Error   string                 `json:"error,omitempty"` // 仅开发环境返回底层错误
	Success bool                   `json:"success"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
	Success bool        `json:"success"`
}

// exposeDetails 开发环境下把底层错误带回给客户端
var exposeDetails = func() bool {
	return config.Cfg.IsDevelopment()
}

// StatusOf 将错误分类映射为 HTTP 状态码
func StatusOf(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest // 400
	case errors.KindUnauthorized:
		return http.StatusUnauthorized // 401
	case errors.KindNotFound:
		return http.StatusNotFound // 404
	case errors.KindConflict:
		return http.StatusConflict // 409
	case errors.KindRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	statusCode := StatusOf(err)

	def, ok := errors.AsDefinition(err)
	if !ok {
		def = errors.InternalError
	}

	resp := ErrorResponse{
		Success: false,
		Code:    def.Code,
		Message: def.Message,
		Details: details,
	}

	// 5xx 的真实原因只进日志，errorId 用于客户端反馈时关联
	if statusCode >= http.StatusInternalServerError {
		resp.ErrorID = uuid.NewString()
		logger.Logger.Error("Request failed",
			zap.String("error_id", resp.ErrorID),
			zap.String("code", def.Code),
			zap.String("method", string(c.Method())),
			zap.String("path", string(c.Path())),
			zap.Error(err),
		)
		if exposeDetails() {
			resp.Error = err.Error()
		}
	}

	c.JSON(statusCode, resp)
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage 带提示信息与自定义状态码的成功响应，打卡创建返回 201
func SuccessWithMessage(ctx context.Context, c *app.RequestContext, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Code:    errors.InvalidRequest.Code,
		Message: err.Error(),
	})
}
