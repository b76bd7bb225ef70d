package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/route"

	"FieldForce/config"
	"FieldForce/internal/handler"
	"FieldForce/internal/middleware"
)

// Dependencies 路由需要的 handler 与可选中间件
type Dependencies struct {
	Attendance *handler.AttendanceHandler
	Auth       *handler.AuthHandler
	Health     *handler.HealthHandler
	// 为空时打卡接口不限流
	RateLimit app.HandlerFunc
	// hertz-contrib 的 server tracer 中间件，为空时跳过
	Tracing app.HandlerFunc
}

func Register(h *server.Hertz, deps Dependencies) {
	if deps.Tracing != nil {
		h.Use(deps.Tracing)
	}
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware(config.Cfg.CORSAllowedOrigins...))
	h.Use(middleware.OpenTelemetryMiddleware())

	// 预检请求由 CORS 中间件直接返回
	h.OPTIONS("/*path", func(ctx context.Context, c *app.RequestContext) {})

	if deps.Health != nil {
		h.GET("/healthz", deps.Health.Healthz)
	}

	if deps.Auth != nil {
		h.Group("/v1/auth").POST("/token/refresh", deps.Auth.RefreshToken)
	}

	// 移动端旧版本直接访问 /attendances，新旧路径并存
	registerAttendances(h.Group("/v1"), deps)
	registerAttendances(&h.RouterGroup, deps)
}

func registerAttendances(root *route.RouterGroup, deps Dependencies) {
	attendances := root.Group("/attendances")
	attendances.Use(middleware.AuthMiddleware())
	{
		mark := []app.HandlerFunc{deps.Attendance.MarkAttendance}
		if deps.RateLimit != nil {
			mark = append([]app.HandlerFunc{deps.RateLimit}, mark...)
		}
		attendances.POST("", mark...)
		attendances.GET("", deps.Attendance.GetToday)
		attendances.GET("/today", deps.Attendance.GetToday)
		attendances.GET("/history", deps.Attendance.GetHistory)
	}
}
