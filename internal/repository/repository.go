package repository

import (
	"context"
	"errors"

	"FieldForce/internal/model"
)

var (
	// ErrDuplicateSession (employee_id, work_date) 唯一索引冲突
	ErrDuplicateSession = errors.New("attendance session already exists for work date")
	// ErrStaleSession 条件更新未命中，记录已被并发签退
	ErrStaleSession = errors.New("attendance session was modified concurrently")
)

// UnitOfWork 单个事务内可用的操作
type UnitOfWork interface {
	// FindSessionForUpdate 加行锁读取当日记录，不存在时返回 nil, nil
	FindSessionForUpdate(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error)
	CreateSession(ctx context.Context, session *model.AttendanceSession) error
	// UpdateSession 仅在 end_time 仍为空时写入签退信息
	UpdateSession(ctx context.Context, session *model.AttendanceSession) error
}

// SessionQuery 历史查询条件，BeforeWorkDate/BeforeID 为游标位置
type SessionQuery struct {
	EmployeeID     int64
	From           string
	To             string
	BeforeWorkDate string
	BeforeID       int64
	Limit          int
}

// AttendanceStore 考勤存储
type AttendanceStore interface {
	// WithinTransaction fn 返回错误时整体回滚
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	FindEmployee(ctx context.Context, employeeID int64) (*model.Employee, error)
	FindSession(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error)
	ListSessions(ctx context.Context, q SessionQuery) ([]model.AttendanceSession, error)
}

// AuditStore 考勤事件审计落库
type AuditStore interface {
	// Record 以 message_id 去重，重复投递返回 inserted=false
	Record(ctx context.Context, log *model.AttendanceAuditLog) (inserted bool, err error)
}
