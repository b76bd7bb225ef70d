package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"FieldForce/internal/model"
)

// GormStore 基于 PostgreSQL 的 AttendanceStore 与 AuditStore 实现
// gorm.Config 需开启 TranslateError，唯一索引冲突才能识别为 gorm.ErrDuplicatedKey
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	// 事务固定在主库
	return s.db.WithContext(ctx).Clauses(dbresolver.Write).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormUnit{tx: tx})
	})
}

func (s *GormStore) FindEmployee(ctx context.Context, employeeID int64) (*model.Employee, error) {
	var employee model.Employee
	err := s.db.WithContext(ctx).Where("id = ?", employeeID).Take(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find employee %d: %w", employeeID, err)
	}
	return &employee, nil
}

// FindSession 当日状态走主库，签到后立即查询不能读到副本的旧数据
func (s *GormStore) FindSession(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := s.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("employee_id = ? AND work_date = ?", employeeID, workDate).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// ListSessions 按 (work_date, id) 倒序，历史查询可以走副本
func (s *GormStore) ListSessions(ctx context.Context, q SessionQuery) ([]model.AttendanceSession, error) {
	tx := s.db.WithContext(ctx).Where("employee_id = ?", q.EmployeeID)
	if q.From != "" {
		tx = tx.Where("work_date >= ?", q.From)
	}
	if q.To != "" {
		tx = tx.Where("work_date <= ?", q.To)
	}
	if q.BeforeWorkDate != "" {
		tx = tx.Where("(work_date < ? OR (work_date = ? AND id < ?))", q.BeforeWorkDate, q.BeforeWorkDate, q.BeforeID)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var sessions []model.AttendanceSession
	if err := tx.Order("work_date DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) Record(ctx context.Context, log *model.AttendanceAuditLog) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).
		Create(log)
	if result.Error != nil {
		return false, fmt.Errorf("record audit log: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SaveEmployee 按主键 upsert，供开发环境准备数据
func (s *GormStore) SaveEmployee(ctx context.Context, employee *model.Employee) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role", "status", "timezone", "updated_at"}),
		}).
		Create(employee).Error
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

type gormUnit struct {
	tx *gorm.DB
}

func (u *gormUnit) FindSessionForUpdate(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := u.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employee_id = ? AND work_date = ?", employeeID, workDate).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &session, nil
}

func (u *gormUnit) CreateSession(ctx context.Context, session *model.AttendanceSession) error {
	err := u.tx.WithContext(ctx).Create(session).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSession
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (u *gormUnit) UpdateSession(ctx context.Context, session *model.AttendanceSession) error {
	result := u.tx.WithContext(ctx).
		Model(session).
		Where("end_time IS NULL").
		Select("end_time", "end_location", "working_seconds", "remarks", "updated_at").
		Updates(session)
	if result.Error != nil {
		return fmt.Errorf("update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleSession
	}
	return nil
}
