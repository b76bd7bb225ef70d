package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"FieldForce/internal/model"
	"FieldForce/pkg/logger"
)

// checkConstraint AutoMigrate 不生成的表级约束
type checkConstraint struct {
	name string
	expr string
}

var sessionConstraints = []checkConstraint{
	// 签退时间按实际时钟记录，时钟回拨时允许早于签到时间
	{"chk_attendance_sessions_end_requires_start", "end_time IS NULL OR start_time IS NOT NULL"},
	{"chk_attendance_sessions_status", "status IN ('present', 'absent', 'leave')"},
	{"chk_attendance_sessions_working_seconds", "working_seconds >= 0"},
}

// Migrate 建表后补充检查约束。
// (employee_id, work_date) 唯一索引是防止重复签到的最终保障
func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.AutoMigrate(
		&model.Employee{},
		&model.AttendanceSession{},
		&model.AttendanceAuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, c := range sessionConstraints {
		if db.Migrator().HasConstraint(&model.AttendanceSession{}, c.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", model.AttendanceSession{}.TableName(), c.name, c.expr)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}

	logger.Logger.Info("Database schema migrated", zap.Int("constraints", len(sessionConstraints)))
	return nil
}
