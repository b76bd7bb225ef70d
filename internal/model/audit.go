package model

import "time"

// AttendanceAuditLog worker 消费考勤事件后落库，message_id 保证重复投递只写一次
type AttendanceAuditLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	MessageID      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"message_id"`
	EventType      string    `gorm:"type:varchar(32);not null" json:"event_type"`
	SessionID      int64     `gorm:"not null;index" json:"session_id"`
	EmployeeID     int64     `gorm:"not null;index:idx_attendance_audit_employee_date" json:"employee_id"`
	WorkDate       string    `gorm:"type:varchar(10);not null;index:idx_attendance_audit_employee_date" json:"work_date"`
	OccurredAt     time.Time `gorm:"type:timestamptz;not null" json:"occurred_at"`
	Location       *GeoPoint `gorm:"serializer:json;type:jsonb" json:"location,omitempty"`
	WorkingSeconds int64     `gorm:"not null;default:0" json:"working_seconds"`
}

func (AttendanceAuditLog) TableName() string {
	return "attendance_audit_logs"
}
