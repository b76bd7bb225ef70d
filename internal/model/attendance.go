package model

import (
	"time"
)

// WorkDateLayout 自然日统一存成 YYYY-MM-DD
const WorkDateLayout = "2006-01-02"

// AttendanceType 打卡动作
type AttendanceType string

const (
	AttendanceCheckIn  AttendanceType = "check-in"
	AttendanceCheckOut AttendanceType = "check-out"
)

func (t AttendanceType) Valid() bool {
	return t == AttendanceCheckIn || t == AttendanceCheckOut
}

// AttendanceStatus 出勤状态
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLeave   AttendanceStatus = "leave"
)

// SessionState 每个员工每天的状态机: NoSession -> CheckedIn -> CheckedOut
type SessionState string

const (
	SessionStateNone       SessionState = "no_session"
	SessionStateCheckedIn  SessionState = "checked_in"
	SessionStateCheckedOut SessionState = "checked_out"
)

// AttendanceSession 员工每日考勤记录，(employee_id, work_date) 唯一
type AttendanceSession struct {
	BaseModel
	EmployeeID    int64            `gorm:"not null;uniqueIndex:uidx_attendance_sessions_employee_date,priority:1" json:"employee_id"`
	WorkDate      string           `gorm:"type:varchar(10);not null;uniqueIndex:uidx_attendance_sessions_employee_date,priority:2;index" json:"work_date"`
	Timezone      string           `gorm:"type:varchar(64);not null" json:"timezone"`
	Status        AttendanceStatus `gorm:"type:varchar(16);not null;default:'present'" json:"status"`
	StartTime     *time.Time       `gorm:"type:timestamptz" json:"start_time,omitempty"`
	StartLocation *GeoPoint        `gorm:"serializer:json;type:jsonb" json:"start_location,omitempty"`
	EndTime       *time.Time       `gorm:"type:timestamptz" json:"end_time,omitempty"`
	EndLocation   *GeoPoint        `gorm:"serializer:json;type:jsonb" json:"end_location,omitempty"`
	Remarks       string           `gorm:"type:varchar(500);not null;default:''" json:"remarks,omitempty"`
	// 签退时写入的时长缓存，读取时仍以 start/end 重新计算
	WorkingSeconds int64 `gorm:"not null;default:0" json:"working_seconds"`
}

func (AttendanceSession) TableName() string {
	return "attendance_sessions"
}

// State nil 记录视为 NoSession
func (s *AttendanceSession) State() SessionState {
	switch {
	case s == nil || s.StartTime == nil:
		return SessionStateNone
	case s.EndTime == nil:
		return SessionStateCheckedIn
	default:
		return SessionStateCheckedOut
	}
}

// WorkingDuration 工作时长的结构化拆分，Display 仅用于展示
type WorkingDuration struct {
	Display      string `json:"display"`
	TotalSeconds int64  `json:"totalSeconds"`
	Hours        int64  `json:"hours"`
	Minutes      int64  `json:"minutes"`
	Seconds      int64  `json:"seconds"`
}

// TransitionResult 一次成功打卡后的快照
type TransitionResult struct {
	Session  AttendanceSession
	Duration *WorkingDuration // 仅签退时存在
	Type     AttendanceType
}

// TodaySession 当日考勤状态
type TodaySession struct {
	Session         *AttendanceSession
	WorkingDuration WorkingDuration
	WorkDate        string
	Exists          bool
	CheckedIn       bool
	CheckedOut      bool
}

// HistoryPage 历史考勤分页结果
type HistoryPage struct {
	NextCursor string
	Items      []HistoryItem
	HasMore    bool
}

type HistoryItem struct {
	Session         AttendanceSession
	WorkingDuration WorkingDuration
}
