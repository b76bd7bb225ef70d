package model

// 考勤事件类型，同时作为 routing key
const (
	EventAttendanceCheckedIn  = "attendance.checked_in"
	EventAttendanceCheckedOut = "attendance.checked_out"
)

// AttendanceEventMessage 考勤状态变更事件，提交成功后投递
type AttendanceEventMessage struct {
	MessageID      string    `json:"message_id"` // 消息唯一ID，用于幂等性检查
	EventType      string    `json:"event_type"`
	WorkDate       string    `json:"work_date"`
	OccurredAt     string    `json:"occurred_at"` // RFC3339
	Location       *GeoPoint `json:"location,omitempty"`
	SessionID      int64     `json:"session_id"`
	EmployeeID     int64     `json:"employee_id"`
	WorkingSeconds int64     `json:"working_seconds,omitempty"`
}
