package dto

import (
	"strconv"
	"time"

	"FieldForce/internal/model"
)

// ========== Attendance 相关 DTO ==========

// MarkAttendanceRequest 打卡请求
type MarkAttendanceRequest struct {
	Location *model.LocationInput `json:"location"`
	Type     string               `json:"type"`
	Remarks  string               `json:"remarks,omitempty"`
}

// CheckInData 签到响应
type CheckInData struct {
	StartTime    time.Time       `json:"startTime"`
	Location     *model.GeoPoint `json:"location"`
	AttendanceID string          `json:"attendanceId"`
	Date         string          `json:"date"`
}

// CheckOutData 签退响应
type CheckOutData struct {
	StartTime       time.Time              `json:"startTime"`
	EndTime         time.Time              `json:"endTime"`
	StartLocation   *model.GeoPoint        `json:"startLocation"`
	EndLocation     *model.GeoPoint        `json:"endLocation"`
	WorkingDuration *model.WorkingDuration `json:"workingDuration"`
	AttendanceID    string                 `json:"attendanceId"`
	Date            string                 `json:"date"`
	// 兼容旧客户端的 "X hr Y min Z sec" 字符串
	WorkingHours string `json:"workingHours"`
}

// SessionView 考勤记录视图
type SessionView struct {
	StartTime       *time.Time             `json:"startTime"`
	EndTime         *time.Time             `json:"endTime"`
	StartLocation   *model.GeoPoint        `json:"startLocation"`
	EndLocation     *model.GeoPoint        `json:"endLocation"`
	WorkingDuration *model.WorkingDuration `json:"workingDuration"`
	AttendanceID    string                 `json:"attendanceId"`
	EmployeeID      string                 `json:"employeeId"`
	Date            string                 `json:"date"`
	Timezone        string                 `json:"timezone"`
	Status          string                 `json:"status"`
	Remarks         string                 `json:"remarks,omitempty"`
}

// TodayAttendanceData 当日考勤状态
type TodayAttendanceData struct {
	Session         *SessionView          `json:"session"`
	WorkingDuration model.WorkingDuration `json:"workingDuration"`
	Date            string                `json:"date"`
	Exists          bool                  `json:"exists"`
	CheckedIn       bool                  `json:"checkedIn"`
	CheckedOut      bool                  `json:"checkedOut"`
}

// AttendanceHistoryQuery 考勤历史查询参数
type AttendanceHistoryQuery struct {
	From   string `query:"from"`
	To     string `query:"to"`
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

// AttendanceHistoryData 考勤历史分页
type AttendanceHistoryData struct {
	Items      []SessionView `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}

func NewCheckInData(s model.AttendanceSession) CheckInData {
	data := CheckInData{
		AttendanceID: formatID(s.ID),
		Date:         s.WorkDate,
		Location:     s.StartLocation,
	}
	if s.StartTime != nil {
		data.StartTime = *s.StartTime
	}
	return data
}

func NewCheckOutData(s model.AttendanceSession, d model.WorkingDuration) CheckOutData {
	data := CheckOutData{
		AttendanceID:    formatID(s.ID),
		Date:            s.WorkDate,
		StartLocation:   s.StartLocation,
		EndLocation:     s.EndLocation,
		WorkingDuration: &d,
		WorkingHours:    d.Display,
	}
	if s.StartTime != nil {
		data.StartTime = *s.StartTime
	}
	if s.EndTime != nil {
		data.EndTime = *s.EndTime
	}
	return data
}

func NewSessionView(s model.AttendanceSession, d model.WorkingDuration) SessionView {
	return SessionView{
		AttendanceID:    formatID(s.ID),
		EmployeeID:      formatID(s.EmployeeID),
		Date:            s.WorkDate,
		Timezone:        s.Timezone,
		Status:          string(s.Status),
		Remarks:         s.Remarks,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		StartLocation:   s.StartLocation,
		EndLocation:     s.EndLocation,
		WorkingDuration: &d,
	}
}

func NewTodayAttendanceData(t *model.TodaySession) TodayAttendanceData {
	data := TodayAttendanceData{
		Date:            t.WorkDate,
		Exists:          t.Exists,
		CheckedIn:       t.CheckedIn,
		CheckedOut:      t.CheckedOut,
		WorkingDuration: t.WorkingDuration,
	}
	if t.Exists && t.Session != nil {
		view := NewSessionView(*t.Session, t.WorkingDuration)
		data.Session = &view
	}
	return data
}

func NewAttendanceHistoryData(p *model.HistoryPage) AttendanceHistoryData {
	items := make([]SessionView, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, NewSessionView(item.Session, item.WorkingDuration))
	}
	return AttendanceHistoryData{
		Items:      items,
		NextCursor: p.NextCursor,
		HasMore:    p.HasMore,
	}
}

// snowflake ID 超出 JS 安全整数范围，统一以字符串返回
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
