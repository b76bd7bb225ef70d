package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 打卡结果
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // 校验或状态冲突
	OutcomeFailed   = "failed"   // 存储错误
)

// AttendanceMetrics 考勤相关指标，nil 接收者上的调用全部忽略
type AttendanceMetrics struct {
	TransitionsTotal   metric.Int64Counter
	TransitionDuration metric.Float64Histogram
	LockContended      metric.Int64Counter
	EventsPublished    metric.Int64Counter
	AuditRecorded      metric.Int64Counter
}

// NewAttendanceMetrics 使用给定 meter 注册指标
func NewAttendanceMetrics(meter metric.Meter) (*AttendanceMetrics, error) {
	m := &AttendanceMetrics{}
	var err error

	m.TransitionsTotal, err = meter.Int64Counter(
		"attendance_transitions_total",
		metric.WithDescription("Total number of attendance check-in/check-out attempts"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.TransitionDuration, err = meter.Float64Histogram(
		"attendance_transition_duration_seconds",
		metric.WithDescription("Time spent applying an attendance transition in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.LockContended, err = meter.Int64Counter(
		"attendance_lock_contended_total",
		metric.WithDescription("Total number of transitions rejected because another one was in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.EventsPublished, err = meter.Int64Counter(
		"attendance_events_published_total",
		metric.WithDescription("Total number of attendance events published to the broker"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	m.AuditRecorded, err = meter.Int64Counter(
		"attendance_audit_recorded_total",
		metric.WithDescription("Total number of attendance events consumed into the audit log"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *AttendanceMetrics) RecordTransition(ctx context.Context, attendanceType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("type", attendanceType),
		attribute.String("outcome", outcome),
	)
	m.TransitionsTotal.Add(ctx, 1, attrs)
	m.TransitionDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *AttendanceMetrics) RecordLockContended(ctx context.Context, attendanceType string) {
	if m == nil {
		return
	}
	m.LockContended.Add(ctx, 1, metric.WithAttributes(attribute.String("type", attendanceType)))
}

func (m *AttendanceMetrics) RecordEventPublished(ctx context.Context, eventType string, ok bool) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("ok", ok),
	))
}

// RecordAudit duplicate 表示重复投递被忽略
func (m *AttendanceMetrics) RecordAudit(ctx context.Context, eventType string, duplicate bool) {
	if m == nil {
		return
	}
	m.AuditRecorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("duplicate", duplicate),
	))
}
