package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"FieldForce/internal/model"
	"FieldForce/internal/repository"
	"FieldForce/pkg/errors"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/metrics"
	"FieldForce/storage/mq"
)

// AuditHandler 将考勤事件写入审计表，message_id 去重保证重复投递只落库一次
type AuditHandler struct {
	store   repository.AuditStore
	metrics *metrics.AttendanceMetrics
}

func NewAuditHandler(store repository.AuditStore, m *metrics.AttendanceMetrics) *AuditHandler {
	return &AuditHandler{store: store, metrics: m}
}

// Handle 无法解析的消息返回 ErrSkipMessage，存储错误返回给消费者重投
func (h *AuditHandler) Handle(ctx context.Context, body []byte) error {
	var msg model.AttendanceEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: failed to unmarshal attendance event: %v", errors.ErrSkipMessage, err)
	}

	if msg.MessageID == "" || msg.SessionID == 0 || msg.EmployeeID == 0 {
		return fmt.Errorf("%w: attendance event is missing identifiers", errors.ErrSkipMessage)
	}
	if msg.EventType != model.EventAttendanceCheckedIn && msg.EventType != model.EventAttendanceCheckedOut {
		return fmt.Errorf("%w: unknown attendance event type %q", errors.ErrSkipMessage, msg.EventType)
	}

	occurredAt, err := time.Parse(time.RFC3339, msg.OccurredAt)
	if err != nil {
		return fmt.Errorf("%w: invalid occurred_at %q", errors.ErrSkipMessage, msg.OccurredAt)
	}

	inserted, err := h.store.Record(ctx, &model.AttendanceAuditLog{
		MessageID:      msg.MessageID,
		EventType:      msg.EventType,
		SessionID:      msg.SessionID,
		EmployeeID:     msg.EmployeeID,
		WorkDate:       msg.WorkDate,
		OccurredAt:     occurredAt,
		Location:       msg.Location,
		WorkingSeconds: msg.WorkingSeconds,
	})
	if err != nil {
		return err
	}

	h.metrics.RecordAudit(ctx, msg.EventType, !inserted)
	if !inserted {
		logger.Logger.Info("Attendance event already recorded, skipping",
			zap.String("message_id", msg.MessageID),
			zap.String("event_type", msg.EventType),
		)
		return nil
	}

	logger.Logger.Info("Attendance event recorded",
		zap.String("message_id", msg.MessageID),
		zap.String("event_type", msg.EventType),
		zap.Int64("attendance_id", msg.SessionID),
		zap.Int64("employee_id", msg.EmployeeID),
	)
	return nil
}

// StartAuditConsumer 启动审计消费者，阻塞直到 ctx 结束
func StartAuditConsumer(ctx context.Context, h *AuditHandler) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.AuditQueue,
		ConsumerTag:   "attendance_audit_consumer",
		PrefetchCount: 20,
		Handler:       h.Handle,
	})
}
