package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"FieldForce/internal/model"
	"FieldForce/pkg/logger"
	"FieldForce/storage/mq"
)

// PublishFunc 与 mq.PublishMessage 签名一致
type PublishFunc func(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error

// Publisher 考勤事件生产者，routing key 即事件类型
type Publisher struct {
	publish  PublishFunc
	exchange string
}

func NewPublisher() *Publisher {
	return NewPublisherWith(mq.PublishMessage, mq.AttendanceExchange)
}

func NewPublisherWith(publish PublishFunc, exchange string) *Publisher {
	return &Publisher{publish: publish, exchange: exchange}
}

// PublishAttendanceEvent 发布签到/签退事件
func (p *Publisher) PublishAttendanceEvent(ctx context.Context, msg *model.AttendanceEventMessage) error {
	if msg.MessageID == "" {
		return fmt.Errorf("attendance event %s has no message id", msg.EventType)
	}

	if err := p.publish(ctx, p.exchange, msg.EventType, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish attendance event",
			zap.String("message_id", msg.MessageID),
			zap.String("event_type", msg.EventType),
			zap.Int64("attendance_id", msg.SessionID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Debug("Published attendance event",
		zap.String("message_id", msg.MessageID),
		zap.String("event_type", msg.EventType),
		zap.Int64("attendance_id", msg.SessionID),
		zap.Int64("employee_id", msg.EmployeeID),
	)
	return nil
}
