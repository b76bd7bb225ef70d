package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AttendanceExchange   = "attendance.events"
	AttendanceRoutingKey = "attendance.*"
	AuditQueue           = "attendance.audit"

	// 重投后仍失败的消息进入死信队列
	deadLetterExchange = "attendance.events.dlx"
	AuditDeadLetter    = "attendance.audit.dlq"
)

// DeclareTopology 幂等声明交换机、队列与绑定
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(AttendanceExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", AttendanceExchange, err)
	}
	if err := ch.ExchangeDeclare(deadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", deadLetterExchange, err)
	}

	if _, err := ch.QueueDeclare(AuditDeadLetter, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AuditDeadLetter, err)
	}
	if err := ch.QueueBind(AuditDeadLetter, "", deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", AuditDeadLetter, err)
	}

	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": deadLetterExchange,
	}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AuditQueue, err)
	}
	if err := ch.QueueBind(AuditQueue, AttendanceRoutingKey, AttendanceExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", AuditQueue, err)
	}

	return nil
}
