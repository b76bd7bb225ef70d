package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/pkg/logger"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// Init 建立连接并声明考勤事件拓扑
func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			return
		}

		ch, err := conn.Channel()
		if err != nil {
			connErr = fmt.Errorf("failed to open channel: %w", err)
			return
		}
		defer ch.Close()

		if err := DeclareTopology(ch); err != nil {
			connErr = err
			return
		}

		logger.Logger.Info("RabbitMQ initialized",
			zap.String("component", "rabbitmq"),
			zap.String("exchange", AttendanceExchange),
		)
	})

	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil || conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Ping 健康检查使用，只判断连接是否存活
func Ping(ctx context.Context) error {
	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is not available")
	}
	return nil
}
