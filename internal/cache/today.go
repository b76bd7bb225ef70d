package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"FieldForce/internal/model"
	"FieldForce/storage/redis"
)

const (
	todayPrefix = "attendance:today"
)

// TodayCache 缓存员工当日的考勤记录，时长不入缓存，读取时重新计算
type TodayCache struct {
	client goredis.Cmdable
	prefix string
}

func NewTodayCache(client goredis.Cmdable, prefix string) *TodayCache {
	return &TodayCache{client: client, prefix: prefix}
}

func (c *TodayCache) key(employeeID int64, workDate string) string {
	return redis.KeyWithPrefix(c.prefix, todayPrefix, strconv.FormatInt(employeeID, 10), workDate)
}

// Get 未命中返回 ok=false
func (c *TodayCache) Get(ctx context.Context, employeeID int64, workDate string) (*model.AttendanceSession, bool, error) {
	data, err := c.client.Get(ctx, c.key(employeeID, workDate)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var session model.AttendanceSession
	if err := json.Unmarshal(data, &session); err != nil {
		// 格式不兼容的旧值按未命中处理
		_ = c.client.Del(ctx, c.key(employeeID, workDate)).Err()
		return nil, false, nil
	}
	return &session, true, nil
}

// Set 覆盖写，只用于事务提交后
func (c *TodayCache) Set(ctx context.Context, session *model.AttendanceSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.EmployeeID, session.WorkDate), data, ttl).Err()
}

// SetIfAbsent 读路径回填，已有值时不写并返回 false
func (c *TodayCache) SetIfAbsent(ctx context.Context, session *model.AttendanceSession, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, c.key(session.EmployeeID, session.WorkDate), data, ttl).Result()
}

func (c *TodayCache) Delete(ctx context.Context, employeeID int64, workDate string) error {
	return c.client.Del(ctx, c.key(employeeID, workDate)).Err()
}
