package service

import (
	"strconv"
	"strings"
	"time"

	"FieldForce/internal/model"
)

// ComputeDuration 计算 [start, end] 的工作时长，end 不晚于 start 时为零
// 结构化字段为准，Display 形如 "2 hr 15 min 30 sec"
func ComputeDuration(start, end time.Time) model.WorkingDuration {
	total := int64(end.Sub(start) / time.Second)
	if total < 0 {
		total = 0
	}

	d := model.WorkingDuration{
		TotalSeconds: total,
		Hours:        total / 3600,
		Minutes:      (total % 3600) / 60,
		Seconds:      total % 60,
	}
	d.Display = formatDuration(d)
	return d
}

// 小时和分钟为零时省略，秒在其他部分都缺省时保留
func formatDuration(d model.WorkingDuration) string {
	parts := make([]string, 0, 3)
	if d.Hours > 0 {
		parts = append(parts, strconv.FormatInt(d.Hours, 10)+" hr")
	}
	if d.Minutes > 0 {
		parts = append(parts, strconv.FormatInt(d.Minutes, 10)+" min")
	}
	if d.Seconds > 0 || len(parts) == 0 {
		parts = append(parts, strconv.FormatInt(d.Seconds, 10)+" sec")
	}
	return strings.Join(parts, " ")
}
