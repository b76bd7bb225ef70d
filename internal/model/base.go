package model

import "time"

// BaseModel 主键由 snowflake 在应用侧分配。
// 考勤记录按规则永不删除，因此不带软删除字段，避免唯一索引被已删除行占用
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
}
