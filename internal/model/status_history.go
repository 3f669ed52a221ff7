package model

import (
	"errors"
	"time"
)

// StatusHistoryModel 状态变更历史数据模型
// 每次提交的转换写入一行,与案件的 CAS 更新同事务落库
type StatusHistoryModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	EnrollmentID string    `gorm:"type:varchar(64);not null;index"`
	FromStatus   string    `gorm:"type:varchar(32)"`
	ToStatus     string    `gorm:"type:varchar(32);not null"`
	Reason       string    `gorm:"type:text"`
	Actor        string    `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (StatusHistoryModel) TableName() string {
	return "status_history"
}

// Validate 验证状态历史模型
func (shm *StatusHistoryModel) Validate() error {
	if shm.ID == "" {
		return errors.New("history ID is required")
	}
	if shm.EnrollmentID == "" {
		return errors.New("enrollment ID is required")
	}
	if shm.ToStatus == "" {
		return errors.New("to status is required")
	}
	if shm.Actor == "" {
		return errors.New("actor is required")
	}
	return nil
}
