package model

import (
	"errors"
	"time"
)

// ApprovalCaseModel 审批案件数据模型
// data 列存放序列化后的完整聚合(含委员会、投票和历史),
// 其余列是用于查询过滤的投影,version 列承载乐观并发控制
type ApprovalCaseModel struct {
	EnrollmentID  string    `gorm:"primaryKey;type:varchar(64)"`
	StudentID     string    `gorm:"type:varchar(64);not null;index"`
	Status        string    `gorm:"type:varchar(32);not null;index"` // 案件状态
	AdvisorID     string    `gorm:"type:varchar(64);index"`          // 导师 ID
	FinalOutcome  string    `gorm:"type:varchar(16);not null;default:'unset'"`
	CommitteeSize int       `gorm:"type:int;not null"`
	VoteCount     int       `gorm:"type:int;not null;default:0"`
	Version       int64     `gorm:"type:bigint;not null"` // 乐观锁版本号
	Data          []byte    `gorm:"type:jsonb;not null"`  // 序列化后的 ApprovalCase 聚合
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ApprovalCaseModel) TableName() string {
	return "approval_cases"
}

// Validate 验证案件模型
func (acm *ApprovalCaseModel) Validate() error {
	if acm.EnrollmentID == "" {
		return errors.New("enrollment ID is required")
	}
	if acm.Status == "" {
		return errors.New("case status is required")
	}
	if acm.Version <= 0 {
		return errors.New("case version must be positive")
	}
	if len(acm.Data) == 0 {
		return errors.New("case data is required")
	}
	return nil
}
