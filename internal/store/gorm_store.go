package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/model"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// gormCaseStore 基于 gorm 的案件存储实现
// 聚合序列化到 data 列,状态等投影列用于查询过滤;
// CAS 通过 UPDATE ... WHERE version = ? 实现,历史行在同一事务内追加
type gormCaseStore struct {
	db *gorm.DB
}

// NewGormCaseStore 创建数据库案件存储
func NewGormCaseStore(db *gorm.DB) CaseStore {
	return &gormCaseStore{db: db}
}

// Load 加载案件
func (s *gormCaseStore) Load(ctx context.Context, enrollmentID string) (*workflow.ApprovalCase, error) {
	var m model.ApprovalCaseModel
	err := s.db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case %q: %w", enrollmentID, workflow.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	var c workflow.ApprovalCase
	if err := json.Unmarshal(m.Data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case %q: %w", enrollmentID, err)
	}
	// version 列是权威版本,聚合内的副本以列为准
	c.Version = m.Version
	return &c, nil
}

// Create 创建案件
func (s *gormCaseStore) Create(ctx context.Context, c *workflow.ApprovalCase) error {
	m, err := toModel(c)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		var existing model.ApprovalCaseModel
		lookupErr := s.db.WithContext(ctx).
			Where("enrollment_id = ?", c.EnrollmentID).
			First(&existing).Error
		if lookupErr == nil {
			return fmt.Errorf("case %q: %w", c.EnrollmentID, workflow.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// CompareAndSwap 按期望版本写入案件
// 事务内: 1) 条件更新案件行 2) RowsAffected 为 0 时区分 NotFound 与版本冲突
// 3) 追加本次变更新增的历史行,保证转换与审计一起提交或一起失败
func (s *gormCaseStore) CompareAndSwap(ctx context.Context, expectedVersion int64, c *workflow.ApprovalCase) error {
	m, err := toModel(c)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 条件更新
		res := tx.Model(&model.ApprovalCaseModel{}).
			Where("enrollment_id = ? AND version = ?", c.EnrollmentID, expectedVersion).
			Updates(map[string]interface{}{
				"student_id":     m.StudentID,
				"status":         m.Status,
				"advisor_id":     m.AdvisorID,
				"final_outcome":  m.FinalOutcome,
				"committee_size": m.CommitteeSize,
				"vote_count":     m.VoteCount,
				"version":        m.Version,
				"data":           m.Data,
				"updated_at":     m.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update case: %w", res.Error)
		}

		// 2. 未命中: 案件不存在或版本已被并发写入者推进
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.ApprovalCaseModel{}).
				Where("enrollment_id = ?", c.EnrollmentID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check case existence: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("case %q: %w", c.EnrollmentID, workflow.ErrNotFound)
			}
			return fmt.Errorf("case %q at version %d: %w", c.EnrollmentID, expectedVersion, workflow.ErrVersionConflict)
		}

		// 3. 追加新增的历史行(聚合持有全量历史,落库偏移量取已有行数)
		var persisted int64
		if err := tx.Model(&model.StatusHistoryModel{}).
			Where("enrollment_id = ?", c.EnrollmentID).
			Count(&persisted).Error; err != nil {
			return fmt.Errorf("failed to count history rows: %w", err)
		}
		for i := int(persisted); i < len(c.History); i++ {
			h := c.History[i]
			row := &model.StatusHistoryModel{
				ID:           uuid.New().String(),
				EnrollmentID: c.EnrollmentID,
				FromStatus:   string(h.From),
				ToStatus:     string(h.To),
				Reason:       h.Reason,
				Actor:        h.Actor,
				CreatedAt:    h.At,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to append history row: %w", err)
			}
		}

		return nil
	})
}

// toModel 将聚合转换为持久化模型
func toModel(c *workflow.ApprovalCase) (*model.ApprovalCaseModel, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal case %q: %w", c.EnrollmentID, err)
	}

	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return &model.ApprovalCaseModel{
		EnrollmentID:  c.EnrollmentID,
		StudentID:     c.StudentID,
		Status:        string(c.Status),
		AdvisorID:     c.AdvisorID,
		FinalOutcome:  string(c.FinalOutcome),
		CommitteeSize: len(c.Committee),
		VoteCount:     len(c.Votes),
		Version:       c.Version,
		Data:          data,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}, nil
}
