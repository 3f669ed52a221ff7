// Package store 提供审批案件的持久化契约
// 所有写入都经过 compare-and-swap,每个案件的变更串行化,
// 调用方在版本冲突时重新加载并重试整个操作
package store

import (
	"context"

	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// CaseStore 审批案件存储接口
type CaseStore interface {
	// Load 按 enrollment ID 加载案件,不存在时返回 workflow.ErrNotFound
	Load(ctx context.Context, enrollmentID string) (*workflow.ApprovalCase, error)

	// Create 创建新案件,已存在时返回 workflow.ErrAlreadyExists
	Create(ctx context.Context, c *workflow.ApprovalCase) error

	// CompareAndSwap 按期望版本写入案件
	// 存储中的版本与 expectedVersion 不一致时返回 workflow.ErrVersionConflict,
	// 此时存储内容不发生任何变化
	CompareAndSwap(ctx context.Context, expectedVersion int64, c *workflow.ApprovalCase) error
}
