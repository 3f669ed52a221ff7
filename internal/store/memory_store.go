package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// memoryCaseStore 内存案件存储
// 与数据库实现遵循同一 CAS 契约,用于开发模式和并发行为测试
type memoryCaseStore struct {
	mu    sync.Mutex
	cases map[string]*workflow.ApprovalCase
}

// NewMemoryCaseStore 创建内存案件存储
func NewMemoryCaseStore() CaseStore {
	return &memoryCaseStore{
		cases: make(map[string]*workflow.ApprovalCase),
	}
}

// Load 加载案件,返回深拷贝避免调用方持有共享状态
func (s *memoryCaseStore) Load(ctx context.Context, enrollmentID string) (*workflow.ApprovalCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[enrollmentID]
	if !ok {
		return nil, fmt.Errorf("case %q: %w", enrollmentID, workflow.ErrNotFound)
	}
	return c.Clone(), nil
}

// Create 创建案件
func (s *memoryCaseStore) Create(ctx context.Context, c *workflow.ApprovalCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[c.EnrollmentID]; ok {
		return fmt.Errorf("case %q: %w", c.EnrollmentID, workflow.ErrAlreadyExists)
	}
	s.cases[c.EnrollmentID] = c.Clone()
	return nil
}

// CompareAndSwap 按期望版本写入案件
func (s *memoryCaseStore) CompareAndSwap(ctx context.Context, expectedVersion int64, c *workflow.ApprovalCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cases[c.EnrollmentID]
	if !ok {
		return fmt.Errorf("case %q: %w", c.EnrollmentID, workflow.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("case %q at version %d: %w", c.EnrollmentID, expectedVersion, workflow.ErrVersionConflict)
	}
	s.cases[c.EnrollmentID] = c.Clone()
	return nil
}
