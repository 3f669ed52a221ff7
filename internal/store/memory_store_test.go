package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// TestMemoryStore_CreateAndLoad 测试创建和加载
func TestMemoryStore_CreateAndLoad(t *testing.T) {
	s := store.NewMemoryCaseStore()
	ctx := context.Background()

	c := workflow.NewCase("enr-001", "std-001", []string{"a", "b", "c"})
	require.NoError(t, s.Create(ctx, c))

	loaded, err := s.Load(ctx, "enr-001")
	require.NoError(t, err)
	assert.Equal(t, "enr-001", loaded.EnrollmentID)
	assert.Equal(t, workflow.StatusRegistered, loaded.Status)
	assert.Equal(t, int64(1), loaded.Version)
}

// TestMemoryStore_LoadNotFound 测试加载不存在的案件
func TestMemoryStore_LoadNotFound(t *testing.T) {
	s := store.NewMemoryCaseStore()

	_, err := s.Load(context.Background(), "enr-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrNotFound))
}

// TestMemoryStore_CreateDuplicate 测试重复创建
func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := store.NewMemoryCaseStore()
	ctx := context.Background()

	c := workflow.NewCase("enr-001", "std-001", []string{"a"})
	require.NoError(t, s.Create(ctx, c))

	err := s.Create(ctx, workflow.NewCase("enr-001", "std-002", []string{"b"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrAlreadyExists))
}

// TestMemoryStore_LoadReturnsCopy 测试加载返回副本
func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	s := store.NewMemoryCaseStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, workflow.NewCase("enr-001", "std-001", []string{"a"})))

	first, err := s.Load(ctx, "enr-001")
	require.NoError(t, err)
	first.Status = workflow.StatusCancelled
	first.Votes["a"] = &workflow.Vote{Voter: "a", Choice: workflow.VoteApprove}

	second, err := s.Load(ctx, "enr-001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRegistered, second.Status)
	assert.Empty(t, second.Votes)
}

// TestMemoryStore_CompareAndSwap 测试 CAS 成功与版本冲突
func TestMemoryStore_CompareAndSwap(t *testing.T) {
	s := store.NewMemoryCaseStore()
	ctx := context.Background()
	engine := workflow.NewEngine()

	c := workflow.NewCase("enr-001", "std-001", []string{"a"})
	require.NoError(t, s.Create(ctx, c))

	next, err := engine.ApplyTransition(c, workflow.StatusInCommitteeReview, "adv-001", "", workflow.StatusRegistered)
	require.NoError(t, err)
	require.NoError(t, s.CompareAndSwap(ctx, c.Version, next))

	// 第二个写入者基于过期版本写入
	stale, err := engine.ApplyTransition(c, workflow.StatusAdvisorRejected, "adv-002", "", workflow.StatusRegistered)
	require.NoError(t, err)
	err = s.CompareAndSwap(ctx, c.Version, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrVersionConflict))

	// 冲突不破坏已提交状态
	loaded, err := s.Load(ctx, "enr-001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInCommitteeReview, loaded.Status)
	assert.Equal(t, int64(2), loaded.Version)
}

// TestMemoryStore_CASNotFound 测试对不存在案件的 CAS
func TestMemoryStore_CASNotFound(t *testing.T) {
	s := store.NewMemoryCaseStore()

	c := workflow.NewCase("enr-missing", "std-001", []string{"a"})
	err := s.CompareAndSwap(context.Background(), 1, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrNotFound))
}

// TestMemoryStore_ConcurrentCAS 测试并发写入者中恰好一个胜出
func TestMemoryStore_ConcurrentCAS(t *testing.T) {
	s := store.NewMemoryCaseStore()
	ctx := context.Background()
	engine := workflow.NewEngine()

	base := workflow.NewCase("enr-001", "std-001", []string{"a", "b", "c"})
	require.NoError(t, s.Create(ctx, base))

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c, err := s.Load(ctx, "enr-001")
			if err != nil {
				return
			}
			next, err := engine.ApplyTransition(c, workflow.StatusInCommitteeReview, "adv-001", "", workflow.StatusRegistered)
			if err != nil {
				return
			}
			if err := s.CompareAndSwap(ctx, c.Version, next); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 全部写入者从同一版本出发,CAS 保证恰好一个提交成功
	assert.Equal(t, 1, wins)

	loaded, err := s.Load(ctx, "enr-001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Len(t, loaded.History, 1)
}
