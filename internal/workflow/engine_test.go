package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyTransition_Valid 测试合法转换
func TestApplyTransition_Valid(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a", "b", "c"})

	next, err := engine.ApplyTransition(c, StatusInCommitteeReview, "adv-001", "materials complete", StatusRegistered)
	require.NoError(t, err)

	assert.Equal(t, StatusInCommitteeReview, next.Status)
	assert.Equal(t, int64(2), next.Version)
	require.Len(t, next.History, 1)
	assert.Equal(t, StatusRegistered, next.History[0].From)
	assert.Equal(t, StatusInCommitteeReview, next.History[0].To)
	assert.Equal(t, "adv-001", next.History[0].Actor)
	assert.Equal(t, "materials complete", next.History[0].Reason)

	// 原案件不被修改
	assert.Equal(t, StatusRegistered, c.Status)
	assert.Equal(t, int64(1), c.Version)
	assert.Empty(t, c.History)
}

// TestApplyTransition_InvalidFrom 测试当前状态不在允许集合内
func TestApplyTransition_InvalidFrom(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})
	c.Status = StatusAdvisorRejected

	_, err := engine.ApplyTransition(c, StatusInCommitteeReview, "adv-001", "", StatusRegistered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "enr-001", terr.EnrollmentID)
	assert.Equal(t, StatusAdvisorRejected, terr.From)
	assert.Equal(t, StatusInCommitteeReview, terr.To)
}

// TestApplyTransition_InvalidTarget 测试非法目标状态
func TestApplyTransition_InvalidTarget(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})

	_, err := engine.ApplyTransition(c, Status("bogus"), "adv-001", "", StatusRegistered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

// TestApplyTransition_SelfLoop 测试自环转换(非决定票记录)
func TestApplyTransition_SelfLoop(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a", "b", "c"})
	c.Status = StatusInCommitteeReview

	next, err := engine.ApplyTransition(c, StatusInCommitteeReview, "ins-001", "vote cast: approve", StatusInCommitteeReview)
	require.NoError(t, err)

	assert.Equal(t, StatusInCommitteeReview, next.Status)
	require.Len(t, next.History, 1)
	assert.Equal(t, StatusInCommitteeReview, next.History[0].From)
	assert.Equal(t, StatusInCommitteeReview, next.History[0].To)
}

// TestApplyOverride_Safelisted 测试覆盖到安全清单内的状态
func TestApplyOverride_Safelisted(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})
	c.Status = StatusCommitteeApproved

	next, err := engine.ApplyOverride(c, StatusInCommitteeReview, "adm-001", "committee misconfigured")
	require.NoError(t, err)

	assert.Equal(t, StatusInCommitteeReview, next.Status)
	require.Len(t, next.History, 1)
	assert.Equal(t, StatusCommitteeApproved, next.History[0].From)
	assert.Equal(t, "adm-001", next.History[0].Actor)
	assert.Equal(t, "committee misconfigured", next.History[0].Reason)
}

// TestApplyOverride_AdvisorRejectedBlocked 测试覆盖不允许进入导师驳回态
func TestApplyOverride_AdvisorRejectedBlocked(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})

	_, err := engine.ApplyOverride(c, StatusAdvisorRejected, "adm-001", "whatever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

// TestTouch 测试版本递增但状态不变
func TestTouch(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})
	c.Status = StatusCommitteeApproved

	next := engine.Touch(c, "adv-001", "outcome set: pass")

	assert.Equal(t, StatusCommitteeApproved, next.Status)
	assert.Equal(t, c.Version+1, next.Version)
	require.Len(t, next.History, 1)
	assert.Equal(t, next.History[0].From, next.History[0].To)
	assert.Equal(t, "outcome set: pass", next.History[0].Reason)
}

// TestFactsFrom 测试转换事实提取
func TestFactsFrom(t *testing.T) {
	engine := NewEngine()
	c := NewCase("enr-001", "std-001", []string{"a"})

	next, err := engine.ApplyTransition(c, StatusInCommitteeReview, "adv-001", "", StatusRegistered)
	require.NoError(t, err)

	facts := FactsFrom(len(c.History), next)
	require.Len(t, facts, 1)
	assert.Equal(t, "enr-001", facts[0].EnrollmentID)
	assert.Equal(t, StatusRegistered, facts[0].From)
	assert.Equal(t, StatusInCommitteeReview, facts[0].To)
	assert.Equal(t, "adv-001", facts[0].Actor)

	// 旧快照之后没有新增历史时不产生事实
	assert.Empty(t, FactsFrom(len(next.History), next))
}
