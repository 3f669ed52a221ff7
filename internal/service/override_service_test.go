package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aewaew419/internship-sub007/internal/service"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// setupApprovedCase 创建一个已通过委员会评审的案件
func setupApprovedCase(t *testing.T) (store.CaseStore, service.OverrideService) {
	t.Helper()
	caseStore, votingSvc := setupReviewCase(t, []string{"ins-001", "ins-002", "ins-003"})
	ctx := context.Background()

	for _, voter := range []string{"ins-001", "ins-002"} {
		_, err := votingSvc.CastVote(ctx, "enr-001", &service.CastVoteRequest{VoterID: voter, Choice: "approve"})
		require.NoError(t, err)
	}

	c, err := caseStore.Load(ctx, "enr-001")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusCommitteeApproved, c.Status)

	return caseStore, service.NewOverrideService(caseStore, workflow.NewEngine(), nil, nil, 0)
}

// TestForceStatus_Safelisted 测试强制修改到安全清单内的状态
func TestForceStatus_Safelisted(t *testing.T) {
	_, svc := setupApprovedCase(t)

	c, err := svc.ForceStatus(context.Background(), "enr-001", &service.ForceStatusRequest{
		AdminID: "adm-001",
		Status:  "in_committee_review",
		Reason:  "committee list misconfigured, reopening review",
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusInCommitteeReview, c.Status)
	last := c.LastTransition()
	require.NotNil(t, last)
	assert.Equal(t, "adm-001", last.Actor)
	assert.Equal(t, "committee list misconfigured, reopening review", last.Reason)
}

// TestForceStatus_AdvisorRejectedBlocked 测试覆盖不能进入导师驳回态
func TestForceStatus_AdvisorRejectedBlocked(t *testing.T) {
	_, svc := setupApprovedCase(t)

	_, err := svc.ForceStatus(context.Background(), "enr-001", &service.ForceStatusRequest{
		AdminID: "adm-001",
		Status:  "advisor_rejected",
		Reason:  "should not work",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))
}

// TestForceStatus_EscapesTerminalState 测试覆盖可将终态案件退回评审
func TestForceStatus_EscapesTerminalState(t *testing.T) {
	caseStore, svc := setupApprovedCase(t)
	ctx := context.Background()

	c, err := svc.ForceStatus(ctx, "enr-001", &service.ForceStatusRequest{
		AdminID: "adm-001",
		Status:  "registered",
		Reason:  "resetting for re-review",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRegistered, c.Status)

	// 覆盖后的案件可以重新走常规流程
	advisorSvc := service.NewAdvisorService(caseStore, workflow.NewEngine(), nil, nil, 0)
	c, err = advisorSvc.Decide(ctx, "enr-001", &service.AdvisorDecisionRequest{AdvisorID: "adv-002", Approved: true})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInCommitteeReview, c.Status)
}

// TestCancel_ApprovedCase 测试取消已通过的案件
func TestCancel_ApprovedCase(t *testing.T) {
	_, svc := setupApprovedCase(t)

	c, err := svc.Cancel(context.Background(), "enr-001", &service.CancelRequest{
		AdminID: "adm-001",
		Reason:  "student withdrew from internship",
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCancelled, c.Status)
	last := c.LastTransition()
	require.NotNil(t, last)
	assert.Equal(t, workflow.StatusCommitteeApproved, last.From)
	assert.Equal(t, "student withdrew from internship", last.Reason)
}

// TestCancel_WrongStatus 测试未通过评审的案件不能取消
func TestCancel_WrongStatus(t *testing.T) {
	caseStore := store.NewMemoryCaseStore()
	newRegisteredCase(t, caseStore, "enr-001", []string{"ins-001"})
	svc := service.NewOverrideService(caseStore, workflow.NewEngine(), nil, nil, 0)

	_, err := svc.Cancel(context.Background(), "enr-001", &service.CancelRequest{
		AdminID: "adm-001",
		Reason:  "whatever",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))
}

// TestSetFinalOutcome 测试评定最终成绩
func TestSetFinalOutcome(t *testing.T) {
	_, svc := setupApprovedCase(t)
	ctx := context.Background()

	c, err := svc.SetFinalOutcome(ctx, "enr-001", &service.SetOutcomeRequest{
		ActorID: "adv-001",
		Outcome: "pass",
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomePass, c.FinalOutcome)
	assert.Equal(t, workflow.StatusCommitteeApproved, c.Status)

	// 成绩更正: 后写覆盖先写,但追加新的历史
	historyBefore := len(c.History)
	c, err = svc.SetFinalOutcome(ctx, "enr-001", &service.SetOutcomeRequest{
		ActorID: "adv-001",
		Outcome: "failed",
		Reason:  "report plagiarism confirmed",
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeFailed, c.FinalOutcome)
	assert.Len(t, c.History, historyBefore+1)
	assert.Equal(t, "report plagiarism confirmed", c.LastTransition().Reason)
}

// TestSetFinalOutcome_WrongStatus 测试非通过态不能评定成绩
func TestSetFinalOutcome_WrongStatus(t *testing.T) {
	caseStore := store.NewMemoryCaseStore()
	newRegisteredCase(t, caseStore, "enr-001", []string{"ins-001"})
	svc := service.NewOverrideService(caseStore, workflow.NewEngine(), nil, nil, 0)

	_, err := svc.SetFinalOutcome(context.Background(), "enr-001", &service.SetOutcomeRequest{
		ActorID: "adv-001",
		Outcome: "pass",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))
}

// TestSetFinalOutcome_InvalidOutcome 测试非法成绩值
func TestSetFinalOutcome_InvalidOutcome(t *testing.T) {
	_, svc := setupApprovedCase(t)

	_, err := svc.SetFinalOutcome(context.Background(), "enr-001", &service.SetOutcomeRequest{
		ActorID: "adv-001",
		Outcome: "maybe",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid final outcome")
}
