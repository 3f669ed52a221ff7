package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// VotingService 委员会投票协调服务接口
// 每位委员至多一票,达到法定票数时在同一次提交内触发决议,决议恰好发生一次
type VotingService interface {
	CastVote(ctx context.Context, enrollmentID string, req *CastVoteRequest) (*VoteResult, error)
}

// CastVoteRequest 投票请求
// @Description 委员投票的请求参数
type CastVoteRequest struct {
	VoterID string `json:"voter_id" example:"ins-001" binding:"required"`                    // 委员 ID
	Choice  string `json:"choice" example:"approve" binding:"required,oneof=approve reject"` // 投票选项
	Remarks string `json:"remarks" example:"选题合理,同意"`                                  // 投票意见
}

// VoteResult 投票结果
// @Description 投票结果,包含最新案件快照和是否触发决议
type VoteResult struct {
	Case          *workflow.ApprovalCase `json:"case"`
	QuorumReached bool                   `json:"quorum_reached"` // 本票是否为决定票
}

// votingService 委员会投票协调服务实现
type votingService struct {
	caseStore   store.CaseStore
	engine      *workflow.Engine
	sink        TransitionSink
	auditLogSvc AuditLogService
	retryLimit  int
}

// NewVotingService 创建投票服务
// retryLimit 为版本冲突重试上限,<=0 时使用默认值
func NewVotingService(caseStore store.CaseStore, engine *workflow.Engine, sink TransitionSink, auditLogSvc AuditLogService, retryLimit int) VotingService {
	return &votingService{
		caseStore:   caseStore,
		engine:      engine,
		sink:        sink,
		auditLogSvc: auditLogSvc,
		retryLimit:  retryLimit,
	}
}

// CastVote 委员投票
// 完整的 load-validate-modify-CAS 循环: 前置条件逐项校验(顺序固定,各对应独立错误),
// 插票和可能的决议在同一个聚合副本上完成,由同一次 CAS 一起提交,
// 两个并发投票者都认为自己投出决定票时只有一个能提交成功,另一个重试后观察到已插入的票
func (s *votingService) CastVote(ctx context.Context, enrollmentID string, req *CastVoteRequest) (*VoteResult, error) {
	choice := workflow.VoteChoice(req.Choice)
	if !workflow.ValidChoice(choice) {
		return nil, fmt.Errorf("invalid vote choice %q", req.Choice)
	}

	var result *VoteResult

	err := withCASRetry(ctx, s.retryLimit, func(ctx context.Context) error {
		// 1. 加载最新快照,前置条件必须基于它而不是调用方手里的旧副本
		c, err := s.caseStore.Load(ctx, enrollmentID)
		if err != nil {
			return err
		}
		prevHistory := len(c.History)

		// 2. 前置条件,顺序固定
		if c.Status != workflow.StatusInCommitteeReview {
			return workflow.NewTransitionError(c.EnrollmentID, c.Status, workflow.StatusInCommitteeReview)
		}
		if !c.IsCommitteeMember(req.VoterID) {
			return fmt.Errorf("voter %q is not on the committee of case %q: %w",
				req.VoterID, enrollmentID, workflow.ErrNotAuthorized)
		}
		if c.HasVoted(req.VoterID) {
			return fmt.Errorf("voter %q on case %q: %w", req.VoterID, enrollmentID, workflow.ErrDuplicateVote)
		}

		// 3. 用插票后的票型预判决议
		// 决定票的历史条目直接记录出评审态的转换,非决定票记录一条自环,
		// 两种情况每次接受的变更都恰好追加一条历史
		vote := &workflow.Vote{
			Voter:   req.VoterID,
			Choice:  choice,
			Remarks: req.Remarks,
			CastAt:  time.Now(),
		}
		projected := c.Clone()
		projected.Votes[req.VoterID] = vote

		to := workflow.StatusInCommitteeReview
		reason := fmt.Sprintf("vote cast: %s", choice)
		deciding := projected.QuorumReached()
		if deciding {
			approve, reject := projected.Tally()
			to = projected.Resolution()
			reason = fmt.Sprintf("quorum reached: %d approve / %d reject", approve, reject)
		}

		// 4. 转换与插票落在同一副本,由同一次 CAS 提交
		next, err := s.engine.ApplyTransition(c, to, req.VoterID, reason, workflow.StatusInCommitteeReview)
		if err != nil {
			return err
		}
		next.Votes[req.VoterID] = vote

		if err := s.caseStore.CompareAndSwap(ctx, c.Version, next); err != nil {
			return err
		}

		publishFacts(s.sink, prevHistory, next)
		result = &VoteResult{Case: next, QuorumReached: deciding}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 记录业务指标
	metrics.RecordVoteCast(req.Choice)
	if result.QuorumReached {
		metrics.RecordQuorumResolution(string(result.Case.Status))
	}

	// 记录审计日志
	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"enrollment_id":"%s","choice":"%s","quorum_reached":%t}`,
			enrollmentID, req.Choice, result.QuorumReached)
		_ = s.auditLogSvc.RecordAction(ctx, req.VoterID, "vote", "case", enrollmentID, details)
	}

	return result, nil
}
