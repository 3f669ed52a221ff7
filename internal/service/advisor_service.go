package service

import (
	"context"
	"fmt"

	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// AdvisorService 导师门服务接口
// 单一导师的通过/驳回决定,把案件从登记态送入委员会评审或直接终结
type AdvisorService interface {
	Decide(ctx context.Context, enrollmentID string, req *AdvisorDecisionRequest) (*workflow.ApprovalCase, error)
}

// AdvisorDecisionRequest 导师审核请求
// @Description 导师审核的请求参数
type AdvisorDecisionRequest struct {
	AdvisorID string `json:"advisor_id" example:"adv-001" binding:"required"` // 导师 ID
	Approved  bool   `json:"approved" example:"true"`                         // 是否通过
	Remarks   string `json:"remarks" example:"材料齐全,同意送审"`               // 审核意见
}

// advisorService 导师门服务实现
type advisorService struct {
	caseStore   store.CaseStore
	engine      *workflow.Engine
	sink        TransitionSink
	auditLogSvc AuditLogService
	retryLimit  int
}

// NewAdvisorService 创建导师门服务
// retryLimit 为版本冲突重试上限,<=0 时使用默认值
func NewAdvisorService(caseStore store.CaseStore, engine *workflow.Engine, sink TransitionSink, auditLogSvc AuditLogService, retryLimit int) AdvisorService {
	return &advisorService{
		caseStore:   caseStore,
		engine:      engine,
		sink:        sink,
		auditLogSvc: auditLogSvc,
		retryLimit:  retryLimit,
	}
}

// Decide 导师审核
// 前置条件: 案件处于 registered;重复审核返回 InvalidTransition
// 案件在 registered 态只会经历一次导师操作,并发重放由 CAS 版本检查兜底
func (s *advisorService) Decide(ctx context.Context, enrollmentID string, req *AdvisorDecisionRequest) (*workflow.ApprovalCase, error) {
	var result *workflow.ApprovalCase

	err := withCASRetry(ctx, s.retryLimit, func(ctx context.Context) error {
		// 1. 加载最新快照
		c, err := s.caseStore.Load(ctx, enrollmentID)
		if err != nil {
			return err
		}
		prevHistory := len(c.History)

		// 2. 应用转换
		to := workflow.StatusInCommitteeReview
		if !req.Approved {
			to = workflow.StatusAdvisorRejected
		}
		next, err := s.engine.ApplyTransition(c, to, req.AdvisorID, req.Remarks, workflow.StatusRegistered)
		if err != nil {
			return err
		}
		if req.Approved {
			next.AdvisorID = req.AdvisorID
		}

		// 3. CAS 写入
		if err := s.caseStore.CompareAndSwap(ctx, c.Version, next); err != nil {
			return err
		}

		publishFacts(s.sink, prevHistory, next)
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 记录业务指标
	if req.Approved {
		metrics.RecordAdvisorDecision("approve")
	} else {
		metrics.RecordAdvisorDecision("reject")
	}

	// 记录审计日志
	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"enrollment_id":"%s","approved":%t,"remarks":"%s"}`,
			enrollmentID, req.Approved, req.Remarks)
		_ = s.auditLogSvc.RecordAction(ctx, req.AdvisorID, "decide", "case", enrollmentID, details)
	}

	return result, nil
}
