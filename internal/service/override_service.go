package service

import (
	"context"
	"fmt"

	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// OverrideService 管理员覆盖服务接口
// 有审计的人工纠偏入口: 强制改状态、取消已通过案件、评定最终成绩
type OverrideService interface {
	ForceStatus(ctx context.Context, enrollmentID string, req *ForceStatusRequest) (*workflow.ApprovalCase, error)
	Cancel(ctx context.Context, enrollmentID string, req *CancelRequest) (*workflow.ApprovalCase, error)
	SetFinalOutcome(ctx context.Context, enrollmentID string, req *SetOutcomeRequest) (*workflow.ApprovalCase, error)
}

// ForceStatusRequest 强制改状态请求
// @Description 管理员强制修改案件状态的请求参数
type ForceStatusRequest struct {
	AdminID string `json:"admin_id" example:"adm-001" binding:"required"`          // 管理员 ID
	Status  string `json:"status" example:"in_committee_review" binding:"required"` // 目标状态,仅限安全清单
	Reason  string `json:"reason" example:"委员名单配置错误,退回重审" binding:"required"` // 修改原因,必填
}

// CancelRequest 取消案件请求
// @Description 取消已通过案件的请求参数
type CancelRequest struct {
	AdminID string `json:"admin_id" example:"adm-001" binding:"required"` // 管理员 ID
	Reason  string `json:"reason" example:"学生放弃实习" binding:"required"` // 取消原因,必填
}

// SetOutcomeRequest 评定最终成绩请求
// @Description 评定实习最终成绩的请求参数
type SetOutcomeRequest struct {
	ActorID string `json:"actor_id" example:"adv-001" binding:"required"`          // 评定人 ID
	Outcome string `json:"outcome" example:"pass" binding:"required,oneof=pass failed"` // 成绩
	Reason  string `json:"reason" example:"实习报告合格"`                          // 评定原因
}

// overrideService 管理员覆盖服务实现
type overrideService struct {
	caseStore   store.CaseStore
	engine      *workflow.Engine
	sink        TransitionSink
	auditLogSvc AuditLogService
	retryLimit  int
}

// NewOverrideService 创建管理员覆盖服务
// retryLimit 为版本冲突重试上限,<=0 时使用默认值
func NewOverrideService(caseStore store.CaseStore, engine *workflow.Engine, sink TransitionSink, auditLogSvc AuditLogService, retryLimit int) OverrideService {
	return &overrideService{
		caseStore:   caseStore,
		engine:      engine,
		sink:        sink,
		auditLogSvc: auditLogSvc,
		retryLimit:  retryLimit,
	}
}

// ForceStatus 强制修改案件状态
// 绕过常规边检查,但目标状态必须在安全清单内,且仍走统一转换路径保留审计
func (s *overrideService) ForceStatus(ctx context.Context, enrollmentID string, req *ForceStatusRequest) (*workflow.ApprovalCase, error) {
	to := workflow.Status(req.Status)

	var result *workflow.ApprovalCase
	err := withCASRetry(ctx, s.retryLimit, func(ctx context.Context) error {
		c, err := s.caseStore.Load(ctx, enrollmentID)
		if err != nil {
			return err
		}
		prevHistory := len(c.History)

		next, err := s.engine.ApplyOverride(c, to, req.AdminID, req.Reason)
		if err != nil {
			return err
		}

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

	metrics.RecordOverride("force_status")

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"enrollment_id":"%s","status":"%s","reason":"%s"}`,
			enrollmentID, req.Status, req.Reason)
		_ = s.auditLogSvc.RecordAction(ctx, req.AdminID, "force_status", "case", enrollmentID, details)
	}

	return result, nil
}

// Cancel 取消案件
// 前置条件: 案件处于 committee_approved,其余状态保持原样并返回 InvalidTransition
func (s *overrideService) Cancel(ctx context.Context, enrollmentID string, req *CancelRequest) (*workflow.ApprovalCase, error) {
	var result *workflow.ApprovalCase
	err := withCASRetry(ctx, s.retryLimit, func(ctx context.Context) error {
		c, err := s.caseStore.Load(ctx, enrollmentID)
		if err != nil {
			return err
		}
		prevHistory := len(c.History)

		next, err := s.engine.ApplyTransition(c, workflow.StatusCancelled, req.AdminID, req.Reason,
			workflow.StatusCommitteeApproved)
		if err != nil {
			return err
		}

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

	metrics.RecordOverride("cancel")

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"enrollment_id":"%s","reason":"%s"}`, enrollmentID, req.Reason)
		_ = s.auditLogSvc.RecordAction(ctx, req.AdminID, "cancel", "case", enrollmentID, details)
	}

	return result, nil
}

// SetFinalOutcome 评定最终成绩
// 仅允许在 committee_approved 状态下评定;后写覆盖先写,
// 但每次修改都追加历史,成绩更正可审计而不是被悄悄覆盖
func (s *overrideService) SetFinalOutcome(ctx context.Context, enrollmentID string, req *SetOutcomeRequest) (*workflow.ApprovalCase, error) {
	outcome := workflow.Outcome(req.Outcome)
	if !workflow.ValidOutcome(outcome) {
		return nil, fmt.Errorf("invalid final outcome %q", req.Outcome)
	}

	var result *workflow.ApprovalCase
	err := withCASRetry(ctx, s.retryLimit, func(ctx context.Context) error {
		c, err := s.caseStore.Load(ctx, enrollmentID)
		if err != nil {
			return err
		}
		prevHistory := len(c.History)

		if c.Status != workflow.StatusCommitteeApproved {
			return workflow.NewTransitionError(c.EnrollmentID, c.Status, c.Status)
		}

		reason := req.Reason
		if reason == "" {
			reason = fmt.Sprintf("final outcome set to %s", outcome)
		}
		next := s.engine.Touch(c, req.ActorID, reason)
		next.FinalOutcome = outcome

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

	metrics.RecordOverride("set_outcome")

	if s.auditLogSvc != nil {
		details := fmt.Sprintf(`{"enrollment_id":"%s","outcome":"%s","reason":"%s"}`,
			enrollmentID, req.Outcome, req.Reason)
		_ = s.auditLogSvc.RecordAction(ctx, req.ActorID, "set_outcome", "case", enrollmentID, details)
	}

	return result, nil
}
