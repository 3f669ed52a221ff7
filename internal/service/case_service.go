package service

import (
	"context"
	"fmt"

	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// CaseService 案件服务接口
// 外部选课/名册流程确认实习名额后,经由它登记案件
type CaseService interface {
	Create(ctx context.Context, req *CreateCaseRequest) (*workflow.ApprovalCase, error)
	Get(ctx context.Context, enrollmentID string) (*workflow.ApprovalCase, error)
}

// CreateCaseRequest 创建案件请求
// @Description 登记审批案件的请求参数
type CreateCaseRequest struct {
	EnrollmentID string   `json:"enrollment_id" example:"enr-001" binding:"required"`         // 实习登记 ID
	StudentID    string   `json:"student_id" example:"std-001" binding:"required"`            // 学生 ID
	Committee    []string `json:"committee" example:"ins-001,ins-002,ins-003" binding:"required,min=1"` // 委员会成员 ID 列表,创建后不可变
}

// caseService 案件服务实现
type caseService struct {
	caseStore   store.CaseStore
	auditLogSvc AuditLogService
}

// NewCaseService 创建案件服务
func NewCaseService(caseStore store.CaseStore, auditLogSvc AuditLogService) CaseService {
	return &caseService{
		caseStore:   caseStore,
		auditLogSvc: auditLogSvc,
	}
}

// Create 登记案件,初始状态为 registered
func (s *caseService) Create(ctx context.Context, req *CreateCaseRequest) (*workflow.ApprovalCase, error) {
	// 1. 委员会名单去重校验
	seen := make(map[string]bool, len(req.Committee))
	for _, m := range req.Committee {
		if m == "" {
			return nil, fmt.Errorf("committee member ID must not be empty")
		}
		if seen[m] {
			return nil, fmt.Errorf("duplicate committee member %q", m)
		}
		seen[m] = true
	}

	// 2. 创建并落库
	c := workflow.NewCase(req.EnrollmentID, req.StudentID, req.Committee)
	if err := s.caseStore.Create(ctx, c); err != nil {
		return nil, err
	}

	// 记录业务指标
	metrics.RecordCaseCreated()

	// 记录审计日志
	if s.auditLogSvc != nil {
		userID := getUserIDFromContext(ctx)
		if userID != "" {
			details := fmt.Sprintf(`{"enrollment_id":"%s","student_id":"%s","committee_size":%d}`,
				c.EnrollmentID, c.StudentID, len(c.Committee))
			_ = s.auditLogSvc.RecordAction(ctx, userID, "create", "case", c.EnrollmentID, details)
		}
	}

	return c, nil
}

// Get 获取案件详情
func (s *caseService) Get(ctx context.Context, enrollmentID string) (*workflow.ApprovalCase, error) {
	return s.caseStore.Load(ctx, enrollmentID)
}
