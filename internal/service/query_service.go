package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/model"
	"github.com/aewaew419/internship-sub007/internal/repository"
	"github.com/aewaew419/internship-sub007/internal/store"
	"github.com/aewaew419/internship-sub007/internal/utils"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// conflictReasonPrefix 历史条目被标记为冲突的 reason 前缀
const conflictReasonPrefix = "conflict:"

// QueryService 查询服务接口
// 纯读投影,不产生任何变更
type QueryService interface {
	GetStatus(ctx context.Context, enrollmentID string) (*CaseStatus, error)
	ListCases(ctx context.Context, filter *ListCasesFilter) ([]*CaseSummary, int64, error)
	ListAttentionQueue(ctx context.Context, filter *AttentionQueueFilter) ([]*AttentionEntry, int64, error)
	GetHistory(ctx context.Context, enrollmentID string) ([]*StatusHistory, error)
}

// CaseStatus 案件状态投影
// 全部派生自单个案件聚合,不做跨案件联查
type CaseStatus struct {
	EnrollmentID  string                       `json:"enrollment_id"`
	StudentID     string                       `json:"student_id"`
	Status        workflow.Status              `json:"status"`
	AdvisorID     string                       `json:"advisor_id,omitempty"`
	CommitteeSize int                          `json:"committee_size"`
	ApproveCount  int                          `json:"approve_count"`
	RejectCount   int                          `json:"reject_count"`
	QuorumReached bool                         `json:"quorum_reached"`
	FinalOutcome  workflow.Outcome             `json:"final_outcome"`
	History       []*workflow.StatusTransition `json:"history"`
}

// CaseSummary 案件列表投影
type CaseSummary struct {
	EnrollmentID  string `json:"enrollment_id"`
	StudentID     string `json:"student_id"`
	Status        string `json:"status"`
	AdvisorID     string `json:"advisor_id,omitempty"`
	VoteCount     int    `json:"vote_count"`
	CommitteeSize int    `json:"committee_size"`
	FinalOutcome  string `json:"final_outcome"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ListCasesFilter 案件列表查询过滤器
type ListCasesFilter struct {
	Status    *string
	StudentID *string
	AdvisorID *string
	Search    *string
	StartTime *string
	EndTime   *string
	Page      int
	PageSize  int
	SortBy    string
	Order     string
}

// AttentionQueueFilter 待关注队列过滤器
type AttentionQueueFilter struct {
	Status   *string
	Search   *string
	Page     int
	PageSize int
}

// AttentionEntry 待关注队列条目
// 评审停滞超窗的案件,或最近一次历史带冲突标记的案件
type AttentionEntry struct {
	EnrollmentID  string `json:"enrollment_id"`
	StudentID     string `json:"student_id"`
	Status        string `json:"status"`
	VoteCount     int    `json:"vote_count"`
	CommitteeSize int    `json:"committee_size"`
	StaleSince    string `json:"stale_since,omitempty"`  // 进入停滞的时间
	ConflictFlag  string `json:"conflict_flag,omitempty"` // 冲突标记原因
}

// StatusHistory 状态历史投影
type StatusHistory struct {
	ID           string `json:"id"`
	EnrollmentID string `json:"enrollment_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	Reason       string `json:"reason"`
	Actor        string `json:"actor"`
	CreatedAt    string `json:"created_at"`
}

// queryService 查询服务实现
type queryService struct {
	db             *gorm.DB
	caseStore      store.CaseStore
	caseRepo       repository.CaseRepository
	historyRepo    repository.StatusHistoryRepository
	stalenessAfter func() time.Duration
}

// NewQueryService 创建查询服务
// stalenessAfter 返回停滞判定窗口,支持配置热更新
func NewQueryService(db *gorm.DB, caseStore store.CaseStore, stalenessAfter func() time.Duration) QueryService {
	if stalenessAfter == nil {
		stalenessAfter = func() time.Duration { return 7 * 24 * time.Hour }
	}
	return &queryService{
		db:             db,
		caseStore:      caseStore,
		caseRepo:       repository.NewCaseRepository(db),
		historyRepo:    repository.NewStatusHistoryRepository(db),
		stalenessAfter: stalenessAfter,
	}
}

// GetStatus 获取案件当前状态、票型和完整历史
// 无中间变更时重复调用返回一致结果
func (s *queryService) GetStatus(ctx context.Context, enrollmentID string) (*CaseStatus, error) {
	c, err := s.caseStore.Load(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	approve, reject := c.Tally()
	return &CaseStatus{
		EnrollmentID:  c.EnrollmentID,
		StudentID:     c.StudentID,
		Status:        c.Status,
		AdvisorID:     c.AdvisorID,
		CommitteeSize: len(c.Committee),
		ApproveCount:  approve,
		RejectCount:   reject,
		QuorumReached: c.QuorumReached(),
		FinalOutcome:  c.FinalOutcome,
		History:       c.History,
	}, nil
}

// ListCases 分页列出案件
func (s *queryService) ListCases(ctx context.Context, filter *ListCasesFilter) ([]*CaseSummary, int64, error) {
	// 构建查询
	query := s.db.WithContext(ctx).Model(&model.ApprovalCaseModel{})

	// 应用过滤条件
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.AdvisorID != nil {
		query = query.Where("advisor_id = ?", *filter.AdvisorID)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := *filter.Search + "%"
		query = query.Where("enrollment_id LIKE ? OR student_id LIKE ?", pattern, pattern)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	// 应用排序（验证并清理排序字段，防止 SQL 注入）
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if err := utils.ValidateSortField(sortBy); err != nil {
		return nil, 0, fmt.Errorf("invalid sort field: %w", err)
	}

	order := filter.Order
	if order == "" {
		order = "desc"
	}
	if err := utils.ValidateSortOrder(order); err != nil {
		return nil, 0, fmt.Errorf("invalid sort order: %w", err)
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, strings.ToUpper(order)))

	// 应用分页
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	// 执行查询
	var models []model.ApprovalCaseModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query cases: %w", err)
	}

	summaries := make([]*CaseSummary, 0, len(models))
	for _, m := range models {
		summaries = append(summaries, summaryFromModel(&m))
	}

	return summaries, total, nil
}

// ListAttentionQueue 列出需要管理员关注的案件
// 两类来源: 评审停滞超窗且未达法定票数的案件,
// 以及最近一次历史条目带冲突标记的案件
func (s *queryService) ListAttentionQueue(ctx context.Context, filter *AttentionQueueFilter) ([]*AttentionEntry, int64, error) {
	cutoff := time.Now().Add(-s.stalenessAfter())

	// 1. 停滞案件
	stale, err := s.caseRepo.FindStaleInReview(cutoff)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query stale cases: %w", err)
	}

	entries := make([]*AttentionEntry, 0, len(stale))
	seen := make(map[string]*AttentionEntry, len(stale))
	for _, m := range stale {
		entry := &AttentionEntry{
			EnrollmentID:  m.EnrollmentID,
			StudentID:     m.StudentID,
			Status:        m.Status,
			VoteCount:     m.VoteCount,
			CommitteeSize: m.CommitteeSize,
			StaleSince:    m.UpdatedAt.Format(time.RFC3339),
		}
		entries = append(entries, entry)
		seen[m.EnrollmentID] = entry
	}

	// 2. 冲突标记案件: 最近一条历史的 reason 以冲突前缀开头
	var flagged []model.StatusHistoryModel
	err = s.db.WithContext(ctx).
		Where("reason LIKE ?", conflictReasonPrefix+"%").
		Order("created_at DESC").
		Find(&flagged).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conflict history: %w", err)
	}

	for _, h := range flagged {
		if existing, ok := seen[h.EnrollmentID]; ok {
			if existing.ConflictFlag == "" {
				existing.ConflictFlag = h.Reason
			}
			continue
		}

		// 只有仍是最新条目的冲突标记才入队
		latest, err := s.historyRepo.FindLatest(h.EnrollmentID)
		if err != nil || latest.ID != h.ID {
			continue
		}

		m, err := s.caseRepo.FindByEnrollmentID(h.EnrollmentID)
		if err != nil {
			continue
		}
		entry := &AttentionEntry{
			EnrollmentID:  m.EnrollmentID,
			StudentID:     m.StudentID,
			Status:        m.Status,
			VoteCount:     m.VoteCount,
			CommitteeSize: m.CommitteeSize,
			ConflictFlag:  h.Reason,
		}
		entries = append(entries, entry)
		seen[h.EnrollmentID] = entry
	}

	// 3. 过滤
	if filter != nil && (filter.Status != nil || (filter.Search != nil && *filter.Search != "")) {
		filtered := entries[:0]
		for _, e := range entries {
			if filter.Status != nil && e.Status != *filter.Status {
				continue
			}
			if filter.Search != nil && *filter.Search != "" &&
				!strings.HasPrefix(e.EnrollmentID, *filter.Search) &&
				!strings.HasPrefix(e.StudentID, *filter.Search) {
				continue
			}
			filtered = append(filtered, e)
		}
		entries = filtered
	}

	total := int64(len(entries))

	// 4. 分页
	page, pageSize := 1, 20
	if filter != nil {
		if filter.Page > 0 {
			page = filter.Page
		}
		if filter.PageSize > 0 {
			pageSize = filter.PageSize
		}
	}
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return []*AttentionEntry{}, total, nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}

	return entries[start:end], total, nil
}

// GetHistory 获取状态历史
func (s *queryService) GetHistory(ctx context.Context, enrollmentID string) ([]*StatusHistory, error) {
	models, err := s.historyRepo.FindByEnrollmentID(enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	histories := make([]*StatusHistory, 0, len(models))
	for _, m := range models {
		histories = append(histories, &StatusHistory{
			ID:           m.ID,
			EnrollmentID: m.EnrollmentID,
			FromStatus:   m.FromStatus,
			ToStatus:     m.ToStatus,
			Reason:       m.Reason,
			Actor:        m.Actor,
			CreatedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return histories, nil
}

// summaryFromModel 将持久化模型转换为列表投影
func summaryFromModel(m *model.ApprovalCaseModel) *CaseSummary {
	return &CaseSummary{
		EnrollmentID:  m.EnrollmentID,
		StudentID:     m.StudentID,
		Status:        m.Status,
		AdvisorID:     m.AdvisorID,
		VoteCount:     m.VoteCount,
		CommitteeSize: m.CommitteeSize,
		FinalOutcome:  m.FinalOutcome,
		CreatedAt:     m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
