package repository

import (
	"time"

	"github.com/aewaew419/internship-sub007/internal/model"
	"gorm.io/gorm"
)

// CaseRepository 案件仓储接口
// 只读查询路径,写入一律走 store.CaseStore 的 CAS
type CaseRepository interface {
	FindByEnrollmentID(enrollmentID string) (*model.ApprovalCaseModel, error)
	FindByFilter(filter *CaseFilter) ([]*model.ApprovalCaseModel, int64, error)
	FindStaleInReview(before time.Time) ([]*model.ApprovalCaseModel, error)
	CountByStatus() (map[string]int64, error)
}

// CaseFilter 案件查询过滤器
type CaseFilter struct {
	Status    *string
	StudentID *string
	AdvisorID *string
	Search    *string // 匹配 enrollment_id 或 student_id 前缀
	StartTime *string
	EndTime   *string
	Page      int
	PageSize  int
	SortBy    string
	Order     string
}

// caseRepository 案件仓储实现
type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository 创建案件仓储
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

// FindByEnrollmentID 根据 enrollment ID 查找案件
func (r *caseRepository) FindByEnrollmentID(enrollmentID string) (*model.ApprovalCaseModel, error) {
	var m model.ApprovalCaseModel
	if err := r.db.Where("enrollment_id = ?", enrollmentID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByFilter 根据过滤器分页查找案件
func (r *caseRepository) FindByFilter(filter *CaseFilter) ([]*model.ApprovalCaseModel, int64, error) {
	query := r.db.Model(&model.ApprovalCaseModel{})

	if filter != nil {
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
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		pageSize := filter.PageSize
		if pageSize <= 0 {
			pageSize = 20
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var cases []*model.ApprovalCaseModel
	err := query.Order("created_at DESC").Find(&cases).Error
	return cases, total, err
}

// FindStaleInReview 查找在委员会评审中停留超过给定时间点且未达法定票数的案件
func (r *caseRepository) FindStaleInReview(before time.Time) ([]*model.ApprovalCaseModel, error) {
	var cases []*model.ApprovalCaseModel
	err := r.db.
		Where("status = ?", "in_committee_review").
		Where("updated_at < ?", before).
		Where("vote_count * 2 < committee_size").
		Order("updated_at ASC").
		Find(&cases).Error
	return cases, err
}

// CountByStatus 按状态统计案件数
func (r *caseRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.ApprovalCaseModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
