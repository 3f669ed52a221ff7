package service

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/model"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetCaseStatisticsByStatus() ([]*CaseStatisticsByStatus, error)
	GetCaseStatisticsByTime() ([]*CaseStatisticsByTime, error)
	GetResolutionStatistics() (*ResolutionStatistics, error)
}

// CaseStatisticsByStatus 按状态统计
type CaseStatisticsByStatus struct {
	Status string
	Count  int64
}

// CaseStatisticsByTime 按时间统计
type CaseStatisticsByTime struct {
	Date  string
	Count int64
}

// ResolutionStatistics 决议统计
type ResolutionStatistics struct {
	TotalResolved     int64
	ApprovedCount     int64
	RejectedCount     int64
	ApprovalRate      float64
	AverageVoteCount  float64 // 决议时的平均投票数
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetCaseStatisticsByStatus 按状态统计案件
func (s *statisticsService) GetCaseStatisticsByStatus() ([]*CaseStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.ApprovalCaseModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics by status: %w", err)
	}

	stats := make([]*CaseStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &CaseStatisticsByStatus{
			Status: r.Status,
			Count:  r.Count,
		})
	}
	return stats, nil
}

// GetCaseStatisticsByTime 按创建日期统计案件
func (s *statisticsService) GetCaseStatisticsByTime() ([]*CaseStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := s.db.Model(&model.ApprovalCaseModel{}).
		Select("DATE(created_at) as date, count(*) as count").
		Group("DATE(created_at)").
		Order("date DESC").
		Limit(30).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics by time: %w", err)
	}

	stats := make([]*CaseStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &CaseStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}
	return stats, nil
}

// GetResolutionStatistics 统计委员会决议结果
func (s *statisticsService) GetResolutionStatistics() (*ResolutionStatistics, error) {
	var approved, rejected int64

	if err := s.db.Model(&model.ApprovalCaseModel{}).
		Where("status = ?", "committee_approved").
		Count(&approved).Error; err != nil {
		return nil, fmt.Errorf("failed to count approved cases: %w", err)
	}
	if err := s.db.Model(&model.ApprovalCaseModel{}).
		Where("status = ?", "committee_rejected").
		Count(&rejected).Error; err != nil {
		return nil, fmt.Errorf("failed to count rejected cases: %w", err)
	}

	total := approved + rejected
	stats := &ResolutionStatistics{
		TotalResolved: total,
		ApprovedCount: approved,
		RejectedCount: rejected,
	}
	if total > 0 {
		stats.ApprovalRate = float64(approved) / float64(total)

		var avg struct{ Avg float64 }
		err := s.db.Model(&model.ApprovalCaseModel{}).
			Select("AVG(vote_count) as avg").
			Where("status IN ?", []string{"committee_approved", "committee_rejected"}).
			Scan(&avg).Error
		if err != nil {
			return nil, fmt.Errorf("failed to compute average vote count: %w", err)
		}
		stats.AverageVoteCount = avg.Avg
	}

	return stats, nil
}
