package repository

import (
	"github.com/aewaew419/internship-sub007/internal/model"
	"gorm.io/gorm"
)

// StatusHistoryRepository 状态历史仓储接口
type StatusHistoryRepository interface {
	Save(history *model.StatusHistoryModel) error
	FindByEnrollmentID(enrollmentID string) ([]*model.StatusHistoryModel, error)
	FindLatest(enrollmentID string) (*model.StatusHistoryModel, error)
}

// statusHistoryRepository 状态历史仓储实现
type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态历史仓储
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

// Save 保存状态历史
func (r *statusHistoryRepository) Save(history *model.StatusHistoryModel) error {
	return r.db.Save(history).Error
}

// FindByEnrollmentID 根据 enrollment ID 查找状态历史
func (r *statusHistoryRepository) FindByEnrollmentID(enrollmentID string) ([]*model.StatusHistoryModel, error) {
	var histories []*model.StatusHistoryModel
	err := r.db.Where("enrollment_id = ?", enrollmentID).Order("created_at ASC").Find(&histories).Error
	return histories, err
}

// FindLatest 查找案件最近一条状态历史
func (r *statusHistoryRepository) FindLatest(enrollmentID string) (*model.StatusHistoryModel, error) {
	var history model.StatusHistoryModel
	err := r.db.Where("enrollment_id = ?", enrollmentID).Order("created_at DESC").First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}
