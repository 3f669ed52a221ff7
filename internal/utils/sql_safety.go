package utils

import (
	"errors"
	"strings"
)

// sortableFields approval_cases 表允许排序的列
// 白名单校验,任何不在列内的字段一律拒绝,从根上防止排序注入
var sortableFields = map[string]bool{
	"enrollment_id":  true,
	"student_id":     true,
	"status":         true,
	"advisor_id":     true,
	"vote_count":     true,
	"committee_size": true,
	"version":        true,
	"created_at":     true,
	"updated_at":     true,
}

// ValidateSortField 验证排序字段
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortableFields[field] {
		return errors.New("sort field not allowed")
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "DESC" // 默认降序
}
