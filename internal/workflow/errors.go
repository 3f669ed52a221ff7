package workflow

import (
	"errors"
	"fmt"
)

// 工作流错误种类
// 所有跨边界错误都带类型,调用方通过 errors.Is/As 判断而不是解析消息
var (
	// ErrNotFound 案件不存在
	ErrNotFound = errors.New("approval case not found")
	// ErrAlreadyExists 案件已存在
	ErrAlreadyExists = errors.New("approval case already exists")
	// ErrInvalidTransition 当前状态不允许该转换
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAuthorized 操作人不是该案件的合法参与者
	ErrNotAuthorized = errors.New("actor not authorized for this case")
	// ErrDuplicateVote 该委员已投过票
	ErrDuplicateVote = errors.New("committee member already voted")
	// ErrVersionConflict CAS 版本冲突(内部错误,会被重试)
	ErrVersionConflict = errors.New("case version conflict")
	// ErrTransient 重试耗尽或超时,调用方可稍后重试
	ErrTransient = errors.New("transient failure, retry later")
)

// TransitionError 非法状态转换错误
// 携带案件 ID 和转换详情,供上层渲染用户可见消息
type TransitionError struct {
	EnrollmentID string
	From         Status
	To           Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for case %q: %s -> %s", e.EnrollmentID, e.From, e.To)
}

// Unwrap 支持 errors.Is(err, ErrInvalidTransition)
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError 创建非法转换错误
func NewTransitionError(enrollmentID string, from, to Status) error {
	return &TransitionError{EnrollmentID: enrollmentID, From: from, To: to}
}
