package workflow

import (
	"time"
)

// Engine 状态转换引擎
// 唯一允许修改 status 和追加 history 的代码路径,
// 导师门、委员会投票和管理员覆盖都经由它完成转换,保证审计与状态永不分叉
type Engine struct{}

// NewEngine 创建状态转换引擎
func NewEngine() *Engine {
	return &Engine{}
}

// ApplyTransition 应用受保护的状态转换
// 当前状态不在 allowedFrom 内时返回 InvalidTransition;
// 成功时在副本上更新状态、追加一条历史并递增版本号,原案件不被修改
func (e *Engine) ApplyTransition(c *ApprovalCase, to Status, actor, reason string, allowedFrom ...Status) (*ApprovalCase, error) {
	if !ValidStatus(to) {
		return nil, NewTransitionError(c.EnrollmentID, c.Status, to)
	}

	allowed := false
	for _, from := range allowedFrom {
		if c.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, NewTransitionError(c.EnrollmentID, c.Status, to)
	}

	return e.transition(c.Clone(), to, actor, reason), nil
}

// ApplyOverride 应用管理员覆盖转换
// 绕过常规边检查但仍走同一转换路径,目标状态必须在安全清单内
func (e *Engine) ApplyOverride(c *ApprovalCase, to Status, actor, reason string) (*ApprovalCase, error) {
	if !OverrideSafelist[to] {
		return nil, NewTransitionError(c.EnrollmentID, c.Status, to)
	}
	return e.transition(c.Clone(), to, actor, reason), nil
}

// transition 执行转换: 更新状态、追加历史、递增版本
func (e *Engine) transition(c *ApprovalCase, to Status, actor, reason string) *ApprovalCase {
	now := time.Now()
	c.History = append(c.History, &StatusTransition{
		From:   c.Status,
		To:     to,
		Actor:  actor,
		Reason: reason,
		At:     now,
	})
	c.Status = to
	c.Version++
	c.UpdatedAt = now
	return c
}

// Touch 在不转换状态的前提下递增版本并追加历史
// 用于最终成绩修改这类需要审计但不改变状态的变更
func (e *Engine) Touch(c *ApprovalCase, actor, reason string) *ApprovalCase {
	now := time.Now()
	clone := c.Clone()
	clone.History = append(clone.History, &StatusTransition{
		From:   clone.Status,
		To:     clone.Status,
		Actor:  actor,
		Reason: reason,
		At:     now,
	})
	clone.Version++
	clone.UpdatedAt = now
	return clone
}
