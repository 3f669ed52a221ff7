package workflow

// Status 审批案件状态
type Status string

const (
	// StatusRegistered 已登记,等待导师审核
	StatusRegistered Status = "registered"
	// StatusAdvisorRejected 导师驳回(终态)
	StatusAdvisorRejected Status = "advisor_rejected"
	// StatusInCommitteeReview 委员会评审中
	StatusInCommitteeReview Status = "in_committee_review"
	// StatusCommitteeApproved 委员会通过(终态)
	StatusCommitteeApproved Status = "committee_approved"
	// StatusCommitteeRejected 委员会驳回(终态)
	StatusCommitteeRejected Status = "committee_rejected"
	// StatusCancelled 已取消(终态)
	StatusCancelled Status = "cancelled"
)

// VoteChoice 投票选项
type VoteChoice string

const (
	// VoteApprove 同意
	VoteApprove VoteChoice = "approve"
	// VoteReject 拒绝
	VoteReject VoteChoice = "reject"
)

// Outcome 实习最终成绩
type Outcome string

const (
	// OutcomeUnset 未评定
	OutcomeUnset Outcome = "unset"
	// OutcomePass 通过
	OutcomePass Outcome = "pass"
	// OutcomeFailed 未通过
	OutcomeFailed Outcome = "failed"
)

// ValidStatus 判断状态是否合法
func ValidStatus(s Status) bool {
	switch s {
	case StatusRegistered, StatusAdvisorRejected, StatusInCommitteeReview,
		StatusCommitteeApproved, StatusCommitteeRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal 判断是否为终态
// 终态案件不再接受常规转换,只能通过管理员覆盖修改
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAdvisorRejected, StatusCommitteeApproved,
		StatusCommitteeRejected, StatusCancelled:
		return true
	}
	return false
}

// ValidChoice 判断投票选项是否合法
func ValidChoice(c VoteChoice) bool {
	return c == VoteApprove || c == VoteReject
}

// ValidOutcome 判断最终成绩是否合法
func ValidOutcome(o Outcome) bool {
	return o == OutcomePass || o == OutcomeFailed
}

// OverrideSafelist 管理员覆盖允许的目标状态
// advisor_rejected 不在安全清单内:导师驳回只能由导师门产生
var OverrideSafelist = map[Status]bool{
	StatusRegistered:        true,
	StatusInCommitteeReview: true,
	StatusCommitteeApproved: true,
	StatusCommitteeRejected: true,
	StatusCancelled:         true,
}
