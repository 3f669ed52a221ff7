package workflow

import (
	"time"
)

// Vote 委员投票
type Vote struct {
	Voter   string     `json:"voter"`
	Choice  VoteChoice `json:"choice"`
	Remarks string     `json:"remarks,omitempty"`
	CastAt  time.Time  `json:"cast_at"`
}

// StatusTransition 状态转换记录
// history 是案件发生过什么的唯一事实来源,只追加不修改
type StatusTransition struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// ApprovalCase 审批案件聚合
// 每个实习登记(enrollment)对应唯一一个案件,所有状态、投票和历史集中存储
type ApprovalCase struct {
	EnrollmentID string              `json:"enrollment_id"`
	StudentID    string              `json:"student_id"`
	Status       Status              `json:"status"`
	AdvisorID    string              `json:"advisor_id,omitempty"`    // 导师门触发后记录
	Committee    []string            `json:"committee"`               // 创建时固定,生命周期内不变
	Votes        map[string]*Vote    `json:"votes"`                   // voter -> vote,每人至多一票
	FinalOutcome Outcome             `json:"final_outcome"`
	History      []*StatusTransition `json:"history"`
	Version      int64               `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewCase 创建新案件,初始状态为 registered
func NewCase(enrollmentID, studentID string, committee []string) *ApprovalCase {
	now := time.Now()
	return &ApprovalCase{
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		Status:       StatusRegistered,
		Committee:    append([]string(nil), committee...),
		Votes:        make(map[string]*Vote),
		FinalOutcome: OutcomeUnset,
		History:      []*StatusTransition{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone 深拷贝案件
// CAS 循环在副本上修改,失败重试时不会污染已加载的快照
func (c *ApprovalCase) Clone() *ApprovalCase {
	clone := *c
	clone.Committee = append([]string(nil), c.Committee...)
	clone.Votes = make(map[string]*Vote, len(c.Votes))
	for voter, v := range c.Votes {
		vc := *v
		clone.Votes[voter] = &vc
	}
	clone.History = make([]*StatusTransition, len(c.History))
	for i, h := range c.History {
		hc := *h
		clone.History[i] = &hc
	}
	return &clone
}

// IsCommitteeMember 判断是否为该案件的委员
func (c *ApprovalCase) IsCommitteeMember(voter string) bool {
	for _, m := range c.Committee {
		if m == voter {
			return true
		}
	}
	return false
}

// HasVoted 判断委员是否已投票
func (c *ApprovalCase) HasVoted(voter string) bool {
	_, ok := c.Votes[voter]
	return ok
}

// QuorumThreshold 法定票数: ceil(committee/2)
func (c *ApprovalCase) QuorumThreshold() int {
	return (len(c.Committee) + 1) / 2
}

// QuorumReached 判断已投票数是否达到法定票数
func (c *ApprovalCase) QuorumReached() bool {
	return len(c.Committee) > 0 && len(c.Votes) >= c.QuorumThreshold()
}

// Tally 统计已投票中的同意/拒绝票数
func (c *ApprovalCase) Tally() (approve int, reject int) {
	for _, v := range c.Votes {
		if v.Choice == VoteApprove {
			approve++
		} else {
			reject++
		}
	}
	return approve, reject
}

// Resolution 根据当前票型计算决议状态
// 同意票占多数则通过,否则驳回(多数响应者规则,非全票制)
func (c *ApprovalCase) Resolution() Status {
	approve, reject := c.Tally()
	if approve > reject {
		return StatusCommitteeApproved
	}
	return StatusCommitteeRejected
}

// LastTransition 最近一次状态转换,无历史时返回 nil
func (c *ApprovalCase) LastTransition() *StatusTransition {
	if len(c.History) == 0 {
		return nil
	}
	return c.History[len(c.History)-1]
}
