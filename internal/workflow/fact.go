package workflow

import "time"

// TransitionFact 已提交转换的事实
// 每次成功提交的状态转换向外部通知/报表系统发布一条,
// 发布是 fire-and-forget,丢失通知不影响工作流状态
type TransitionFact struct {
	EnrollmentID string    `json:"enrollment_id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	Actor        string    `json:"actor"`
	At           time.Time `json:"at"`
}

// FactsFrom 取出旧聚合之后新增的历史条目对应的事实
// 一次操作可能追加多条历史(如决议票),逐条发布
func FactsFrom(prevHistoryLen int, c *ApprovalCase) []*TransitionFact {
	facts := make([]*TransitionFact, 0, len(c.History)-prevHistoryLen)
	for i := prevHistoryLen; i < len(c.History); i++ {
		h := c.History[i]
		facts = append(facts, &TransitionFact{
			EnrollmentID: c.EnrollmentID,
			From:         h.From,
			To:           h.To,
			Actor:        h.Actor,
			At:           h.At,
		})
	}
	return facts
}
