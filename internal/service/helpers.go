package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aewaew419/internship-sub007/internal/metrics"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// 默认 CAS 重试参数
const (
	defaultCASAttempts = 5
	casBackoffBase     = 10 * time.Millisecond
)

// TransitionSink 已提交转换的事实出口
// 由 integration 层实现,发布失败不影响调用方
type TransitionSink interface {
	Publish(fact *workflow.TransitionFact)
}

// publishFacts 发布旧快照之后新增的全部转换事实
func publishFacts(sink TransitionSink, prevHistoryLen int, c *workflow.ApprovalCase) {
	if sink == nil {
		return
	}
	for _, fact := range workflow.FactsFrom(prevHistoryLen, c) {
		sink.Publish(fact)
	}
}

// withCASRetry 执行 load-validate-modify-CAS 循环
// fn 每次都必须基于新加载的快照重新校验前置条件;
// 仅版本冲突触发重试,带抖动的指数退避,重试耗尽后归为 Transient
func withCASRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultCASAttempts
	}

	backoff := casBackoffBase
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, workflow.ErrVersionConflict) {
			return err
		}
		metrics.RecordCASConflict()

		// 最后一次尝试失败后不再等待
		if i == attempts-1 {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(backoff)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return fmt.Errorf("cas retry aborted: %v: %w", ctx.Err(), workflow.ErrTransient)
		}
		backoff *= 2
	}

	return fmt.Errorf("cas retries exhausted after %d attempts: %w", attempts, workflow.ErrTransient)
}

// getUserIDFromContext 从 context 中获取用户ID
func getUserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	// 从 context 中获取用户ID（由认证中间件设置）
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}
