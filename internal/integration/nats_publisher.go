package integration

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// NotificationPublisher 把转换事实发布到 NATS
// 主题约定: internship.approval.<to_status>
// 所有发布都是非致命的,失败只记日志,绝不向调用方传播
type NotificationPublisher struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// NewNotificationPublisher 连接 NATS 并创建发布器
// url 为空时返回 nil,事件处理器会跳过 NATS 出口
func NewNotificationPublisher(url string, logger *logrus.Logger) (*NotificationPublisher, error) {
	if url == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(nats.DefaultReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect NATS: %w", err)
	}

	return &NotificationPublisher{conn: conn, logger: logger}, nil
}

// PublishTransition 发布一条转换事实
func (p *NotificationPublisher) PublishTransition(fact *workflow.TransitionFact) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(fact)
	if err != nil {
		p.logger.WithError(err).Warn("notification: failed to marshal fact")
		return
	}

	subject := fmt.Sprintf("internship.approval.%s", fact.To)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"subject":       subject,
			"enrollment_id": fact.EnrollmentID,
		}).Warn("notification: failed to publish NATS event")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"subject":       subject,
		"enrollment_id": fact.EnrollmentID,
	}).Debug("notification: event published")
}

// Connected 返回当前连接状态
func (p *NotificationPublisher) Connected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close 关闭 NATS 连接
func (p *NotificationPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
