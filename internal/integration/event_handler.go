package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aewaew419/internship-sub007/internal/model"
	"github.com/aewaew419/internship-sub007/internal/repository"
	"github.com/aewaew419/internship-sub007/internal/workflow"
)

// Broadcaster 向已连接的实时订阅方(WebSocket)广播消息
type Broadcaster interface {
	BroadcastMessage(data []byte)
}

// EventHandler 转换事实处理器
// 先把事实持久化到 events 表,再异步扇出到 Webhook、NATS 和 WebSocket;
// 每条推送都是 fire-and-forget,失败只改事件状态,永不影响工作流
type EventHandler struct {
	db          *gorm.DB
	eventRepo   repository.EventRepository
	httpClient  *http.Client
	webhookURL  string
	publisher   *NotificationPublisher
	broadcaster Broadcaster
	logger      *logrus.Logger
	queue       chan *queuedFact
	workers     int
	stop        chan struct{}
}

// queuedFact 入队的事实及其事件行 ID
type queuedFact struct {
	eventID string
	fact    *workflow.TransitionFact
}

// NewEventHandler 创建事件处理器
// webhookURL 为空时跳过 Webhook 推送,publisher/broadcaster 可为 nil
func NewEventHandler(db *gorm.DB, workers int, webhookURL string, publisher *NotificationPublisher, broadcaster Broadcaster, logger *logrus.Logger) *EventHandler {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}

	handler := &EventHandler{
		db:          db,
		eventRepo:   repository.NewEventRepository(db),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		webhookURL:  webhookURL,
		publisher:   publisher,
		broadcaster: broadcaster,
		logger:      logger,
		queue:       make(chan *queuedFact, 1000),
		workers:     workers,
		stop:        make(chan struct{}),
	}

	// 启动 worker goroutines
	for i := 0; i < workers; i++ {
		go handler.worker()
	}

	return handler
}

// Publish 处理一条转换事实
// 实现 service.TransitionSink;持久化失败或队列满时只记日志
func (h *EventHandler) Publish(fact *workflow.TransitionFact) {
	// 1. 持久化事件到数据库
	data, err := json.Marshal(fact)
	if err != nil {
		h.logger.WithError(err).Warn("failed to marshal transition fact")
		return
	}

	eventModel := &model.EventModel{
		ID:           uuid.New().String(),
		EnrollmentID: fact.EnrollmentID,
		Type:         fmt.Sprintf("case.%s", fact.To),
		Data:         data,
		Status:       "pending",
		RetryCount:   0,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.eventRepo.Save(eventModel); err != nil {
		h.logger.WithError(err).WithField("enrollment_id", fact.EnrollmentID).
			Warn("failed to save transition event")
		return
	}

	// 2. 异步扇出
	select {
	case h.queue <- &queuedFact{eventID: eventModel.ID, fact: fact}:
		// 事件成功入队
	default:
		// 队列满时记录日志,不阻塞提交路径
		h.logger.WithFields(logrus.Fields{
			"enrollment_id": fact.EnrollmentID,
			"to":            fact.To,
		}).Warn("event queue full, dropping fan-out")
	}
}

// worker 事件推送 worker
func (h *EventHandler) worker() {
	for {
		select {
		case qf := <-h.queue:
			h.fanOut(qf)
		case <-h.stop:
			return
		}
	}
}

// fanOut 把事实推送到所有出口
func (h *EventHandler) fanOut(qf *queuedFact) {
	data, err := json.Marshal(qf.fact)
	if err != nil {
		return
	}

	// WebSocket 广播给实时看板
	if h.broadcaster != nil {
		h.broadcaster.BroadcastMessage(data)
	}

	// NATS 发布给通知/报表消费方
	if h.publisher != nil {
		h.publisher.PublishTransition(qf.fact)
	}

	// Webhook 推送(带重试)
	if h.webhookURL == "" {
		h.markEvent(qf.eventID, "success", 0)
		return
	}

	maxRetries := 3
	backoff := time.Second
	for i := 0; i < maxRetries; i++ {
		if err := h.sendWebhookRequest(data); err == nil {
			h.markEvent(qf.eventID, "success", i)
			return
		} else {
			h.logger.WithError(err).WithField("enrollment_id", qf.fact.EnrollmentID).
				Warn("failed to push transition webhook")
		}

		if i < maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2 // 指数退避
		}
	}

	// 所有重试都失败
	h.markEvent(qf.eventID, "failed", maxRetries)
}

// sendWebhookRequest 发送 Webhook 请求
func (h *EventHandler) sendWebhookRequest(data []byte) error {
	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}
	return nil
}

// markEvent 更新事件行的推送状态
func (h *EventHandler) markEvent(eventID, status string, retries int) {
	h.db.Model(&model.EventModel{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": retries,
			"updated_at":  time.Now(),
		})
}

// Stop 停止事件处理器
func (h *EventHandler) Stop() {
	close(h.stop)
}
