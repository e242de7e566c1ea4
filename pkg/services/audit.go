package services

import (
	"sync/atomic"
	"time"

	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Auditor 审计事件接收端。Emit 是单向的 fire-and-forget：
// 审计失败不会影响业务操作的结果。
type Auditor interface {
	Emit(event models.AuditEvent)
}

// AuditSink 把审计事件异步写入结构化日志。
// 事件先进入缓冲通道，由后台 goroutine 逐条输出；
// 通道满时丢弃事件并累计丢弃数，绝不阻塞调用方。
type AuditSink struct {
	events  chan models.AuditEvent
	done    chan struct{}
	dropped int64
}

const auditBufferSize = 256

// NewAuditSink 创建并启动审计日志管道
func NewAuditSink() *AuditSink {
	s := &AuditSink{
		events: make(chan models.AuditEvent, auditBufferSize),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

// Emit 投递一条审计事件（非阻塞，满了就丢）
func (s *AuditSink) Emit(event models.AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case s.events <- event:
	default:
		atomic.AddInt64(&s.dropped, 1)
		logs.Logger.WithField("action", event.Action).Warn("audit buffer full, event dropped")
	}
}

// Dropped 返回累计丢弃的事件数
func (s *AuditSink) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Close 停止管道并等待已入队事件写完
func (s *AuditSink) Close() {
	close(s.events)
	<-s.done
}

func (s *AuditSink) drain() {
	defer close(s.done)
	for event := range s.events {
		logs.Logger.WithFields(logrus.Fields{
			"audit_id":   event.ID,
			"actor_id":   event.ActorID,
			"actor_role": string(event.ActorRole),
			"task_id":    event.TaskID,
			"action":     event.Action,
			"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
		}).Info("audit event")
	}
}
