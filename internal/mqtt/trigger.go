// Package mqtt triggers report builds from broker messages and replies on a
// second topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mqttcommon "ici-report/internal/common/mqtt"
	"ici-report/internal/service"
)

const (
	// maxInFlight bounds concurrent builds. Requests arriving while every
	// slot is taken are answered with a busy reply.
	maxInFlight  = 2
	buildTimeout = 3 * time.Minute
)

const busyMessage = "Servidor ocupado, intenta de nuevo."

// Broker is the part of the MQTT client the trigger uses.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

var _ Broker = (*mqttcommon.Client)(nil)

// Request asks for one document.
type Request struct {
	RequestID string `json:"requestId"`
	ReportID  string `json:"reportId"`
	PolicyID  string `json:"policyId"`
	DateStr   string `json:"dateStr"`
}

// Reply is published once per request.
type Reply struct {
	RequestID   string `json:"requestId"`
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	SizeBytes   int    `json:"sizeBytes,omitempty"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Trigger subscribes to the request topic and answers on the reply topic.
type Trigger struct {
	broker       Broker
	reports      service.ReportService
	requestTopic string
	replyTopic   string
	qos          byte
	logger       *zap.Logger

	ctx     context.Context
	workers errgroup.Group
	// replies tracks busy replies published outside the worker pool.
	replies sync.WaitGroup
}

func NewTrigger(broker Broker, reports service.ReportService, requestTopic, replyTopic string, qos byte, logger *zap.Logger) *Trigger {
	t := &Trigger{
		broker:       broker,
		reports:      reports,
		requestTopic: requestTopic,
		replyTopic:   replyTopic,
		qos:          qos,
		logger:       logger,
		ctx:          context.Background(),
	}
	t.workers.SetLimit(maxInFlight)
	return t
}

// Start subscribes. Builds started by messages use ctx as their parent.
func (t *Trigger) Start(ctx context.Context) error {
	if t.requestTopic == "" || t.replyTopic == "" {
		return fmt.Errorf("mqtt trigger topics not configured")
	}
	t.ctx = ctx
	if err := t.broker.Subscribe(t.requestTopic, t.qos, t.HandleMessage); err != nil {
		return err
	}
	t.logger.Info("MQTT trigger started",
		zap.String("request_topic", t.requestTopic),
		zap.String("reply_topic", t.replyTopic),
	)
	return nil
}

// Stop unsubscribes and waits for running builds.
func (t *Trigger) Stop() {
	if err := t.broker.Unsubscribe(t.requestTopic); err != nil {
		t.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	t.Wait()
	t.logger.Info("MQTT trigger stopped")
}

// HandleMessage decodes a request and schedules its build. It never blocks:
// the broker delivers messages from a single goroutine. Payloads that cannot
// be answered (bad JSON, no request id) are dropped.
func (t *Trigger) HandleMessage(topic string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		t.logger.Warn("Malformed MQTT request",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if req.RequestID == "" {
		return fmt.Errorf("request without requestId on %s", topic)
	}

	started := t.workers.TryGo(func() error {
		t.process(req)
		return nil
	})
	if started {
		return nil
	}

	t.logger.Warn("MQTT request refused, all build slots busy",
		zap.String("request_id", req.RequestID),
		zap.Int("max_in_flight", maxInFlight),
	)
	t.replies.Add(1)
	go func() {
		defer t.replies.Done()
		t.reply(Reply{
			RequestID: req.RequestID,
			Error:     busyMessage,
			Reason:    service.CodeResourceExhausted,
		})
	}()
	return nil
}

// Wait blocks until every accepted request has been answered.
func (t *Trigger) Wait() {
	_ = t.workers.Wait()
	t.replies.Wait()
}

func (t *Trigger) process(req Request) {
	ctx, cancel := context.WithTimeout(t.ctx, buildTimeout)
	defer cancel()

	reply := Reply{RequestID: req.RequestID}
	res, err := t.reports.GenerateServiceReportPdf(ctx, service.GenerateRequest{
		ReportID: req.ReportID,
		PolicyID: req.PolicyID,
		DateStr:  req.DateStr,
	})
	if err != nil {
		reply.Error = service.MessageOf(err)
		reply.Reason = service.CodeOf(err)
		t.logger.Warn("MQTT request failed", zap.String("request_id", req.RequestID), zap.Error(err))
	} else {
		reply.Success = res.Success
		reply.DownloadURL = res.DownloadURL
		reply.SizeBytes = res.SizeBytes
	}
	t.reply(reply)
}

func (t *Trigger) reply(reply Reply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		t.logger.Error("Failed to encode reply", zap.Error(err))
		return
	}
	if err := t.broker.Publish(t.replyTopic, t.qos, false, payload); err != nil {
		t.logger.Error("Failed to publish reply",
			zap.String("request_id", reply.RequestID),
			zap.Error(err),
		)
	}
}
