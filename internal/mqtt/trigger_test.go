package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqttcommon "ici-report/internal/common/mqtt"
	"ici-report/internal/service"
)

type published struct {
	topic   string
	payload []byte
}

type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]mqttcommon.MessageHandler
	published []published
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: map[string]mqttcommon.MessageHandler{}}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, h mqttcommon.MessageHandler) error {
	b.handlers[topic] = h
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic: topic, payload: payload})
	return nil
}

func (b *fakeBroker) replies(t *testing.T) map[string]Reply {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]Reply{}
	for _, p := range b.published {
		require.Equal(t, "ici/reports/reply", p.topic)
		var r Reply
		require.NoError(t, json.Unmarshal(p.payload, &r))
		out[r.RequestID] = r
	}
	return out
}

type fakeReports struct{}

func (fakeReports) GenerateServiceReportPdf(_ context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ReportID == "missing" {
		return nil, &service.ReportError{Code: service.CodeNotFound, Message: "Reporte no encontrado."}
	}
	return &service.GenerateResult{Success: true, DownloadURL: "https://files/" + req.ReportID + ".pdf", SizeBytes: 99}, nil
}

func (fakeReports) ExportWorkbook(context.Context, service.GenerateRequest) ([]byte, string, error) {
	return nil, "", errors.New("not used")
}

func TestTrigger_RepliesPerRequest(t *testing.T) {
	broker := newFakeBroker()
	tr := NewTrigger(broker, fakeReports{}, "ici/reports/request", "ici/reports/reply", 1, zap.NewNop())
	require.NoError(t, tr.Start(context.Background()))

	handler := broker.handlers["ici/reports/request"]
	require.NotNil(t, handler)

	require.NoError(t, handler("ici/reports/request", []byte(`{"requestId":"r1","reportId":"rep-1"}`)))
	require.NoError(t, handler("ici/reports/request", []byte(`{"requestId":"r2","reportId":"missing"}`)))
	require.NoError(t, handler("ici/reports/request", []byte(`{"requestId":"r3","policyId":"pol-1"}`)))
	tr.Wait()

	replies := broker.replies(t)
	require.Len(t, replies, 3)

	assert.True(t, replies["r1"].Success)
	assert.Equal(t, "https://files/rep-1.pdf", replies["r1"].DownloadURL)
	assert.Equal(t, 99, replies["r1"].SizeBytes)

	assert.False(t, replies["r2"].Success)
	assert.Equal(t, service.CodeNotFound, replies["r2"].Reason)
	assert.Equal(t, "Reporte no encontrado.", replies["r2"].Error)

	assert.Equal(t, service.CodeInvalidArgument, replies["r3"].Reason)

	tr.Stop()
	assert.Empty(t, broker.handlers)
}

func TestTrigger_DropsUnanswerable(t *testing.T) {
	broker := newFakeBroker()
	tr := NewTrigger(broker, fakeReports{}, "ici/reports/request", "ici/reports/reply", 1, zap.NewNop())

	assert.Error(t, tr.HandleMessage("ici/reports/request", []byte(`not json`)))
	assert.Error(t, tr.HandleMessage("ici/reports/request", []byte(`{"reportId":"rep-1"}`)))
	tr.Wait()

	assert.Empty(t, broker.published)
}

func TestTrigger_StartNeedsTopics(t *testing.T) {
	tr := NewTrigger(newFakeBroker(), fakeReports{}, "", "reply", 0, zap.NewNop())
	assert.Error(t, tr.Start(context.Background()))
}

type blockingReports struct {
	fakeReports
	started chan string
	release chan struct{}
}

func (b *blockingReports) GenerateServiceReportPdf(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	b.started <- req.ReportID
	<-b.release
	return b.fakeReports.GenerateServiceReportPdf(ctx, req)
}

func TestTrigger_RepliesBusyWhenSlotsTaken(t *testing.T) {
	broker := newFakeBroker()
	reports := &blockingReports{started: make(chan string, maxInFlight), release: make(chan struct{})}
	tr := NewTrigger(broker, reports, "ici/reports/request", "ici/reports/reply", 1, zap.NewNop())

	for _, id := range []string{"r1", "r2"} {
		require.NoError(t, tr.HandleMessage("ici/reports/request", []byte(`{"requestId":"`+id+`","reportId":"rep-`+id+`"}`)))
	}
	for i := 0; i < maxInFlight; i++ {
		select {
		case <-reports.started:
		case <-time.After(2 * time.Second):
			t.Fatal("build did not start")
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- tr.HandleMessage("ici/reports/request", []byte(`{"requestId":"r3","reportId":"rep-r3"}`))
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked while builds were running")
	}

	close(reports.release)
	tr.Wait()

	replies := broker.replies(t)
	require.Len(t, replies, 3)
	assert.True(t, replies["r1"].Success)
	assert.True(t, replies["r2"].Success)
	assert.False(t, replies["r3"].Success)
	assert.Equal(t, service.CodeResourceExhausted, replies["r3"].Reason)
	assert.NotEmpty(t, replies["r3"].Error)
}
