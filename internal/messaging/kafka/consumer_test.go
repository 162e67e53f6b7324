package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error {
	return m.errorsCh
}

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	topic     string
	partition int32
	messages  chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return m.topic }
func (m *mockClaim) Partition() int32                         { return m.partition }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

type stubSubmitter struct {
	mu    sync.Mutex
	tasks []domain.Task
	err   error
}

func (s *stubSubmitter) Submit(_ context.Context, task domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return s.err
}

func TestNewConsumerErrors(t *testing.T) {
	handler := func(context.Context, *sarama.ConsumerMessage) error { return nil }
	if _, err := NewConsumer([]string{"invalid-broker:9092"}, "group", []string{TopicTaskRequests}, handler); err == nil {
		t.Fatal("expected new consumer error")
	}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumeCalls := 0
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(_ context.Context, topics []string, _ sarama.ConsumerGroupHandler) error {
			consumeCalls++
			if len(topics) != 1 || topics[0] != TopicTaskRequests {
				t.Errorf("unexpected topics %v", topics)
			}
			cancel()
			return nil
		},
		closeFn: func() error {
			close(errorsCh)
			return nil
		},
	}

	consumer := &Consumer{
		consumer: group,
		topics:   []string{TopicTaskRequests},
		handler:  func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:   log.WithField("test", "consumer"),
	}

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if consumeCalls == 0 {
		t.Fatal("expected consume call")
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := &Consumer{consumer: group, logger: log.WithField("test", "stop")}
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumerSetupCleanup(t *testing.T) {
	consumer := &Consumer{}
	if err := consumer.Setup(nil); err != nil {
		t.Fatalf("setup should return nil: %v", err)
	}
	if err := consumer.Cleanup(nil); err != nil {
		t.Fatalf("cleanup should return nil: %v", err)
	}
}

func TestConsumeClaim_SubmitsTaskRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitter := &stubSubmitter{}
	consumer := &Consumer{
		handler: NewTaskRequestHandler(submitter),
		logger:  log.WithField("test", "claim"),
	}

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: TopicTaskRequests, messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{
		Topic: TopicTaskRequests,
		Value: []byte(`{"taskType":2,"billing":{"userId":7,"billingSystemId":9}}`),
	}
	claim.messages <- &sarama.ConsumerMessage{
		Topic:  TopicTaskRequests,
		Offset: 1,
		Value:  []byte(`{"taskType":3,"currencyRate":{"date":"2024-03-05T00:00:00Z","currencyCode":"ARS","saleValue":850.5}}`),
	}
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 2 {
		t.Fatalf("expected two marked messages, got %d", len(session.marked))
	}
	if len(submitter.tasks) != 2 {
		t.Fatalf("expected two submitted tasks, got %d", len(submitter.tasks))
	}
	if got := submitter.tasks[0]; got.Type != domain.TaskTypeBillingRequest || got.Billing.UserID != 7 {
		t.Fatalf("unexpected billing task %+v", got)
	}
	if got := submitter.tasks[1]; got.CurrencyRate == nil || got.CurrencyRate.SaleValue.String() != "850.5" {
		t.Fatalf("unexpected currency task %+v", got)
	}
}

func TestConsumeClaim_FailedMessagesAreMarked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitter := &stubSubmitter{err: domain.ErrInvalidRequest}
	consumer := &Consumer{
		handler: NewTaskRequestHandler(submitter),
		logger:  log.WithField("test", "claim-fail"),
	}

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: TopicTaskRequests, messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Topic: TopicTaskRequests, Value: []byte("{")}
	claim.messages <- &sarama.ConsumerMessage{Topic: TopicTaskRequests, Value: []byte(`{"taskType":7,"cancelCreditNote":{"billingSystemId":9}}`)}
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 2 {
		t.Fatalf("failed messages must still be marked, got %d", len(session.marked))
	}
	if len(submitter.tasks) != 1 {
		t.Fatalf("only the well-formed message reaches the submitter, got %d", len(submitter.tasks))
	}
}

func TestTaskRequestHandler_WrapsSubmitError(t *testing.T) {
	handler := NewTaskRequestHandler(&stubSubmitter{err: domain.ErrUnsupportedMarket})
	err := handler(context.Background(), &sarama.ConsumerMessage{
		Value: []byte(`{"taskType":1,"user":{"id":1,"billingSystemId":4}}`),
	})
	if !errors.Is(err, domain.ErrUnsupportedMarket) {
		t.Fatalf("expected unsupported market error, got %v", err)
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := &Consumer{
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
		logger:  log.WithField("test", "claim-stop"),
	}
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}
