package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/saram098/navi-backend-2/pkg/logging"
)

// ReplyMessenger delivers the agent's reply back to the patient.
type ReplyMessenger interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// TurnRecorder persists one request/reply pair for auditing. Optional.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, phone, inbound, reply string) error
}

const (
	defaultWorkerCount  = 2
	defaultWaitSeconds  = 2
	defaultBatchSize    = 5
	deleteTimeoutSecs   = 5
	processTimeoutSecs  = 60
	maxReceiveBatchSize = 10
)

type dispatcherConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	recorder         TurnRecorder
}

// DispatcherOption customizes dispatcher behavior.
type DispatcherOption func(*dispatcherConfig)

// WithWorkerCount sets how many consumer goroutines run concurrently.
func WithWorkerCount(count int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait per receive call.
func WithReceiveWaitSeconds(seconds int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize sets the max messages fetched per receive call.
func WithReceiveBatchSize(size int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if size > 0 && size <= maxReceiveBatchSize {
			cfg.receiveBatchSize = size
		}
	}
}

// WithTurnRecorder wires conversation turn persistence.
func WithTurnRecorder(recorder TurnRecorder) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.recorder = recorder
	}
}

// Dispatcher moves inbound messages through the queue to the agent and
// sends the agent's replies back over WhatsApp. The webhook handler calls
// Publish and acknowledges immediately; the consumer goroutines do the
// slow work.
type Dispatcher struct {
	agent     *Agent
	queue     queueClient
	messenger ReplyMessenger
	recorder  TurnRecorder
	logger    *logging.Logger

	cfg dispatcherConfig
	wg  sync.WaitGroup
}

// NewDispatcher constructs a queue producer/consumer around the agent.
func NewDispatcher(agent *Agent, queue queueClient, messenger ReplyMessenger, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if agent == nil {
		panic("chatbot: agent cannot be nil")
	}
	if queue == nil {
		panic("chatbot: queue cannot be nil")
	}
	if messenger == nil {
		panic("chatbot: messenger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := dispatcherConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dispatcher{
		agent:     agent,
		queue:     queue,
		messenger: messenger,
		recorder:  cfg.recorder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Publish enqueues an inbound message for asynchronous processing.
func (d *Dispatcher) Publish(ctx context.Context, msg InboundMessage) (string, error) {
	msg, body, err := encodeInbound(msg)
	if err != nil {
		return "", err
	}
	if err := d.queue.Send(ctx, body); err != nil {
		return "", err
	}
	d.logger.Debug("inbound message queued", "message_id", msg.ID, "phone", msg.Phone)
	return msg.ID, nil
}

// Start launches the consumer goroutines. They stop when ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i+1)
	}
}

// Wait blocks until all consumer goroutines have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, workerID int) {
	defer d.wg.Done()
	d.logger.Debug("chatbot worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("chatbot worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(ctx, d.cfg.receiveBatchSize, d.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("failed to receive chatbot messages", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			d.handleMessage(ctx, msg)
		}
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg queueMessage) {
	ctx, span := agentTracer.Start(ctx, "chatbot.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("navi.queue_message_id", msg.ID))

	var inbound InboundMessage
	if err := json.Unmarshal([]byte(msg.Body), &inbound); err != nil {
		d.logger.Error("dropping malformed queue message", "error", err, "message_id", msg.ID)
		d.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}

	procCtx, cancel := context.WithTimeout(ctx, processTimeoutSecs*time.Second)
	reply := d.agent.ProcessMessage(procCtx, inbound.Phone, inbound.Body)
	cancel()

	if err := d.messenger.SendWhatsApp(ctx, inbound.Phone, reply); err != nil {
		// Leave the message on the queue so delivery is retried.
		d.logger.Error("failed to send whatsapp reply", "error", err, "phone", inbound.Phone)
		return
	}

	if d.recorder != nil {
		if err := d.recorder.RecordTurn(ctx, inbound.Phone, inbound.Body, reply); err != nil {
			d.logger.Warn("failed to record conversation turn", "error", err, "phone", inbound.Phone)
		}
	}

	d.deleteMessage(ctx, msg.ReceiptHandle)
}

func (d *Dispatcher) deleteMessage(ctx context.Context, receiptHandle string) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeoutSecs*time.Second)
	defer cancel()
	if err := d.queue.Delete(deleteCtx, receiptHandle); err != nil {
		d.logger.Warn("failed to delete queue message", "error", err)
	}
}
