package events

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/workingset"
)

// Event actions, used for logs and metrics
const (
	ActionRefresh   = "refresh"
	ActionIgnored   = "ignored"
	ActionMalformed = "malformed"
)

// refreshPrefixes are the event type families that change the working set
var refreshPrefixes = []string{"case.", "report.", "signalement."}

// Target is what the consumer invalidates and reloads
type Target interface {
	Invalidate(ctx context.Context) error
	Refresh(ctx context.Context, origin string, force bool) (workingset.Snapshot, error)
}

// MessageReader is the subset of kafka.Reader the consumer uses
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// EventRecorder receives per-event metrics
type EventRecorder interface {
	RecordEvent(action string)
}

// Consumer reloads the working set when case events arrive
type Consumer struct {
	reader      MessageReader
	target      Target
	recorder    EventRecorder
	readTimeout time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewReader creates a Kafka reader from configuration
func NewReader(cfg config.KafkaConfig, logger *zap.Logger) *kafka.Reader {
	named := logger.Named("kafka")
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.LastOffset,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			named.Sugar().Debugf(msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			named.Sugar().Errorf(msg, args...)
		}),
	})
}

// NewConsumer creates a new case-event consumer
func NewConsumer(reader MessageReader, target Target, recorder EventRecorder, readTimeout time.Duration, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:      reader,
		target:      target,
		recorder:    recorder,
		readTimeout: readTimeout,
		logger:      logger.Named("events"),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
	c.logger.Info("Case event consumer started")
}

// Stop closes the reader and waits for the consumer loop to exit
func (c *Consumer) Stop() error {
	err := c.reader.Close()
	c.wg.Wait()
	c.logger.Info("Case event consumer stopped")
	return err
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		readCtx := ctx
		var cancel context.CancelFunc = func() {}
		if c.readTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.readTimeout)
		}
		msg, err := c.reader.ReadMessage(readCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, io.EOF), errors.Is(err, kafka.ErrGroupClosed):
				return
			}
			c.logger.Error("Failed to read case event", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.Handle(ctx, msg)
	}
}

// Handle processes one message and returns the action taken
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) string {
	action := Classify(msg.Value)
	if c.recorder != nil {
		c.recorder.RecordEvent(action)
	}

	switch action {
	case ActionMalformed:
		c.logger.Warn("Skipping malformed case event",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
	case ActionRefresh:
		c.logger.Debug("Case event received, reloading working set",
			zap.String("event_type", EventType(msg.Value)),
			zap.Int64("offset", msg.Offset))
		if err := c.target.Invalidate(ctx); err != nil {
			c.logger.Warn("Failed to invalidate payload cache", zap.Error(err))
		}
		if _, err := c.target.Refresh(ctx, workingset.OriginEvent, true); err != nil {
			c.logger.Warn("Event-driven refresh failed", zap.Error(err))
		}
	}
	return action
}

// EventType returns the event_type (or type) of an event payload
func EventType(value []byte) string {
	result := gjson.GetManyBytes(value, "event_type", "type")
	for _, r := range result {
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// Classify decides what a case event payload requires
func Classify(value []byte) string {
	if !gjson.ValidBytes(value) || !gjson.ParseBytes(value).IsObject() {
		return ActionMalformed
	}
	eventType := strings.ToLower(EventType(value))
	if eventType == "" {
		return ActionMalformed
	}
	for _, prefix := range refreshPrefixes {
		if strings.HasPrefix(eventType, prefix) {
			return ActionRefresh
		}
	}
	return ActionIgnored
}
