package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/config"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"
	"github.com/chanlytics/channel-analysis-go/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AnalysisCompletedEvent is the payload published when a fresh analysis has
// been computed and persisted.
type AnalysisCompletedEvent struct {
	EventID          string    `json:"event_id"`
	ChannelID        string    `json:"channel_id"`
	ChannelTitle     string    `json:"channel_title"`
	Summary          string    `json:"summary"`
	Themes           []string  `json:"themes"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ModelVersion     string    `json:"model_version"`
	Degraded         bool      `json:"degraded"`
	VideosAnalyzed   int       `json:"videos_analyzed"`
	SamplingStrategy string    `json:"sampling_strategy"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// MessagePublisher publishes analysis events to a RabbitMQ topic exchange
// with publisher confirms.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewMessagePublisher connects to RabbitMQ and declares the analysis
// exchange.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Consumers bind their own queues; the publisher only owns the exchange.
	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

// PublishAnalysisCompleted announces a completed analysis. Blocks until the
// broker confirms delivery or the context expires.
func (mp *MessagePublisher) PublishAnalysisCompleted(ctx context.Context, channel *models.Channel, analysis *models.ChannelAnalysis) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	event := AnalysisCompletedEvent{
		EventID:          uuid.New().String(),
		ChannelID:        analysis.ChannelID,
		ChannelTitle:     channel.Title,
		Summary:          analysis.Summary,
		Themes:           analysis.Themes,
		ConfidenceScore:  analysis.ConfidenceScore,
		ModelVersion:     analysis.ModelVersion,
		Degraded:         analysis.Degraded,
		VideosAnalyzed:   analysis.AnalyzedVideosCount,
		SamplingStrategy: analysis.SamplingStrategy,
		AnalyzedAt:       analysis.AnalyzedAt,
		OccurredAt:       time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Publish with confirmation
	confirms := mp.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = mp.channel.PublishWithContext(
		ctx,
		mp.config.Exchange,
		mp.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.EventID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published analysis event",
		zap.String("eventId", event.EventID),
		zap.String("channelId", event.ChannelID),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the broker connection is usable.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
