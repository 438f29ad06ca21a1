// Package events публикует события жизненного цикла запросов на погашение.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mmeshcher/offer-redemption/internal/model"
)

// DefaultTopic используется, если топик не задан в конфигурации.
const DefaultTopic = "redemption-events"

// Type описывает тип события.
type Type string

const (
	TypeCreated       Type = "redemption.created"
	TypeStatusChanged Type = "redemption.status_changed"
	TypeUsed          Type = "redemption.used"
)

// Event описывает изменение запроса на погашение.
type Event struct {
	Type         Type      `json:"type"`
	RedeemID     string    `json:"redeem_id"`
	UserID       string    `json:"user_id"`
	OfferID      string    `json:"offer_id"`
	RestaurantID string    `json:"restaurant_id"`
	OwnerID      string    `json:"owner_id"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent формирует событие по текущему состоянию запроса.
func NewEvent(t Type, ro *model.RedeemOffer, at time.Time) Event {
	return Event{
		Type:         t,
		RedeemID:     ro.ID,
		UserID:       ro.UserID,
		OfferID:      ro.OfferID,
		RestaurantID: ro.RestaurantID,
		OwnerID:      ro.OwnerID,
		Status:       string(ro.Status),
		OccurredAt:   at.UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher отправляет события в Kafka.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher создаёт издателя для указанных брокеров и топика.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// Publish отправляет событие. Ключ сообщения - идентификатор запроса, что сохраняет порядок
// событий одного запроса в пределах партиции.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.RedeemID),
		Value: payload,
		Time:  e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close закрывает соединение с брокерами.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher отбрасывает события. Используется, когда брокеры не настроены.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close ничего не делает.
func (NopPublisher) Close() error { return nil }
