// Package events publishes expense change notifications to an AMQP exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
)

// Event types double as routing keys.
const (
	ExpenseCreated = "expense.created"
	ExpenseUpdated = "expense.updated"
	ExpenseDeleted = "expense.deleted"
)

const publishTimeout = 5 * time.Second

// ErrBrokerClosed is returned by Watch when the broker drops the connection.
var ErrBrokerClosed = errors.New("AMQP connection closed by broker")

// Event describes one committed change to an expense.
type Event struct {
	Type       string          `json:"type"`
	ExpenseID  int64           `json:"expense_id"`
	UserID     string          `json:"user_id"`
	Title      string          `json:"title,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Category   models.Category `json:"category,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewExpenseEvent builds an event of typ for e.
func NewExpenseEvent(typ string, e *models.Expense) Event {
	return Event{
		Type:       typ,
		ExpenseID:  e.ID,
		UserID:     e.UserID,
		Title:      e.Title,
		Amount:     e.Amount,
		Category:   e.Category,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event body.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publishing wraps the event in an AMQP message.
func (e Event) Publishing() (amqp091.Publishing, error) {
	body, err := e.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	}, nil
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. It is used when AMQP_URL is unset.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// AMQPPublisher publishes to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	closed   chan *amqp091.Error
	exchange string
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	return &AMQPPublisher{conn: conn, channel: channel, closed: closed, exchange: exchange}, nil
}

// Publish sends e with its type as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := e.Publishing()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	logger.Get().Debugw("published expense event",
		"type", e.Type,
		"expense_id", e.ExpenseID,
		"exchange", p.exchange,
	)
	return nil
}

// Watch blocks until ctx is done or the broker closes the connection. A
// close started by Close is not an error.
func (p *AMQPPublisher) Watch(ctx context.Context) error {
	return watchClose(ctx, p.closed)
}

func watchClose(ctx context.Context, closed <-chan *amqp091.Error) error {
	select {
	case <-ctx.Done():
		return nil
	case amqpErr, ok := <-closed:
		if !ok || amqpErr == nil {
			return nil
		}
		logger.Named("events").Errorw("AMQP connection lost",
			"code", amqpErr.Code,
			"reason", amqpErr.Reason,
			"server", amqpErr.Server,
		)
		return fmt.Errorf("%w: %s", ErrBrokerClosed, amqpErr.Reason)
	}
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
