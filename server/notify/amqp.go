package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("not connected to AMQP server")

// AlertMessage is the body published for every alert.
type AlertMessage struct {
	Alert       *models.Alert `json:"alert"`
	PublishedAt time.Time     `json:"published_at"`
}

// AMQPPublisher publishes alerts as persistent JSON messages to a durable
// queue on the default exchange.
type AMQPPublisher struct {
	url       string
	queueName string
	logger    *zap.Logger

	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
}

func NewAMQPPublisher(url, queueName string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:       url,
		queueName: queueName,
		logger:    logger,
	}
}

func (p *AMQPPublisher) Name() string {
	return "amqp"
}

// Connect dials the broker and declares the queue.
func (p *AMQPPublisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.connected {
		return nil
	}

	if p.url == "" || p.queueName == "" {
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.connected = true

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go p.watch(closed)

	p.logger.Info("Connected to AMQP server", zap.String("queue", p.queueName))
	return nil
}

func (p *AMQPPublisher) watch(closed <-chan *amqp.Error) {
	err, ok := <-closed
	if !ok {
		return
	}

	p.connMutex.Lock()
	p.connected = false
	p.channel = nil
	p.conn = nil
	p.connMutex.Unlock()

	p.logger.Warn("AMQP connection closed", zap.Error(err))
}

func (p *AMQPPublisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// Notify publishes alert, reconnecting once if the connection was lost.
func (p *AMQPPublisher) Notify(ctx context.Context, alert *models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.IsConnected() {
		if err := p.Connect(); err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	body, err := json.Marshal(AlertMessage{Alert: alert, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	p.connMutex.RLock()
	defer p.connMutex.RUnlock()

	if !p.connected || p.channel == nil {
		return ErrNotConnected
	}

	err = p.channel.Publish(
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    alert.ID,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish alert to AMQP: %w", err)
	}

	p.logger.Debug("Alert published to AMQP", zap.String("alert_id", alert.ID))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if !p.connected {
		return nil
	}

	p.connected = false
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
