package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const (
	topicHeader      = "x-topic"
	retryCountHeader = "x-retry-count"
)

// AMQPQueue publishes events to a single durable RabbitMQ queue and routes
// consumed deliveries to subscribers by topic header.
type AMQPQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	name  string
	pubMu sync.Mutex

	mu         sync.Mutex
	handlers   map[string][]func(payload any) error
	MaxRetries int
}

func DialAMQP(url, queueName string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp: declare queue: %w", err)
	}
	return &AMQPQueue{
		conn:       conn,
		ch:         ch,
		name:       q.Name,
		handlers:   make(map[string][]func(payload any) error),
		MaxRetries: 3,
	}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("amqp: encode %s: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int32) error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	return q.ch.Publish(
		"",
		q.name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				topicHeader:      topic,
				retryCountHeader: retries,
			},
			Body: body,
		},
	)
}

// Subscribe registers handler for topic. Handlers receive the decoded Event.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Consume delivers messages to subscribers until ctx is done. Failed
// deliveries are republished with an incremented retry count and dropped
// after MaxRetries.
func (q *AMQPQueue) Consume(ctx context.Context) error {
	msgs, err := q.ch.Consume(
		q.name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp: consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("amqp: delivery channel closed")
			}
			q.handleDelivery(d)
		}
	}
}

func (q *AMQPQueue) handleDelivery(d amqp.Delivery) {
	topic, _ := d.Headers[topicHeader].(string)
	retries := headerInt(d.Headers[retryCountHeader])
	log := logrus.WithFields(logrus.Fields{"topic": topic, "attempt": retries})

	var ev Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.Warnf("Queue: invalid event: %v", err)
		d.Ack(false)
		return
	}

	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	var failed error
	for _, h := range handlers {
		if err := h(ev); err != nil {
			failed = err
		}
	}
	if failed != nil && int(retries) < q.MaxRetries {
		log.Warnf("Queue: handler failed, requeueing: %v", failed)
		if err := q.publish(topic, d.Body, retries+1); err != nil {
			log.Errorf("Queue: requeue failed: %v", err)
			d.Nack(false, true)
			return
		}
	} else if failed != nil {
		log.Errorf("Queue: event permanently failed: %v", failed)
	}
	d.Ack(false)
}

func headerInt(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int64:
		return int32(n)
	case int:
		return int32(n)
	case int16:
		return int32(n)
	case int8:
		return int32(n)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var (
	_ Queue = (*InMemoryQueue)(nil)
	_ Queue = (*AMQPQueue)(nil)
)
