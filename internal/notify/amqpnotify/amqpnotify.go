// Package amqpnotify publishes finished run reports to a RabbitMQ exchange
// so downstream consumers can react to a completed load.
package amqpnotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"starload/internal/etl"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultExchange is the topic exchange reports go to.
const DefaultExchange = "starload"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Config struct {
	URL      string
	Exchange string

	// RoutingKey defaults to "run.<catalog>.<status>".
	RoutingKey string
}

// dialFunc opens a connection and a channel on it.
type dialFunc func() (io.Closer, Channel, error)

// Publisher sends one message per report. After the broker drops the
// connection it redials on the next publish.
type Publisher struct {
	mu         sync.Mutex
	dial       dialFunc
	conn       io.Closer
	ch         Channel
	exchange   string
	routingKey string
}

// Dial connects to cfg.URL and declares the durable topic exchange.
func Dial(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqpnotify: URL is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	p := newWithDialer(func() (io.Closer, Channel, error) { return open(cfg) }, cfg.Exchange, cfg.RoutingKey)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func open(cfg Config) (io.Closer, Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("amqpnotify: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqpnotify: open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("amqpnotify: declare exchange %s: %w", cfg.Exchange, err)
	}
	return conn, ch, nil
}

// NewWithChannel wraps an open channel. The publisher cannot redial it.
func NewWithChannel(ch Channel, exchange, routingKey string) *Publisher {
	p := newWithDialer(nil, exchange, routingKey)
	p.ch = ch
	return p
}

func newWithDialer(dial dialFunc, exchange, routingKey string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{dial: dial, exchange: exchange, routingKey: routingKey}
}

// connect replaces the current connection. Callers hold mu, except Dial.
func (p *Publisher) connect() error {
	if p.dial == nil {
		return amqp.ErrClosed
	}
	p.release()
	conn, ch, err := p.dial()
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// release closes the channel and connection, ignoring errors from
// already-closed handles.
func (p *Publisher) release() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}

// RunStatus is "success", "partial" (some jobs failed) or "failure". A run
// that never started is a failure.
func RunStatus(rep etl.Report) string {
	s := rep.Summary()
	switch {
	case rep.RunErr != nil || rep.Error != "":
		return "failure"
	case s.Failed == 0:
		return "success"
	case s.Failed < len(rep.Jobs):
		return "partial"
	default:
		return "failure"
	}
}

func (p *Publisher) key(rep etl.Report, status string) string {
	if p.routingKey != "" {
		return p.routingKey
	}
	return fmt.Sprintf("run.%s.%s", rep.Catalog, status)
}

// PublishReport sends rep as a persistent JSON message. A closed channel
// is redialed and the publish retried once.
func (p *Publisher) PublishReport(ctx context.Context, rep etl.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("amqpnotify: encode report: %w", err)
	}
	status := RunStatus(rep)
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rep.RunID.String(),
		Timestamp:    rep.Finished,
		Type:         "starload.run_report",
		Headers: amqp.Table{
			"catalog": rep.Catalog,
			"status":  status,
		},
		Body: body,
	}
	key := p.key(rep, status)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return fmt.Errorf("amqpnotify: publish %s: reconnect: %w", rep.RunID, err)
		}
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) && p.dial != nil {
		if cerr := p.connect(); cerr != nil {
			return fmt.Errorf("amqpnotify: publish %s: reconnect: %w", rep.RunID, cerr)
		}
		err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("amqpnotify: publish %s: %w", rep.RunID, err)
	}
	return nil
}

// Close closes the channel and, when Dial opened it, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.release()
}
