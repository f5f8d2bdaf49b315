package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"stopdesk/internal/domain"
	"stopdesk/internal/hub"
)

const (
	// When reconnecting to the server after connection failure
	reconnectDelay = 5 * time.Second

	// When setting up the channel after a channel exception
	reInitDelay = 2 * time.Second

	publishTimeout = 5 * time.Second
)

var (
	errNotConnected  = errors.New("not connected to a server")
	errAlreadyClosed = errors.New("already closed: not connected to the server")
)

// amqpConnection is the part of *amqp.Connection the publisher uses.
type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Publisher sends visit events to a fanout exchange. It reconnects in the
// background; visits recorded while disconnected are dropped.
type Publisher struct {
	m               sync.Mutex
	exchange        string
	connection      amqpConnection
	channel         *amqp.Channel
	done            chan struct{}
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	isReady         bool
	logger          *slog.Logger
}

func NewPublisher(addr, exchange string, logger *slog.Logger) *Publisher {
	p := &Publisher{
		exchange: exchange,
		done:     make(chan struct{}),
		logger:   logger.With("component", "amqp_publisher"),
	}
	go p.handleReconnect(addr)
	return p
}

func (p *Publisher) handleReconnect(addr string) {
	for {
		select {
		case <-p.done:
			return
		default:
		}
		p.setReady(false)

		p.logger.Info("attempting to connect")
		conn, err := p.connect(addr)
		if err != nil {
			p.logger.Warn("failed to connect, retrying", "error", err)

			select {
			case <-p.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if done := p.handleReInit(conn); done {
			return
		}
	}
}

func (p *Publisher) connect(addr string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, err
	}

	p.m.Lock()
	p.connection = conn
	p.notifyConnClose = make(chan *amqp.Error, 1)
	p.connection.NotifyClose(p.notifyConnClose)
	p.m.Unlock()

	p.logger.Info("connected")
	return conn, nil
}

// handleReInit waits for a channel error and re-initializes the channel.
// It returns true when the publisher is shutting down.
func (p *Publisher) handleReInit(conn amqpConnection) bool {
	for {
		p.setReady(false)

		if err := p.init(conn); err != nil {
			p.logger.Warn("failed to initialize channel, retrying", "error", err)

			select {
			case <-p.done:
				return true
			case <-p.notifyConnClose:
				p.logger.Warn("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-p.done:
			return true
		case <-p.notifyConnClose:
			p.logger.Warn("connection closed, reconnecting")
			return false
		case <-p.notifyChanClose:
			p.logger.Warn("channel closed, re-running init")
		}
	}
}

func (p *Publisher) init(conn amqpConnection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"fanout",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		return err
	}

	p.m.Lock()
	p.channel = ch
	p.notifyChanClose = make(chan *amqp.Error, 1)
	p.channel.NotifyClose(p.notifyChanClose)
	p.isReady = true
	p.m.Unlock()

	p.logger.Info("amqp channel ready", "exchange", p.exchange)
	return nil
}

func (p *Publisher) setReady(ready bool) {
	p.m.Lock()
	p.isReady = ready
	p.m.Unlock()
}

func (p *Publisher) RecordVisit(ctx context.Context, ev domain.VisitEvent) error {
	p.m.Lock()
	if !p.isReady {
		p.m.Unlock()
		return errNotConnected
	}
	ch := p.channel
	p.m.Unlock()

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		p.exchange,
		"visit."+hub.CompanyKey(ev.Company),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    ev.ID,
			Timestamp:    ev.OccurredAt,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Close shuts down the channel and connection and stops reconnecting.
func (p *Publisher) Close() error {
	p.m.Lock()
	defer p.m.Unlock()

	select {
	case <-p.done:
		return errAlreadyClosed
	default:
	}
	close(p.done)
	p.isReady = false

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
