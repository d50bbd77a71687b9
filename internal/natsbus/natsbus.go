// Package natsbus publishes key events to a NATS subject.
package natsbus

import (
	"fmt"
	"time"

	"github.com/jeffchao/backoff"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/touch-keys/internal/keys"
	"github.com/sweeney/touch-keys/internal/mqtt"
)

// Subject returns the subject for key events of the named device.
func Subject(name string) string {
	return "touchkeys." + name + ".events"
}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Dialer opens a connection to url.
type Dialer func(url string) (Conn, error)

func dialNATS(url string) (Conn, error) {
	return nats.Connect(url,
		nats.Name("touch-keys"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("nats: disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats: reconnected")
		}),
	)
}

// Publisher sends key events to NATS using the MQTT key payload.
type Publisher struct {
	conn    Conn
	subject string
}

// Options configure Connect.
type Options struct {
	URL        string
	Name       string
	Interval   time.Duration // initial retry interval
	MaxRetries int
	Dial       Dialer // nil uses nats.Connect
}

// Connect dials the server, retrying with Fibonacci backoff.
func Connect(opts Options) (*Publisher, error) {
	if opts.Dial == nil {
		opts.Dial = dialNATS
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}

	f := backoff.Fibonacci()
	f.Interval = opts.Interval
	f.MaxRetries = opts.MaxRetries

	var conn Conn
	err := f.Retry(func() error {
		log.WithField("url", opts.URL).Debug("nats: connecting")
		c, err := opts.Dial(opts.URL)
		if err != nil {
			log.WithError(err).Debug("nats: connect failed")
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", opts.URL, err)
	}

	log.WithField("url", opts.URL).Info("nats: connected")
	return New(conn, opts.Name), nil
}

// New wraps an open connection.
func New(conn Conn, name string) *Publisher {
	return &Publisher{conn: conn, subject: Subject(name)}
}

// Publish sends a key event.
func (p *Publisher) Publish(event keys.Event) error {
	payload, err := mqtt.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
