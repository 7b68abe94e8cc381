package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSPublisher publishes JSON encoded events to a NATS server
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the NATS servers.
// The prefix is prepended to every subject, i.e., "pokertable." + "table.hand.completed".
func NewNATSPublisher(servers, name, prefix string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logrus.WithError(err).Error("nats: disconnected with error")
			} else {
				logrus.Warn("nats: disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.Info("nats: reconnected")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to nats: %w", err)
	}

	logrus.WithField("servers", servers).Info("nats: connected")
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Publish implements Publisher
func (n *NATSPublisher) Publish(_ context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not encode event: %w", err)
	}

	if err := n.nc.Publish(n.prefix+subject, data); err != nil {
		return fmt.Errorf("could not publish to %s: %w", subject, err)
	}

	return nil
}

// Close drains and closes the connection
func (n *NATSPublisher) Close() error {
	return n.nc.Drain()
}
