package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/fleetcore/backend/pkg/log"
)

// MessageHandler processes one inbound message
type MessageHandler func(ctx context.Context, topic string, payload []byte)

var errNotStarted = errors.New("mqtt: client not started")

// Config holds broker connection settings
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      uint16
	ConnectTimeout time.Duration
}

// Client is a reconnecting MQTT v5 client. Subscriptions are remembered and
// replayed whenever the connection comes back up.
type Client struct {
	cfg    Config
	logger log.Logger
	cm     *autopaho.ConnectionManager

	// topic filter -> subscriptionEntry
	subscriptions sync.Map
}

type subscriptionEntry struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// NewClient validates cfg and returns an unstarted client
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt: broker url is required")
	}
	if _, err := url.Parse(cfg.BrokerURL); err != nil {
		return nil, fmt.Errorf("mqtt: invalid broker url: %w", err)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("mqtt: client id is required")
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 30
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	return &Client{
		cfg:    cfg,
		logger: logger.WithName("mqtt"),
	}, nil
}

// Start begins connecting in the background. The connection is torn down when ctx is done.
func (c *Client) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL)

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: true,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.router,
			},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
	}

	c.logger.Info("starting mqtt client", "broker", c.cfg.BrokerURL, "client_id", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt: failed to start connection: %w", err)
	}
	c.cm = cm
	return nil
}

func (c *Client) Disconnect(ctx context.Context) {
	if c.cm != nil {
		_ = c.cm.Disconnect(ctx)
		c.logger.Info("mqtt client disconnected")
	}
}

func (c *Client) Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: payload,
	})
	return err
}

// Subscribe registers handler for topic. If the client is offline the
// subscription is sent once the connection is up.
func (c *Client) Subscribe(ctx context.Context, topic string, qos byte, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.subscriptions.Store(topic, subscriptionEntry{topic: topic, qos: qos, handler: handler})

	_, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: qos},
		},
	})
	if err != nil {
		return fmt.Errorf("mqtt: failed to send subscription packet: %w", err)
	}

	c.logger.Info("subscribed to topic", "topic", topic)
	return nil
}

// AwaitConnection blocks until connected or ctx is done
func (c *Client) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *Client) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.logger.Info("mqtt connection established")

	c.subscriptions.Range(func(_, value any) bool {
		entry := value.(subscriptionEntry)
		if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: entry.topic, QoS: entry.qos},
			},
		}); err != nil {
			c.logger.Error(err, "failed to re-subscribe", "topic", entry.topic)
		}
		return true
	})
}

func (c *Client) onConnectError(err error) {
	c.logger.Error(err, "mqtt connection failed, retrying")
}

func (c *Client) onClientError(err error) {
	c.logger.Error(err, "mqtt client error")
}

func (c *Client) onServerDisconnect(d *paho.Disconnect) {
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	c.logger.Warn("mqtt server requested disconnect", "reason", reason)
}

// router dispatches a received message to every handler whose filter matches.
// Handlers run on the receiving goroutine so messages are processed in the
// order the broker delivered them.
func (c *Client) router(p paho.PublishReceived) (bool, error) {
	matched := false
	c.subscriptions.Range(func(_, value any) bool {
		entry := value.(subscriptionEntry)
		if topicsMatch(entry.topic, p.Packet.Topic) {
			entry.handler(context.Background(), p.Packet.Topic, p.Packet.Payload)
			matched = true
		}
		return true
	})

	if !matched {
		c.logger.Debug("received message on unhandled topic", "topic", p.Packet.Topic)
	}
	return true, nil
}

// topicsMatch reports whether topic matches filter, honouring + and # wildcards
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if !strings.ContainsAny(filter, "+#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
