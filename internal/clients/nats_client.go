package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"sponsor-backend/internal/config"
	"sponsor-backend/internal/metrics"
)

// RootUpdatedEvent is published by the pool indexer whenever the state tree
// grows a new root.
type RootUpdatedEvent struct {
	NewRoot     string `json:"new_root"` // decimal or 0x-hex field element
	LeafIndex   uint64 `json:"leaf_index"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	Timestamp   int64  `json:"timestamp"`
}

// SponsorshipSettledEvent is what this service publishes after settlement.
type SponsorshipSettledEvent struct {
	OperationHash     string `json:"operation_hash"`
	Recipient         string `json:"recipient"`
	WithdrawnValue    string `json:"withdrawn_value"`
	PromisedFee       string `json:"promised_fee"`
	ActualCost        string `json:"actual_cost"`
	Refund            string `json:"refund"`
	RefundDelivered   bool   `json:"refund_delivered"`
	OperationReverted bool   `json:"operation_reverted"`
	Timestamp         int64  `json:"timestamp"`
}

// NATSClient NATS client
type NATSClient struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

// NewNATSClient connects to the NATS server and ensures the sponsorship
// stream exists when JetStream is enabled.
func NewNATSClient(url, streamName string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	if config.AppConfig != nil && config.AppConfig.NATS.Timeout > 0 {
		connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	client := &NATSClient{conn: conn, streamName: streamName}

	if config.AppConfig != nil && config.AppConfig.NATS.EnableJetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.js = js
		if err := client.ensureStream(); err != nil {
			conn.Close()
			return nil, err
		}
	}

	log.Printf("✅ NATS connected: %s", url)
	return client, nil
}

// ensureStream creates the sponsorship stream if it does not exist yet.
func (c *NATSClient) ensureStream() error {
	if c.js == nil {
		return nil
	}
	subjects := []string{config.AppConfig.NATS.Subjects.Sponsorships}
	_, err := c.js.StreamInfo(c.streamName)
	if err == nil {
		return nil
	}
	_, err = c.js.AddStream(&nats.StreamConfig{
		Name:      c.streamName,
		Subjects:  subjects,
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.streamName, err)
	}
	log.Printf("✅ Created JetStream stream: %s", c.streamName)
	return nil
}

// SubscribeToRootUpdates consumes pool root announcements. The handler
// receives the decoded event and the raw subject.
func (c *NATSClient) SubscribeToRootUpdates(handler func(*RootUpdatedEvent, string)) error {
	subject := config.AppConfig.NATS.Subjects.RootUpdates
	_, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event RootUpdatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("⚠️ Failed to decode root update on %s: %v", msg.Subject, err)
			metrics.NATSMessagesFailed.WithLabelValues(msg.Subject).Inc()
			return
		}
		handler(&event, msg.Subject)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("📡 Subscribed to root updates: %s", subject)
	return nil
}

// PublishSponsorshipSettled announces a settled sponsorship. Publish uses
// JetStream when available, plain NATS otherwise.
func (c *NATSClient) PublishSponsorshipSettled(event *SponsorshipSettledEvent) error {
	subject := config.AppConfig.NATS.Subjects.Sponsorships
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sponsorship event: %w", err)
	}
	if c.js != nil {
		_, err = c.js.Publish(subject, data)
	} else {
		err = c.conn.Publish(subject, data)
	}
	if err != nil {
		metrics.NATSMessagesFailed.WithLabelValues(subject).Inc()
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		metrics.NATSConnectionStatus.Set(0)
	}
}

// GetConnection exposes the raw connection for health checks.
func (c *NATSClient) GetConnection() *nats.Conn {
	return c.conn
}
