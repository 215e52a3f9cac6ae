// Package events wires NATS subscriptions into the pool state kept warm in
// memory. The root ring is hydrated from chain at boot; events keep it
// current between validations.
package events

import (
	"log"
	"math/big"
	"strings"
	"sync"

	"sponsor-backend/internal/clients"
	"sponsor-backend/internal/config"
	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/pool"
)

var (
	natsClient *clients.NATSClient
	natsOnce   sync.Once
)

// InitNATSServices connects the NATS client once. Safe to call when NATS is
// not configured: the service then runs on chain reads alone.
func InitNATSServices() error {
	var initErr error
	natsOnce.Do(func() {
		if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
			log.Println("NATS not configured, skipping initialization")
			return
		}
		client, err := clients.NewNATSClient(config.AppConfig.NATS.URL, "SPONSOR_EVENTS")
		if err != nil {
			initErr = err
			return
		}
		natsClient = client
	})
	return initErr
}

// Client returns the shared NATS client, nil when NATS is not configured.
func Client() *clients.NATSClient {
	return natsClient
}

// SubscribeRootUpdates feeds announced pool roots into the live view's ring.
func SubscribeRootUpdates(view *pool.LiveView) error {
	if natsClient == nil {
		return nil
	}
	return natsClient.SubscribeToRootUpdates(func(event *clients.RootUpdatedEvent, subject string) {
		root, ok := parseFieldElement(event.NewRoot)
		if !ok {
			log.Printf("⚠️ Ignoring unparseable root %q on %s", event.NewRoot, subject)
			metrics.NATSMessagesFailed.WithLabelValues(subject).Inc()
			return
		}
		view.ObserveRoot(root)
		metrics.RootUpdatesReceived.Inc()
		log.Printf("🌲 Root update consumed: block=%d root=%s…", event.BlockNumber, event.NewRoot[:min(10, len(event.NewRoot))])
	})
}

// parseFieldElement accepts decimal or 0x-hex encodings.
func parseFieldElement(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// Shutdown closes the NATS connection.
func Shutdown() {
	if natsClient != nil {
		natsClient.Close()
	}
}
