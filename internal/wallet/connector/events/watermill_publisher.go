// Package events publishes connector lifecycle events for the host wallet
// framework over a watermill publisher.
package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	// ConnectTopic carries connect events.
	ConnectTopic = "wallet.connect"
	// ChangeTopic carries account/chain change events.
	ChangeTopic = "wallet.change"
	// DisconnectTopic carries disconnect events.
	DisconnectTopic = "wallet.disconnect"
)

// LifecycleEvent is the payload published on all connector topics.
type LifecycleEvent struct {
	Address string `json:"address"`
	ChainID int64  `json:"chain_id,omitempty"`
}

// WatermillPublisher implements the connector Events port using watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new watermill-backed event publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConnect publishes a connect event.
func (p *WatermillPublisher) PublishConnect(_ context.Context, address common.Address, chainID int64) error {
	return p.publish(ConnectTopic, LifecycleEvent{Address: address.Hex(), ChainID: chainID})
}

// PublishChange publishes a chain/account change event.
func (p *WatermillPublisher) PublishChange(_ context.Context, address common.Address, chainID int64) error {
	return p.publish(ChangeTopic, LifecycleEvent{Address: address.Hex(), ChainID: chainID})
}

// PublishDisconnect publishes a disconnect event.
func (p *WatermillPublisher) PublishDisconnect(_ context.Context, address common.Address) error {
	return p.publish(DisconnectTopic, LifecycleEvent{Address: address.Hex()})
}

func (p *WatermillPublisher) publish(topic string, event LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", topic)
	}

	return nil
}
