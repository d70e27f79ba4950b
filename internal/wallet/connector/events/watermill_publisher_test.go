package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/passlet/go-wallet/internal/wallet/connector/events"
)

func TestPublishConnect(t *testing.T) {
	ctx := t.Context()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	messages, err := pubSub.Subscribe(ctx, events.ConnectTopic)
	require.NoError(t, err)

	publisher := events.NewWatermillPublisher(pubSub)

	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	require.NoError(t, publisher.PublishConnect(ctx, address, 11155111))

	select {
	case msg := <-messages:
		var event events.LifecycleEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, address.Hex(), event.Address)
		assert.Equal(t, int64(11155111), event.ChainID)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no connect event received")
	}
}

func TestPublishDisconnectOmitsChain(t *testing.T) {
	ctx := t.Context()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	messages, err := pubSub.Subscribe(ctx, events.DisconnectTopic)
	require.NoError(t, err)

	publisher := events.NewWatermillPublisher(pubSub)

	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	require.NoError(t, publisher.PublishDisconnect(ctx, address))

	select {
	case msg := <-messages:
		assert.NotContains(t, string(msg.Payload), "chain_id")
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no disconnect event received")
	}
}
