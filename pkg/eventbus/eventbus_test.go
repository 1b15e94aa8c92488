package eventbus

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFor(t *testing.T) {
	assert.Equal(t, ChannelBug, ChannelFor("bug.status_changed"))
	assert.Equal(t, ChannelCampaign, ChannelFor("campaign.status_changed"))
	assert.Equal(t, ChannelCampaign, ChannelFor("campaign_run.created"))
}

func TestEventRoundTrip(t *testing.T) {
	event, err := NewEvent("bug.status_changed", BugEvent{BugID: "b-1", From: "OPEN", To: "CLOSED"})
	require.NoError(t, err)
	assert.NotZero(t, event.Timestamp)

	var decoded BugEvent
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, "CLOSED", decoded.To)
}

func TestDecodeMessagesSkipsMalformedPayloads(t *testing.T) {
	event, err := NewEvent("campaign.status_changed", CampaignEvent{CampaignID: "c-1", From: "DRAFT", To: "RUNNING"})
	require.NoError(t, err)
	event.ID = "e-1"
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	messages := make(chan *redis.Message, 2)
	messages <- &redis.Message{Channel: ChannelCampaign, Payload: "not json"}
	messages <- &redis.Message{Channel: ChannelCampaign, Payload: string(payload)}
	close(messages)

	var received []*Event
	for e := range decodeMessages(messages) {
		received = append(received, e)
	}

	require.Len(t, received, 1)
	assert.Equal(t, "e-1", received[0].ID)

	var decoded CampaignEvent
	require.NoError(t, received[0].Decode(&decoded))
	assert.Equal(t, "RUNNING", decoded.To)
}
