package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type CampaignEvent struct {
	CampaignID    string `json:"campaign_id"`
	CampaignRunID string `json:"campaign_run_id,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	ModifiedBy    string `json:"modified_by,omitempty"`
}

type BugEvent struct {
	BugID      string `json:"bug_id"`
	Title      string `json:"title,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	ModifiedBy string `json:"modified_by,omitempty"`
}

const (
	ChannelCampaign = "uat:events:campaign"
	ChannelBug      = "uat:events:bug"
)

// ChannelFor routes an event type to its channel: bug.* events to the bug
// channel, everything else to the campaign channel.
func ChannelFor(eventType string) string {
	if strings.HasPrefix(eventType, "bug.") {
		return ChannelBug
	}
	return ChannelCampaign
}

type Bus struct {
	client redis.UniversalClient
}

func NewBus(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe streams the events published on channels until ctx is done.
// Messages that are not valid events are skipped.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan *Event {
	sub := b.client.Subscribe(ctx, channels...)

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return decodeMessages(sub.Channel())
}

func decodeMessages(messages <-chan *redis.Message) <-chan *Event {
	ch := make(chan *Event, 100)

	go func() {
		defer close(ch)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			ch <- &event
		}
	}()

	return ch
}
