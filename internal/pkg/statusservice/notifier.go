package statusservice

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/aggregator"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
)

// MeetingDB provides persistence functionality
type MeetingDB interface {
	RunningMeetingOverview(ctx context.Context, internalMeetingID string) (*persistence.Meeting, error)
}

// WSConnHandler tracks websocket subscriptions by meeting id
type WSConnHandler interface {
	GetConnections(id string) ([]WsConn, bool)
}

// Notifier is an aggregator subscriber pushing a meeting snapshot to
// every websocket client subscribed to the meeting an event touched
type Notifier struct {
	db        MeetingDB
	wsHandler WSConnHandler
}

// NewNotifier creates the status push subscriber
func NewNotifier(db MeetingDB, wsHandler WSConnHandler) (*Notifier, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if wsHandler == nil {
		return nil, fmt.Errorf("no WSHandler")
	}
	return &Notifier{db: db, wsHandler: wsHandler}, nil
}

// Setup implements aggregator.Subscriber
func (n *Notifier) Setup() error { return nil }

// Teardown implements aggregator.Subscriber
func (n *Notifier) Teardown() error { return nil }

type result struct {
	InternalMeetingID     string `json:"internal_meeting_id"`
	Event                 string `json:"event"`
	Running               bool   `json:"running"`
	ParticipantCount      int    `json:"participant_count"`
	ListenerCount         int    `json:"listener_count"`
	VoiceParticipantCount int    `json:"voice_participant_count"`
	VideoCount            int    `json:"video_count"`
	ModeratorCount        int    `json:"moderator_count"`
}

// Handle implements aggregator.Subscriber
func (n *Notifier) Handle(ev event.Event) error {
	ms, ok := ev.(interface{ Meeting() event.MeetingRef })
	if !ok {
		return nil
	}
	id := ms.Meeting().InternalMeetingID
	if id == "" {
		return nil
	}
	conns, found := n.wsHandler.GetConnections(id)
	if !found {
		goapp.Log.Debug().Str("meeting", id).Msg("no connections found")
		return nil
	}
	ctx, cf := context.WithTimeout(context.Background(), time.Second*10)
	defer cf()
	m, err := n.db.RunningMeetingOverview(ctx, id)
	if err != nil {
		return aggregator.NewCallbackError(fmt.Errorf("cannot get meeting %s: %w", id, err))
	}
	res := &result{InternalMeetingID: id, Event: ev.Type()}
	if m != nil {
		res.Running = m.Running
		res.ParticipantCount = m.ParticipantCount
		res.ListenerCount = m.ListenerCount
		res.VoiceParticipantCount = m.VoiceParticipantCount
		res.VideoCount = m.VideoCount
		res.ModeratorCount = m.ModeratorCount
	}
	for _, c := range conns {
		if err := sendMsg(c, res); err != nil {
			goapp.Log.Error().Err(err).Send()
		}
	}
	return nil
}

func sendMsg(c WsConn, res *result) error {
	goapp.Log.Debug().Str("meeting", res.InternalMeetingID).Msg("Sending result to websocket")
	if err := c.WriteJSON(res); err != nil {
		return fmt.Errorf("cannot write to websocket: %w", err)
	}
	return nil
}
