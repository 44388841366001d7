package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
)

// Store is the transactional store mock
type Store struct{ mock.Mock }

func (m *Store) MeetingEventByInternalID(ctx context.Context, internalID string) (*persistence.MeetingEvent, error) {
	args := m.Called(ctx, internalID)
	return to[*persistence.MeetingEvent](args.Get(0)), args.Error(1)
}

func (m *Store) InsertMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) (int64, error) {
	args := m.Called(ctx, me)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) UpdateMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) error {
	args := m.Called(ctx, me)
	return args.Error(0)
}

func (m *Store) MeetingByInternalID(ctx context.Context, internalID string) (*persistence.Meeting, error) {
	args := m.Called(ctx, internalID)
	return to[*persistence.Meeting](args.Get(0)), args.Error(1)
}

func (m *Store) RunningMeetingByExternalID(ctx context.Context, externalID string) (*persistence.Meeting, error) {
	args := m.Called(ctx, externalID)
	return to[*persistence.Meeting](args.Get(0)), args.Error(1)
}

func (m *Store) InsertMeeting(ctx context.Context, mt *persistence.Meeting) error {
	args := m.Called(ctx, mt)
	return args.Error(0)
}

func (m *Store) UpdateMeeting(ctx context.Context, mt *persistence.Meeting) error {
	args := m.Called(ctx, mt)
	return args.Error(0)
}

func (m *Store) DeleteMeeting(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Store) InsertUserEvent(ctx context.Context, ue *persistence.UserEvent) error {
	args := m.Called(ctx, ue)
	return args.Error(0)
}

func (m *Store) OpenUserEvent(ctx context.Context, meetingEventID int64, internalUserID string) (*persistence.UserEvent, error) {
	args := m.Called(ctx, meetingEventID, internalUserID)
	return to[*persistence.UserEvent](args.Get(0)), args.Error(1)
}

func (m *Store) UpdateUserEvent(ctx context.Context, ue *persistence.UserEvent) error {
	args := m.Called(ctx, ue)
	return args.Error(0)
}

func (m *Store) CloseOpenUserEvents(ctx context.Context, meetingEventID, leaveTime int64) error {
	args := m.Called(ctx, meetingEventID, leaveTime)
	return args.Error(0)
}

func (m *Store) CountUniqueUsers(ctx context.Context, meetingEventID int64) (int, error) {
	args := m.Called(ctx, meetingEventID)
	return args.Int(0), args.Error(1)
}

func (m *Store) RecordingByInternalMeetingID(ctx context.Context, internalID string) (*persistence.Recording, error) {
	args := m.Called(ctx, internalID)
	return to[*persistence.Recording](args.Get(0)), args.Error(1)
}

func (m *Store) InsertRecording(ctx context.Context, r *persistence.Recording) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) UpdateRecording(ctx context.Context, r *persistence.Recording) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *Store) Server(ctx context.Context, serverURL string) (*persistence.Server, error) {
	args := m.Called(ctx, serverURL)
	return to[*persistence.Server](args.Get(0)), args.Error(1)
}

// Publisher is aggregator mock
type Publisher struct{ mock.Mock }

func (m *Publisher) Publish(ev event.Event, channelName string) error {
	args := m.Called(ev, channelName)
	return args.Error(0)
}

// Secrets is server secret provider mock
type Secrets struct{ mock.Mock }

func (m *Secrets) Secret(ctx context.Context, serverURL string) (string, error) {
	args := m.Called(ctx, serverURL)
	return args.String(0), args.Error(1)
}

// DB is liveness check mock
type DB struct{ mock.Mock }

func (m *DB) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Relay is queue sender mock
type Relay struct{ mock.Mock }

func (m *Relay) SendBatch(ctx context.Context, batch *messages.RawBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
