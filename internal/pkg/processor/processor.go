package processor

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/aggregator"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
)

// Store is the transactional view of the aggregate state one handler
// invocation works on. Lookups return (nil, nil) when no row matches
type Store interface {
	MeetingEventByInternalID(ctx context.Context, internalID string) (*persistence.MeetingEvent, error)
	InsertMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) (int64, error)
	UpdateMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) error

	MeetingByInternalID(ctx context.Context, internalID string) (*persistence.Meeting, error)
	RunningMeetingByExternalID(ctx context.Context, externalID string) (*persistence.Meeting, error)
	InsertMeeting(ctx context.Context, m *persistence.Meeting) error
	UpdateMeeting(ctx context.Context, m *persistence.Meeting) error
	DeleteMeeting(ctx context.Context, id int64) error

	InsertUserEvent(ctx context.Context, ue *persistence.UserEvent) error
	OpenUserEvent(ctx context.Context, meetingEventID int64, internalUserID string) (*persistence.UserEvent, error)
	UpdateUserEvent(ctx context.Context, ue *persistence.UserEvent) error
	CloseOpenUserEvents(ctx context.Context, meetingEventID, leaveTime int64) error
	CountUniqueUsers(ctx context.Context, meetingEventID int64) (int, error)

	RecordingByInternalMeetingID(ctx context.Context, internalID string) (*persistence.Recording, error)
	InsertRecording(ctx context.Context, r *persistence.Recording) (int64, error)
	UpdateRecording(ctx context.Context, r *persistence.Recording) error

	Server(ctx context.Context, serverURL string) (*persistence.Server, error)
}

// SessionFactory opens one transactional session per handler invocation:
// commit on nil, rollback on error
type SessionFactory interface {
	RunInTx(ctx context.Context, f func(ctx context.Context, st Store) error) error
}

// DatabaseError is a hard reconciliation failure - the event cannot be
// applied and its transaction is rolled back
type DatabaseError struct {
	Msg string
}

func (e *DatabaseError) Error() string { return e.Msg }

// NewDatabaseError creates a hard reconciliation failure
func NewDatabaseError(format string, args ...any) error {
	return &DatabaseError{Msg: fmt.Sprintf(format, args...)}
}

// Processor reconciles typed events into the aggregate store.
// It is registered as an aggregator subscriber
type Processor struct {
	sessions SessionFactory
}

// NewProcessor creates the reconciliation engine
func NewProcessor(sessions SessionFactory) (*Processor, error) {
	if sessions == nil {
		return nil, fmt.Errorf("no session factory")
	}
	return &Processor{sessions: sessions}, nil
}

// Setup implements aggregator.Subscriber
func (p *Processor) Setup() error { return nil }

// Teardown implements aggregator.Subscriber
func (p *Processor) Teardown() error { return nil }

// Handle applies one event inside one transactional session.
// Failures are wrapped as callback errors so the delivery worker drops
// the event and keeps looping
func (p *Processor) Handle(ev event.Event) error {
	err := p.sessions.RunInTx(context.Background(), func(ctx context.Context, st Store) error {
		return p.dispatch(ctx, st, ev)
	})
	if err != nil {
		return aggregator.NewCallbackError(fmt.Errorf("process %s: %w", ev.Type(), err))
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, st Store, ev event.Event) error {
	goapp.Log.Debug().Str("event", ev.Type()).Str("server", ev.Server()).Msg("reconciling")
	switch e := ev.(type) {
	case *event.MeetingCreated:
		return p.meetingCreated(ctx, st, e)
	case *event.MeetingEnded:
		return p.meetingEnded(ctx, st, e)
	case *event.UserJoined:
		return p.userJoined(ctx, st, e)
	case *event.UserLeft:
		return p.userLeft(ctx, st, e)
	case *event.UserVoiceEnabled:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.HasJoinedVoice = e.HasJoinedVoice
			a.IsListeningOnly = e.IsListeningOnly
		})
	case *event.UserVoiceDisabled:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.HasJoinedVoice = false
		})
	case *event.UserListenOnlyEnabled:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.IsListeningOnly = true
		})
	case *event.UserListenOnlyDisabled:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.IsListeningOnly = false
		})
	case *event.UserCamBroadcastStart:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.HasVideo = true
		})
	case *event.UserCamBroadcastEnd:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.HasVideo = false
		})
	case *event.UserPresenterAssigned:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.IsPresenter = true
		})
	case *event.UserPresenterUnassigned:
		return p.mutateAttendee(ctx, st, e.UserRef, func(a *persistence.Attendee) {
			a.IsPresenter = false
		})
	case *event.MeetingTransferEnabled:
		return p.setTransfer(ctx, st, e.InternalMeetingID, true)
	case *event.MeetingTransferDisabled:
		return p.setTransfer(ctx, st, e.InternalMeetingID, false)
	case *event.RapArchiveStarted:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapArchiveEnded:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapSanityStarted:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapSanityEnded:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapProcessStarted:
		return p.rapStep(ctx, st, e.RapStep, &transition{from: "", to: persistence.RecordingProcessing})
	case *event.RapProcessEnded:
		return p.rapStep(ctx, st, e.RapStep, &transition{from: persistence.RecordingProcessing, to: persistence.RecordingProcessed})
	case *event.RapPublishStarted:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapPublishEnded:
		return p.rapPublishEnded(ctx, st, e)
	case *event.RapPostPublishStarted:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapPostPublishEnded:
		return p.rapStep(ctx, st, e.RapStep, nil)
	case *event.RapPublished:
		return p.rapSetPublished(ctx, st, e.RapRef, true)
	case *event.RapUnpublished:
		return p.rapSetPublished(ctx, st, e.RapRef, false)
	case *event.RapDeleted:
		return p.rapDeleted(ctx, st, e)
	}
	return fmt.Errorf("no handler for event '%s'", ev.Type())
}
