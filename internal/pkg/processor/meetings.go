package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/utils"
)

// metadata keys the create call may use to pin the shared secret
const (
	metaSharedSecretGUID = "mconf-shared-secret-guid"
	metaSharedSecretName = "mconf-shared-secret-name"
	metaInstitutionGUID  = "mconf-institution-guid"
)

func (p *Processor) meetingCreated(ctx context.Context, st Store, e *event.MeetingCreated) error {
	me, err := st.MeetingEventByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting event: %w", err)
	}
	if me != nil {
		goapp.Log.Info().Str("meeting", e.InternalMeetingID).Msg("meeting event exists, skip create")
		return nil
	}
	m, err := st.RunningMeetingByExternalID(ctx, e.ExternalMeetingID)
	if err != nil {
		return fmt.Errorf("load running meeting: %w", err)
	}
	if m != nil {
		goapp.Log.Info().Str("meeting", e.ExternalMeetingID).Msg("meeting already running, skip create")
		return nil
	}

	nme := &persistence.MeetingEvent{
		ServerURL:         e.Server(),
		InternalMeetingID: e.InternalMeetingID,
		ExternalMeetingID: e.ExternalMeetingID,
		Name:              e.Name,
		CreateTime:        e.CreateTime,
		CreateDate:        e.CreateDate,
		VoiceBridge:       e.VoiceBridge,
		DialNumber:        e.DialNumber,
		AttendeePW:        e.AttendeePW,
		ModeratorPW:       e.ModeratorPW,
		Duration:          e.Duration,
		Recording:         e.Recording,
		MaxUsers:          e.MaxUsers,
		IsBreakout:        e.IsBreakout,
		Metadata:          e.Metadata,
		Created:           time.Now(),
	}
	if err := p.resolveSecret(ctx, st, nme, e); err != nil {
		return err
	}
	id, err := st.InsertMeetingEvent(ctx, nme)
	if err != nil {
		return fmt.Errorf("insert meeting event: %w", err)
	}
	nm := &persistence.Meeting{MeetingEventID: id, Running: true, Attendees: []persistence.Attendee{}}
	refreshCounts(nm)
	if err := st.InsertMeeting(ctx, nm); err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	goapp.Log.Info().Str("meeting", e.InternalMeetingID).Str("name", e.Name).Msg("meeting created")
	return nil
}

// resolveSecret fills the shared secret and institution linkage from the
// create metadata, falling back to the server table for the origin server
func (p *Processor) resolveSecret(ctx context.Context, st Store, me *persistence.MeetingEvent, e *event.MeetingCreated) error {
	if guid, ok := e.Metadata[metaSharedSecretGUID].(string); ok && guid != "" {
		me.SharedSecretGUID = guid
		me.SharedSecretName, _ = e.Metadata[metaSharedSecretName].(string)
		me.InstitutionGUID, _ = e.Metadata[metaInstitutionGUID].(string)
		return nil
	}
	srv, err := st.Server(ctx, e.Server())
	if err != nil {
		return fmt.Errorf("load server: %w", err)
	}
	if srv == nil {
		goapp.Log.Warn().Str("server", e.Server()).Msg("unknown server, no secret linkage")
		return nil
	}
	me.ServerGUID = srv.GUID
	me.SharedSecretGUID = srv.SharedSecretGUID
	me.SharedSecretName = srv.SharedSecretName
	me.InstitutionGUID = srv.InstitutionGUID
	return nil
}

func (p *Processor) meetingEnded(ctx context.Context, st Store, e *event.MeetingEnded) error {
	me, err := st.MeetingEventByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting event: %w", err)
	}
	if me == nil {
		goapp.Log.Warn().Str("meeting", e.InternalMeetingID).Msg("no meeting event, skip end")
		return nil
	}
	if err := st.CloseOpenUserEvents(ctx, me.ID, e.EndTime); err != nil {
		return fmt.Errorf("close open user events: %w", err)
	}
	me.EndTime = utils.ToSQLInt64(e.EndTime)
	if err := st.UpdateMeetingEvent(ctx, me); err != nil {
		return fmt.Errorf("update meeting event: %w", err)
	}
	m, err := st.MeetingByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if m == nil {
		goapp.Log.Warn().Str("meeting", e.InternalMeetingID).Msg("no running meeting row on end")
		return nil
	}
	if err := st.DeleteMeeting(ctx, m.ID); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	goapp.Log.Info().Str("meeting", e.InternalMeetingID).Msg("meeting ended")
	return nil
}

func (p *Processor) setTransfer(ctx context.Context, st Store, internalID string, enabled bool) error {
	m, err := st.MeetingByInternalID(ctx, internalID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if m == nil {
		goapp.Log.Warn().Str("meeting", internalID).Msg("no running meeting, skip transfer toggle")
		return nil
	}
	m.Transfer = enabled
	if err := st.UpdateMeeting(ctx, m); err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return nil
}
