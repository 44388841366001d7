package processor

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/utils"
)

const roleModerator = "MODERATOR"

// refreshCounts recomputes every derived counter from the attendee list.
// Counts are never maintained incrementally - a full rescan after each
// mutation keeps them from drifting
func refreshCounts(m *persistence.Meeting) {
	transfer, moderators, listeners, voice, video := 0, 0, 0, 0, 0
	for i := range m.Attendees {
		a := &m.Attendees[i]
		if a.IsTransfer {
			transfer++
		}
		if a.Role == roleModerator {
			moderators++
		}
		if a.IsListeningOnly {
			listeners++
		}
		if a.HasJoinedVoice {
			voice++
		}
		if a.HasVideo {
			video++
		}
	}
	m.TransferCount = transfer
	m.ParticipantCount = len(m.Attendees) - transfer
	m.HasUserJoined = m.ParticipantCount != 0
	m.ModeratorCount = moderators
	m.ListenerCount = listeners
	m.VoiceParticipantCount = voice
	m.VideoCount = video
}

func (p *Processor) userJoined(ctx context.Context, st Store, e *event.UserJoined) error {
	me, err := st.MeetingEventByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting event: %w", err)
	}
	m, err := st.MeetingByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if me == nil || m == nil {
		return NewDatabaseError("user '%s' joined meeting '%s' with no meeting row",
			e.InternalUserID, e.InternalMeetingID)
	}
	if err := st.InsertUserEvent(ctx, &persistence.UserEvent{
		MeetingEventID: me.ID,
		InternalUserID: e.InternalUserID,
		ExternalUserID: e.ExternalUserID,
		Name:           e.Name,
		Role:           e.Role,
		JoinTime:       e.JoinTime,
	}); err != nil {
		return fmt.Errorf("insert user event: %w", err)
	}
	if m.FindAttendee(e.InternalUserID) == nil {
		m.Attendees = append(m.Attendees, persistence.Attendee{
			InternalUserID:  e.InternalUserID,
			ExternalUserID:  e.ExternalUserID,
			FullName:        e.Name,
			Role:            e.Role,
			IsPresenter:     e.IsPresenter,
			IsListeningOnly: e.IsListeningOnly,
			HasJoinedVoice:  e.HasJoinedVoice,
			HasVideo:        e.HasVideo,
			IsTransfer:      e.IsTransfer,
			UserData:        e.UserData,
		})
	} else {
		goapp.Log.Info().Str("user", e.InternalUserID).Str("meeting", e.InternalMeetingID).
			Msg("attendee already present, keep roster")
	}
	m.Running = true
	refreshCounts(m)
	if err := st.UpdateMeeting(ctx, m); err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	if !me.StartTime.Valid {
		me.StartTime = utils.ToSQLInt64(e.JoinTime)
	}
	unique, err := st.CountUniqueUsers(ctx, me.ID)
	if err != nil {
		return fmt.Errorf("count unique users: %w", err)
	}
	me.UniqueUsers = unique
	if err := st.UpdateMeetingEvent(ctx, me); err != nil {
		return fmt.Errorf("update meeting event: %w", err)
	}
	goapp.Log.Info().Str("user", e.InternalUserID).Str("meeting", e.InternalMeetingID).
		Int("participants", m.ParticipantCount).Msg("user joined")
	return nil
}

func (p *Processor) userLeft(ctx context.Context, st Store, e *event.UserLeft) error {
	m, err := st.MeetingByInternalID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if m == nil {
		goapp.Log.Warn().Str("meeting", e.InternalMeetingID).Msg("no running meeting, skip user leave")
		return nil
	}
	removed := false
	for i := range m.Attendees {
		if m.Attendees[i].InternalUserID == e.InternalUserID {
			m.Attendees = append(m.Attendees[:i], m.Attendees[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		goapp.Log.Warn().Str("user", e.InternalUserID).Str("meeting", e.InternalMeetingID).
			Msg("attendee not in roster on leave")
	}
	refreshCounts(m)
	if err := st.UpdateMeeting(ctx, m); err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	ue, err := st.OpenUserEvent(ctx, m.MeetingEventID, e.InternalUserID)
	if err != nil {
		return fmt.Errorf("load user event: %w", err)
	}
	if ue == nil {
		goapp.Log.Warn().Str("user", e.InternalUserID).Str("meeting", e.InternalMeetingID).
			Msg("no open user event on leave")
		return nil
	}
	ue.LeaveTime = utils.ToSQLInt64(e.LeaveTime)
	if err := st.UpdateUserEvent(ctx, ue); err != nil {
		return fmt.Errorf("update user event: %w", err)
	}
	goapp.Log.Info().Str("user", e.InternalUserID).Str("meeting", e.InternalMeetingID).
		Int("participants", m.ParticipantCount).Msg("user left")
	return nil
}

// mutateAttendee applies one roster attribute change and refreshes the
// derived counts. Missing meeting or attendee is not a failure
func (p *Processor) mutateAttendee(ctx context.Context, st Store, ref event.UserRef, change func(*persistence.Attendee)) error {
	m, err := st.MeetingByInternalID(ctx, ref.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if m == nil {
		goapp.Log.Warn().Str("meeting", ref.InternalMeetingID).Str("event", ref.Type()).
			Msg("no running meeting, skip attendee change")
		return nil
	}
	a := m.FindAttendee(ref.InternalUserID)
	if a == nil {
		goapp.Log.Warn().Str("user", ref.InternalUserID).Str("event", ref.Type()).
			Msg("attendee not in roster, skip change")
		return nil
	}
	change(a)
	refreshCounts(m)
	if err := st.UpdateMeeting(ctx, m); err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return nil
}
