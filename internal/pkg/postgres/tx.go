package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
)

// Tx is one transaction scoped store view. It implements processor.Store
type Tx struct {
	tx pgx.Tx
}

const meetingEventCols = `id, server_url, server_guid, shared_secret_guid, shared_secret_name,
	institution_guid, internal_meeting_id, external_meeting_id, name, create_time, create_date,
	voice_bridge, dial_number, attendee_pw, moderator_pw, duration, recording, max_users,
	is_breakout, has_forcibly_ended, start_time, end_time, unique_users, meta_data, created`

func scanMeetingEvent(row pgx.Row) (*persistence.MeetingEvent, error) {
	var res persistence.MeetingEvent
	err := row.Scan(&res.ID, &res.ServerURL, &res.ServerGUID, &res.SharedSecretGUID,
		&res.SharedSecretName, &res.InstitutionGUID, &res.InternalMeetingID, &res.ExternalMeetingID,
		&res.Name, &res.CreateTime, &res.CreateDate, &res.VoiceBridge, &res.DialNumber,
		&res.AttendeePW, &res.ModeratorPW, &res.Duration, &res.Recording, &res.MaxUsers,
		&res.IsBreakout, &res.HasForciblyEnded, &res.StartTime, &res.EndTime, &res.UniqueUsers,
		&res.Metadata, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load meeting event: %w", err)
	}
	return &res, nil
}

// MeetingEventByInternalID loads one meeting event, nil when missing
func (s *Tx) MeetingEventByInternalID(ctx context.Context, internalID string) (*persistence.MeetingEvent, error) {
	return scanMeetingEvent(s.tx.QueryRow(ctx, `SELECT `+meetingEventCols+
		` FROM meetings_events WHERE internal_meeting_id = $1`, internalID))
}

// InsertMeetingEvent inserts a meeting event row and returns its id
func (s *Tx) InsertMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO meetings_events(server_url, server_guid,
		shared_secret_guid, shared_secret_name, institution_guid, internal_meeting_id,
		external_meeting_id, name, create_time, create_date, voice_bridge, dial_number,
		attendee_pw, moderator_pw, duration, recording, max_users, is_breakout,
		has_forcibly_ended, start_time, end_time, unique_users, meta_data, created)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24) RETURNING id`,
		me.ServerURL, me.ServerGUID, me.SharedSecretGUID, me.SharedSecretName, me.InstitutionGUID,
		me.InternalMeetingID, me.ExternalMeetingID, me.Name, me.CreateTime, me.CreateDate,
		me.VoiceBridge, me.DialNumber, me.AttendeePW, me.ModeratorPW, me.Duration, me.Recording,
		me.MaxUsers, me.IsBreakout, me.HasForciblyEnded, me.StartTime, me.EndTime, me.UniqueUsers,
		me.Metadata, me.Created).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't insert meeting event: %w", err)
	}
	return id, nil
}

// UpdateMeetingEvent updates the mutable meeting event fields
func (s *Tx) UpdateMeetingEvent(ctx context.Context, me *persistence.MeetingEvent) error {
	_, err := s.tx.Exec(ctx, `UPDATE meetings_events SET start_time = $2, end_time = $3,
		unique_users = $4, has_forcibly_ended = $5 WHERE id = $1`,
		me.ID, me.StartTime, me.EndTime, me.UniqueUsers, me.HasForciblyEnded)
	if err != nil {
		return fmt.Errorf("can't update meeting event: %w", err)
	}
	return nil
}

const meetingCols = `m.id, m.meeting_event_id, m.running, m.has_user_joined, m.participant_count,
	m.listener_count, m.voice_participant_count, m.video_count, m.moderator_count,
	m.transfer_count, m.transfer, m.attendees`

func scanMeeting(row pgx.Row) (*persistence.Meeting, error) {
	var res persistence.Meeting
	err := row.Scan(&res.ID, &res.MeetingEventID, &res.Running, &res.HasUserJoined,
		&res.ParticipantCount, &res.ListenerCount, &res.VoiceParticipantCount, &res.VideoCount,
		&res.ModeratorCount, &res.TransferCount, &res.Transfer, &res.Attendees)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load meeting: %w", err)
	}
	return &res, nil
}

// MeetingByInternalID loads the running meeting row for an internal
// meeting id, locking it for the rest of the transaction so racing
// roster mutations serialize at the row
func (s *Tx) MeetingByInternalID(ctx context.Context, internalID string) (*persistence.Meeting, error) {
	return scanMeeting(s.tx.QueryRow(ctx, `SELECT `+meetingCols+` FROM meetings m
		JOIN meetings_events me ON m.meeting_event_id = me.id
		WHERE me.internal_meeting_id = $1 FOR UPDATE OF m`, internalID))
}

// RunningMeetingByExternalID loads a live meeting by the caller supplied
// meeting name, nil when missing
func (s *Tx) RunningMeetingByExternalID(ctx context.Context, externalID string) (*persistence.Meeting, error) {
	return scanMeeting(s.tx.QueryRow(ctx, `SELECT `+meetingCols+` FROM meetings m
		JOIN meetings_events me ON m.meeting_event_id = me.id
		WHERE me.external_meeting_id = $1 AND me.end_time IS NULL FOR UPDATE OF m`, externalID))
}

// InsertMeeting inserts the live meeting row
func (s *Tx) InsertMeeting(ctx context.Context, m *persistence.Meeting) error {
	rows, err := s.tx.Query(ctx, `INSERT INTO meetings(meeting_event_id, running,
		has_user_joined, participant_count, listener_count, voice_participant_count,
		video_count, moderator_count, transfer_count, transfer, attendees)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.MeetingEventID, m.Running, m.HasUserJoined, m.ParticipantCount, m.ListenerCount,
		m.VoiceParticipantCount, m.VideoCount, m.ModeratorCount, m.TransferCount,
		m.Transfer, m.Attendees)
	if err != nil {
		return fmt.Errorf("can't insert meeting: %w", err)
	}
	defer rows.Close()
	return nil
}

// UpdateMeeting writes the roster and all derived counts back
func (s *Tx) UpdateMeeting(ctx context.Context, m *persistence.Meeting) error {
	_, err := s.tx.Exec(ctx, `UPDATE meetings SET running = $2, has_user_joined = $3,
		participant_count = $4, listener_count = $5, voice_participant_count = $6,
		video_count = $7, moderator_count = $8, transfer_count = $9, transfer = $10,
		attendees = $11 WHERE id = $1`,
		m.ID, m.Running, m.HasUserJoined, m.ParticipantCount, m.ListenerCount,
		m.VoiceParticipantCount, m.VideoCount, m.ModeratorCount, m.TransferCount,
		m.Transfer, m.Attendees)
	if err != nil {
		return fmt.Errorf("can't update meeting: %w", err)
	}
	return nil
}

// DeleteMeeting removes the live meeting row, history stays in
// meetings_events and users_events
func (s *Tx) DeleteMeeting(ctx context.Context, id int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete meeting: %w", err)
	}
	return nil
}

// InsertUserEvent inserts one user session row
func (s *Tx) InsertUserEvent(ctx context.Context, ue *persistence.UserEvent) error {
	rows, err := s.tx.Query(ctx, `INSERT INTO users_events(meeting_event_id, internal_user_id,
		external_user_id, name, role, join_time, leave_time)
		VALUES($1, $2, $3, $4, $5, $6, $7)`,
		ue.MeetingEventID, ue.InternalUserID, ue.ExternalUserID, ue.Name, ue.Role,
		ue.JoinTime, ue.LeaveTime)
	if err != nil {
		return fmt.Errorf("can't insert user event: %w", err)
	}
	defer rows.Close()
	return nil
}

// OpenUserEvent loads the latest session of a user without a leave time
func (s *Tx) OpenUserEvent(ctx context.Context, meetingEventID int64, internalUserID string) (*persistence.UserEvent, error) {
	var res persistence.UserEvent
	err := s.tx.QueryRow(ctx, `SELECT id, meeting_event_id, internal_user_id, external_user_id,
		name, role, join_time, leave_time FROM users_events
		WHERE meeting_event_id = $1 AND internal_user_id = $2 AND leave_time IS NULL
		ORDER BY id DESC LIMIT 1`, meetingEventID, internalUserID).
		Scan(&res.ID, &res.MeetingEventID, &res.InternalUserID, &res.ExternalUserID,
			&res.Name, &res.Role, &res.JoinTime, &res.LeaveTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load user event: %w", err)
	}
	return &res, nil
}

// UpdateUserEvent sets the leave time of one session
func (s *Tx) UpdateUserEvent(ctx context.Context, ue *persistence.UserEvent) error {
	_, err := s.tx.Exec(ctx, `UPDATE users_events SET leave_time = $2 WHERE id = $1`,
		ue.ID, ue.LeaveTime)
	if err != nil {
		return fmt.Errorf("can't update user event: %w", err)
	}
	return nil
}

// CloseOpenUserEvents backfills leave_time for every still open session
// of a meeting, used on meeting end
func (s *Tx) CloseOpenUserEvents(ctx context.Context, meetingEventID, leaveTime int64) error {
	_, err := s.tx.Exec(ctx, `UPDATE users_events SET leave_time = $2
		WHERE meeting_event_id = $1 AND leave_time IS NULL`, meetingEventID, leaveTime)
	if err != nil {
		return fmt.Errorf("can't close user events: %w", err)
	}
	return nil
}

// CountUniqueUsers counts distinct users ever joined to a meeting
func (s *Tx) CountUniqueUsers(ctx context.Context, meetingEventID int64) (int, error) {
	var res int
	err := s.tx.QueryRow(ctx, `SELECT COUNT(DISTINCT internal_user_id) FROM users_events
		WHERE meeting_event_id = $1`, meetingEventID).Scan(&res)
	if err != nil {
		return 0, fmt.Errorf("can't count users: %w", err)
	}
	return res, nil
}

const recordingCols = `id, internal_meeting_id, external_meeting_id, name, status, is_breakout,
	published, start_time, end_time, participants, size, raw_size, current_step, meta_data,
	playback, download, workflow`

// RecordingByInternalMeetingID loads one recording row, nil when missing
func (s *Tx) RecordingByInternalMeetingID(ctx context.Context, internalID string) (*persistence.Recording, error) {
	var res persistence.Recording
	err := s.tx.QueryRow(ctx, `SELECT `+recordingCols+` FROM recordings
		WHERE internal_meeting_id = $1 FOR UPDATE`, internalID).
		Scan(&res.ID, &res.InternalMeetingID, &res.ExternalMeetingID, &res.Name, &res.Status,
			&res.IsBreakout, &res.Published, &res.StartTime, &res.EndTime, &res.Participants,
			&res.Size, &res.RawSize, &res.CurrentStep, &res.Metadata, &res.Playback,
			&res.Download, &res.Workflow)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load recording: %w", err)
	}
	return &res, nil
}

// InsertRecording inserts a recording row and returns its id
func (s *Tx) InsertRecording(ctx context.Context, r *persistence.Recording) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO recordings(internal_meeting_id, external_meeting_id,
		name, status, is_breakout, published, start_time, end_time, participants, size,
		raw_size, current_step, meta_data, playback, download, workflow)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		r.InternalMeetingID, r.ExternalMeetingID, r.Name, r.Status, r.IsBreakout, r.Published,
		r.StartTime, r.EndTime, r.Participants, r.Size, r.RawSize, r.CurrentStep, r.Metadata,
		r.Playback, r.Download, r.Workflow).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't insert recording: %w", err)
	}
	return id, nil
}

// UpdateRecording writes the recording state back
func (s *Tx) UpdateRecording(ctx context.Context, r *persistence.Recording) error {
	_, err := s.tx.Exec(ctx, `UPDATE recordings SET name = $2, status = $3, is_breakout = $4,
		published = $5, start_time = $6, end_time = $7, participants = $8, size = $9,
		raw_size = $10, current_step = $11, meta_data = $12, playback = $13, download = $14,
		workflow = $15 WHERE id = $1`,
		r.ID, r.Name, r.Status, r.IsBreakout, r.Published, r.StartTime, r.EndTime,
		r.Participants, r.Size, r.RawSize, r.CurrentStep, r.Metadata, r.Playback,
		r.Download, r.Workflow)
	if err != nil {
		return fmt.Errorf("can't update recording: %w", err)
	}
	return nil
}

// Server loads one server row by url, nil when missing
func (s *Tx) Server(ctx context.Context, serverURL string) (*persistence.Server, error) {
	var res persistence.Server
	err := s.tx.QueryRow(ctx, `SELECT guid, url, secret, shared_secret_guid, shared_secret_name,
		institution_guid FROM servers WHERE url = $1`, serverURL).
		Scan(&res.GUID, &res.URL, &res.Secret, &res.SharedSecretGUID, &res.SharedSecretName,
			&res.InstitutionGUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load server: %w", err)
	}
	return &res, nil
}
