package persistence

import (
	"database/sql"
	"time"
)

// Recording statuses
const (
	RecordingProcessing  = "processing"
	RecordingProcessed   = "processed"
	RecordingPublished   = "published"
	RecordingUnpublished = "unpublished"
	RecordingDeleted     = "deleted"
)

type (

	// Server table - known conferencing servers with their shared secrets
	Server struct {
		GUID             string
		URL              string
		Secret           string
		SharedSecretGUID string
		SharedSecretName string
		InstitutionGUID  string
	}

	// MeetingEvent table - one row per meeting lifecycle
	MeetingEvent struct {
		ID                int64
		ServerURL         string
		ServerGUID        string
		SharedSecretGUID  string
		SharedSecretName  string
		InstitutionGUID   string
		InternalMeetingID string
		ExternalMeetingID string
		Name              string
		CreateTime        int64
		CreateDate        string
		VoiceBridge       string
		DialNumber        string
		AttendeePW        string
		ModeratorPW       string
		Duration          int
		Recording         bool
		MaxUsers          int
		IsBreakout        bool
		HasForciblyEnded  bool
		StartTime         sql.NullInt64
		EndTime           sql.NullInt64
		UniqueUsers       int
		Metadata          map[string]any
		Created           time.Time
	}

	// Attendee is one entry of the live meeting roster,
	// keyed by InternalUserID within the list
	Attendee struct {
		InternalUserID  string         `json:"internal_user_id"`
		ExternalUserID  string         `json:"external_user_id"`
		FullName        string         `json:"full_name"`
		Role            string         `json:"role"`
		IsPresenter     bool           `json:"is_presenter"`
		IsListeningOnly bool           `json:"is_listening_only"`
		HasJoinedVoice  bool           `json:"has_joined_voice"`
		HasVideo        bool           `json:"has_video"`
		IsTransfer      bool           `json:"is_transfer"`
		UserData        map[string]any `json:"user_data,omitempty"`
	}

	// Meeting table - one row per currently running meeting.
	// Count fields are derived from Attendees on every mutation
	Meeting struct {
		ID                    int64
		MeetingEventID        int64
		Running               bool
		HasUserJoined         bool
		ParticipantCount      int
		ListenerCount         int
		VoiceParticipantCount int
		VideoCount            int
		ModeratorCount        int
		TransferCount         int
		Transfer              bool
		Attendees             []Attendee
	}

	// UserEvent table - one row per user session per meeting, never deleted
	UserEvent struct {
		ID             int64
		MeetingEventID int64
		InternalUserID string
		ExternalUserID string
		Name           string
		Role           string
		JoinTime       int64
		LeaveTime      sql.NullInt64
	}

	// Playback keeps one playback format entry of a published recording
	Playback struct {
		Format         string         `json:"format"`
		Link           string         `json:"link"`
		ProcessingTime int64          `json:"processing_time"`
		Duration       int64          `json:"duration"`
		Size           int64          `json:"size"`
		Extensions     map[string]any `json:"extensions,omitempty"`
	}

	// Recording table - one row per meeting with recording artifacts
	Recording struct {
		ID                int64
		InternalMeetingID string
		ExternalMeetingID string
		Name              string
		Status            string
		IsBreakout        bool
		Published         bool
		StartTime         sql.NullInt64
		EndTime           sql.NullInt64
		Participants      int
		Size              int64
		RawSize           int64
		CurrentStep       string
		Metadata          map[string]any
		Playback          []Playback
		Download          map[string]any
		Workflow          map[string]string
	}
)

// FindAttendee returns a pointer into the roster for the given internal user id
func (m *Meeting) FindAttendee(internalUserID string) *Attendee {
	for i := range m.Attendees {
		if m.Attendees[i].InternalUserID == internalUserID {
			return &m.Attendees[i]
		}
	}
	return nil
}
