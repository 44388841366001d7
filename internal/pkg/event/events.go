package event

// Wire event identifiers as sent by the conferencing server
const (
	TypeMeetingCreated          = "meeting-created"
	TypeMeetingEnded            = "meeting-ended"
	TypeUserJoined              = "user-joined"
	TypeUserLeft                = "user-left"
	TypeUserVoiceEnabled        = "user-audio-voice-enabled"
	TypeUserVoiceDisabled       = "user-audio-voice-disabled"
	TypeUserListenOnlyEnabled   = "user-audio-listen-only-enabled"
	TypeUserListenOnlyDisabled  = "user-audio-listen-only-disabled"
	TypeUserCamBroadcastStart   = "user-cam-broadcast-start"
	TypeUserCamBroadcastEnd     = "user-cam-broadcast-end"
	TypeUserPresenterAssigned   = "user-presenter-assigned"
	TypeUserPresenterUnassigned = "user-presenter-unassigned"
	TypeMeetingTransferEnabled  = "meeting-transfer-enabled"
	TypeMeetingTransferDisabled = "meeting-transfer-disabled"
	TypeRapArchiveStarted       = "rap-archive-started"
	TypeRapArchiveEnded         = "rap-archive-ended"
	TypeRapSanityStarted        = "rap-sanity-started"
	TypeRapSanityEnded          = "rap-sanity-ended"
	TypeRapProcessStarted       = "rap-process-started"
	TypeRapProcessEnded         = "rap-process-ended"
	TypeRapPublishStarted       = "rap-publish-started"
	TypeRapPublishEnded         = "rap-publish-ended"
	TypeRapPostPublishStarted   = "rap-post-publish-started"
	TypeRapPostPublishEnded     = "rap-post-publish-ended"
	TypeRapPublished            = "rap-published"
	TypeRapUnpublished          = "rap-unpublished"
	TypeRapDeleted              = "rap-deleted"
)

// Event is one normalized webhook event. The set of implementations is
// closed - the processor dispatches with a type switch
type Event interface {
	Type() string
	Server() string
}

// Base carries the fields every typed event has
type Base struct {
	EventType string
	ServerURL string
	Timestamp int64
}

// Type returns the wire event identifier
func (b Base) Type() string { return b.EventType }

// Server returns the origin server identifier
func (b Base) Server() string { return b.ServerURL }

// MeetingRef identifies the meeting an event belongs to
type MeetingRef struct {
	InternalMeetingID string
	ExternalMeetingID string
}

// Meeting makes every meeting scoped event discoverable via a type
// assertion on the embedded ref
func (r MeetingRef) Meeting() MeetingRef { return r }

type (
	// MeetingCreated data
	MeetingCreated struct {
		Base
		MeetingRef
		Name        string
		CreateTime  int64
		CreateDate  string
		VoiceBridge string
		DialNumber  string
		AttendeePW  string
		ModeratorPW string
		Duration    int
		Recording   bool
		MaxUsers    int
		IsBreakout  bool
		Metadata    map[string]any
	}

	// MeetingEnded data
	MeetingEnded struct {
		Base
		MeetingRef
		EndTime int64
	}

	// UserJoined data
	UserJoined struct {
		Base
		MeetingRef
		InternalUserID  string
		ExternalUserID  string
		Name            string
		Role            string
		IsPresenter     bool
		IsListeningOnly bool
		HasJoinedVoice  bool
		HasVideo        bool
		IsTransfer      bool
		JoinTime        int64
		UserData        map[string]any
	}

	// UserLeft data
	UserLeft struct {
		Base
		MeetingRef
		InternalUserID string
		LeaveTime      int64
	}

	// UserRef identifies one attendee of a running meeting
	UserRef struct {
		Base
		MeetingRef
		InternalUserID string
	}

	// UserVoiceEnabled - attendee joined audio
	UserVoiceEnabled struct {
		UserRef
		HasJoinedVoice  bool
		IsListeningOnly bool
	}
	// UserVoiceDisabled - attendee left audio
	UserVoiceDisabled struct{ UserRef }
	// UserListenOnlyEnabled - attendee switched to listen only
	UserListenOnlyEnabled struct{ UserRef }
	// UserListenOnlyDisabled - attendee left listen only mode
	UserListenOnlyDisabled struct{ UserRef }
	// UserCamBroadcastStart - attendee started webcam
	UserCamBroadcastStart struct{ UserRef }
	// UserCamBroadcastEnd - attendee stopped webcam
	UserCamBroadcastEnd struct{ UserRef }
	// UserPresenterAssigned - attendee became presenter
	UserPresenterAssigned struct{ UserRef }
	// UserPresenterUnassigned - attendee lost presenter
	UserPresenterUnassigned struct{ UserRef }

	// MeetingTransferEnabled - meeting entered transfer mode
	MeetingTransferEnabled struct {
		Base
		MeetingRef
	}
	// MeetingTransferDisabled - meeting left transfer mode
	MeetingTransferDisabled struct {
		Base
		MeetingRef
	}

	// RapRef identifies a recording pipeline event
	RapRef struct {
		Base
		MeetingRef
		RecordID string
		Workflow string
	}

	// RapStep is a start/end marker of one recording pipeline stage
	RapStep struct {
		RapRef
		Success  bool
		StepTime int64
	}

	// RapArchiveStarted recording step
	RapArchiveStarted struct{ RapStep }
	// RapArchiveEnded recording step
	RapArchiveEnded struct{ RapStep }
	// RapSanityStarted recording step
	RapSanityStarted struct{ RapStep }
	// RapSanityEnded recording step
	RapSanityEnded struct{ RapStep }
	// RapProcessStarted recording step
	RapProcessStarted struct{ RapStep }
	// RapProcessEnded recording step
	RapProcessEnded struct{ RapStep }
	// RapPublishStarted recording step
	RapPublishStarted struct{ RapStep }
	// RapPostPublishStarted recording step
	RapPostPublishStarted struct{ RapStep }
	// RapPostPublishEnded recording step
	RapPostPublishEnded struct{ RapStep }

	// PlaybackData of a published recording format
	PlaybackData struct {
		Format         string
		Link           string
		ProcessingTime int64
		Duration       int64
		Size           int64
		Extensions     map[string]any
	}

	// RecordingData carried by rap-publish-ended
	RecordingData struct {
		Name       string
		IsBreakout bool
		StartTime  int64
		EndTime    int64
		Size       int64
		RawSize    int64
		Metadata   map[string]any
		Playback   PlaybackData
		Download   map[string]any
	}

	// RapPublishEnded recording step, carries the full recording snapshot
	RapPublishEnded struct {
		RapStep
		Recording RecordingData
	}

	// RapPublished - recording became visible
	RapPublished struct{ RapRef }
	// RapUnpublished - recording was hidden
	RapUnpublished struct{ RapRef }
	// RapDeleted - recording was removed
	RapDeleted struct{ RapRef }
)
