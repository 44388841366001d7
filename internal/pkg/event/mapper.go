package event

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage indicates a raw payload without a usable event id
var ErrInvalidMessage = errors.New("webhook message carries no event id")

// UnknownEventError indicates a well-formed payload with an unrecognized
// event id. Callers must drop the single event and continue
type UnknownEventError struct {
	EventType string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown webhook event '%s'", e.EventType)
}

// MapRaw normalizes one decoded webhook payload into a typed event.
// The event id is expected at data.id, the payload under data.attributes,
// the timestamp at data.event.ts
func MapRaw(data map[string]any, server string) (Event, error) {
	r := raw(data)
	v, ok := r.val("data", "id")
	if !ok {
		return nil, ErrInvalidMessage
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return nil, ErrInvalidMessage
	}
	base := Base{EventType: id, ServerURL: server, Timestamp: r.i64("data", "event", "ts")}
	attrs := r.sub("data", "attributes")

	switch id {
	case TypeMeetingCreated:
		return mapMeetingCreated(base, attrs), nil
	case TypeMeetingEnded:
		return &MeetingEnded{Base: base, MeetingRef: meetingRef(attrs), EndTime: endTime(base, attrs)}, nil
	case TypeUserJoined:
		return mapUserJoined(base, attrs), nil
	case TypeUserLeft:
		return &UserLeft{Base: base, MeetingRef: meetingRef(attrs),
			InternalUserID: attrs.str("user", "internal-user-id"), LeaveTime: base.Timestamp}, nil
	case TypeUserVoiceEnabled:
		return &UserVoiceEnabled{UserRef: userRef(base, attrs),
			HasJoinedVoice:  attrs.boolv("user", "sharing-mic"),
			IsListeningOnly: attrs.boolv("user", "listening-only")}, nil
	case TypeUserVoiceDisabled:
		return &UserVoiceDisabled{UserRef: userRef(base, attrs)}, nil
	case TypeUserListenOnlyEnabled:
		return &UserListenOnlyEnabled{UserRef: userRef(base, attrs)}, nil
	case TypeUserListenOnlyDisabled:
		return &UserListenOnlyDisabled{UserRef: userRef(base, attrs)}, nil
	case TypeUserCamBroadcastStart:
		return &UserCamBroadcastStart{UserRef: userRef(base, attrs)}, nil
	case TypeUserCamBroadcastEnd:
		return &UserCamBroadcastEnd{UserRef: userRef(base, attrs)}, nil
	case TypeUserPresenterAssigned:
		return &UserPresenterAssigned{UserRef: userRef(base, attrs)}, nil
	case TypeUserPresenterUnassigned:
		return &UserPresenterUnassigned{UserRef: userRef(base, attrs)}, nil
	case TypeMeetingTransferEnabled:
		return &MeetingTransferEnabled{Base: base, MeetingRef: meetingRef(attrs)}, nil
	case TypeMeetingTransferDisabled:
		return &MeetingTransferDisabled{Base: base, MeetingRef: meetingRef(attrs)}, nil
	case TypeRapArchiveStarted:
		return &RapArchiveStarted{RapStep: rapStep(base, attrs)}, nil
	case TypeRapArchiveEnded:
		return &RapArchiveEnded{RapStep: rapStep(base, attrs)}, nil
	case TypeRapSanityStarted:
		return &RapSanityStarted{RapStep: rapStep(base, attrs)}, nil
	case TypeRapSanityEnded:
		return &RapSanityEnded{RapStep: rapStep(base, attrs)}, nil
	case TypeRapProcessStarted:
		return &RapProcessStarted{RapStep: rapStep(base, attrs)}, nil
	case TypeRapProcessEnded:
		return &RapProcessEnded{RapStep: rapStep(base, attrs)}, nil
	case TypeRapPublishStarted:
		return &RapPublishStarted{RapStep: rapStep(base, attrs)}, nil
	case TypeRapPublishEnded:
		return &RapPublishEnded{RapStep: rapStep(base, attrs), Recording: recordingData(attrs)}, nil
	case TypeRapPostPublishStarted:
		return &RapPostPublishStarted{RapStep: rapStep(base, attrs)}, nil
	case TypeRapPostPublishEnded:
		return &RapPostPublishEnded{RapStep: rapStep(base, attrs)}, nil
	case TypeRapPublished:
		return &RapPublished{RapRef: rapRef(base, attrs)}, nil
	case TypeRapUnpublished:
		return &RapUnpublished{RapRef: rapRef(base, attrs)}, nil
	case TypeRapDeleted:
		return &RapDeleted{RapRef: rapRef(base, attrs)}, nil
	}
	return nil, &UnknownEventError{EventType: id}
}

// endTime prefers the explicit meeting end time, older servers send
// only the event timestamp
func endTime(base Base, attrs raw) int64 {
	if v := attrs.i64("meeting", "end-time"); v != 0 {
		return v
	}
	return base.Timestamp
}

func meetingRef(attrs raw) MeetingRef {
	return MeetingRef{
		InternalMeetingID: attrs.str("meeting", "internal-meeting-id"),
		ExternalMeetingID: attrs.str("meeting", "external-meeting-id"),
	}
}

func userRef(base Base, attrs raw) UserRef {
	return UserRef{Base: base, MeetingRef: meetingRef(attrs),
		InternalUserID: attrs.str("user", "internal-user-id")}
}

func rapRef(base Base, attrs raw) RapRef {
	wf := attrs.str("workflow")
	if wf == "" {
		wf = "presentation"
	}
	return RapRef{Base: base, MeetingRef: meetingRef(attrs),
		RecordID: attrs.str("record-id"), Workflow: wf}
}

func rapStep(base Base, attrs raw) RapStep {
	return RapStep{RapRef: rapRef(base, attrs),
		Success: attrs.boolv("success"), StepTime: attrs.i64("step-time")}
}

func mapMeetingCreated(base Base, attrs raw) *MeetingCreated {
	return &MeetingCreated{
		Base:        base,
		MeetingRef:  meetingRef(attrs),
		Name:        attrs.str("meeting", "name"),
		CreateTime:  attrs.i64("meeting", "create-time"),
		CreateDate:  attrs.str("meeting", "create-date"),
		VoiceBridge: attrs.str("meeting", "voice-bridge"),
		DialNumber:  attrs.str("meeting", "dial-number"),
		AttendeePW:  attrs.str("meeting", "viewer-pass"),
		ModeratorPW: attrs.str("meeting", "moderator-pass"),
		Duration:    attrs.intv("meeting", "duration"),
		Recording:   attrs.boolv("meeting", "record"),
		MaxUsers:    attrs.intv("meeting", "max-users"),
		IsBreakout:  attrs.boolv("meeting", "is-breakout"),
		Metadata:    attrs.mapv("meeting", "metadata"),
	}
}

func mapUserJoined(base Base, attrs raw) *UserJoined {
	return &UserJoined{
		Base:            base,
		MeetingRef:      meetingRef(attrs),
		InternalUserID:  attrs.str("user", "internal-user-id"),
		ExternalUserID:  attrs.str("user", "external-user-id"),
		Name:            attrs.str("user", "name"),
		Role:            attrs.str("user", "role"),
		IsPresenter:     attrs.boolv("user", "presenter"),
		IsListeningOnly: attrs.boolv("user", "listening-only"),
		HasJoinedVoice:  attrs.boolv("user", "sharing-mic"),
		HasVideo:        attrs.boolv("user", "stream"),
		IsTransfer:      attrs.boolv("user", "transfer"),
		JoinTime:        base.Timestamp,
		UserData:        attrs.mapv("user", "userdata"),
	}
}

func recordingData(attrs raw) RecordingData {
	rec := attrs.sub("recording")
	return RecordingData{
		Name:       rec.str("name"),
		IsBreakout: rec.boolv("is-breakout"),
		StartTime:  rec.i64("start-time"),
		EndTime:    rec.i64("end-time"),
		Size:       rec.i64("size"),
		RawSize:    rec.i64("raw-size"),
		Metadata:   rec.mapv("metadata"),
		Download:   rec.mapv("download"),
		Playback: PlaybackData{
			Format:         rec.str("playback", "format"),
			Link:           rec.str("playback", "link"),
			ProcessingTime: rec.i64("playback", "processing_time"),
			Duration:       rec.i64("playback", "duration"),
			Size:           rec.i64("playback", "size"),
			Extensions:     rec.mapv("playback", "extensions"),
		},
	}
}
