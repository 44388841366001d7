package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var res map[string]any
	require.Nil(t, json.Unmarshal([]byte(s), &res))
	return res
}

func Test_MapRaw_NoID(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: `{}`},
		{name: "no data", data: `{"other": {"id": "meeting-created"}}`},
		{name: "empty id", data: `{"data": {"id": ""}}`},
		{name: "non string id", data: `{"data": {"id": 10}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapRaw(toMap(t, tt.data), "srv")
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func Test_MapRaw_Unknown(t *testing.T) {
	_, err := MapRaw(toMap(t, `{"data": {"id": "meeting-exploded"}}`), "srv")
	var uErr *UnknownEventError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "meeting-exploded", uErr.EventType)
}

func Test_MapRaw_MeetingCreated(t *testing.T) {
	data := toMap(t, `{"data": {"id": "meeting-created", "event": {"ts": 1653347200},
		"attributes": {"meeting": {
			"internal-meeting-id": "int-1", "external-meeting-id": "ext-1",
			"name": "Demo room", "create-time": 1653347100, "create-date": "Tue May 24",
			"voice-bridge": "70834", "dial-number": "613-555-1234",
			"viewer-pass": "ap", "moderator-pass": "mp",
			"duration": 20, "record": true, "max-users": 30, "is-breakout": false,
			"metadata": {"mconf-institution-guid": "inst-guid"}}}}}`)
	ev, err := MapRaw(data, "srv.example.com")
	require.Nil(t, err)
	mc, ok := ev.(*MeetingCreated)
	require.True(t, ok)
	assert.Equal(t, TypeMeetingCreated, mc.Type())
	assert.Equal(t, "srv.example.com", mc.Server())
	assert.Equal(t, int64(1653347200), mc.Timestamp)
	assert.Equal(t, "int-1", mc.InternalMeetingID)
	assert.Equal(t, "ext-1", mc.ExternalMeetingID)
	assert.Equal(t, "Demo room", mc.Name)
	assert.Equal(t, int64(1653347100), mc.CreateTime)
	assert.Equal(t, "Tue May 24", mc.CreateDate)
	assert.Equal(t, "70834", mc.VoiceBridge)
	assert.Equal(t, "613-555-1234", mc.DialNumber)
	assert.Equal(t, "ap", mc.AttendeePW)
	assert.Equal(t, "mp", mc.ModeratorPW)
	assert.Equal(t, 20, mc.Duration)
	assert.True(t, mc.Recording)
	assert.Equal(t, 30, mc.MaxUsers)
	assert.False(t, mc.IsBreakout)
	assert.Equal(t, "inst-guid", mc.Metadata["mconf-institution-guid"])
}

func Test_MapRaw_MeetingEnded(t *testing.T) {
	data := toMap(t, `{"data": {"id": "meeting-ended", "event": {"ts": 1653348000},
		"attributes": {"meeting": {"internal-meeting-id": "int-1", "external-meeting-id": "ext-1",
			"end-time": 1653347990}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	me, ok := ev.(*MeetingEnded)
	require.True(t, ok)
	assert.Equal(t, "int-1", me.InternalMeetingID)
	assert.Equal(t, int64(1653347990), me.EndTime)
}

func Test_MapRaw_MeetingEnded_NoEndTime(t *testing.T) {
	data := toMap(t, `{"data": {"id": "meeting-ended", "event": {"ts": 1653348000},
		"attributes": {"meeting": {"internal-meeting-id": "int-1"}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	me, ok := ev.(*MeetingEnded)
	require.True(t, ok)
	assert.Equal(t, int64(1653348000), me.EndTime)
}

func Test_MapRaw_UserJoined(t *testing.T) {
	data := toMap(t, `{"data": {"id": "user-joined", "event": {"ts": 1653347300},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1", "external-meeting-id": "ext-1"},
			"user": {"internal-user-id": "u-1", "external-user-id": "eu-1",
				"name": "Jo", "role": "MODERATOR", "presenter": true,
				"listening-only": false, "sharing-mic": true, "stream": false,
				"transfer": false, "userdata": {"lang": "en"}}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	uj, ok := ev.(*UserJoined)
	require.True(t, ok)
	assert.Equal(t, "int-1", uj.InternalMeetingID)
	assert.Equal(t, "u-1", uj.InternalUserID)
	assert.Equal(t, "eu-1", uj.ExternalUserID)
	assert.Equal(t, "Jo", uj.Name)
	assert.Equal(t, "MODERATOR", uj.Role)
	assert.True(t, uj.IsPresenter)
	assert.True(t, uj.HasJoinedVoice)
	assert.False(t, uj.HasVideo)
	assert.False(t, uj.IsTransfer)
	assert.Equal(t, int64(1653347300), uj.JoinTime)
	assert.Equal(t, "en", uj.UserData["lang"])
}

func Test_MapRaw_UserLeft(t *testing.T) {
	data := toMap(t, `{"data": {"id": "user-left", "event": {"ts": 1653347900},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1"},
			"user": {"internal-user-id": "u-1"}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	ul, ok := ev.(*UserLeft)
	require.True(t, ok)
	assert.Equal(t, "u-1", ul.InternalUserID)
	assert.Equal(t, int64(1653347900), ul.LeaveTime)
}

func Test_MapRaw_UserVoiceEnabled(t *testing.T) {
	data := toMap(t, `{"data": {"id": "user-audio-voice-enabled", "event": {"ts": 1},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1"},
			"user": {"internal-user-id": "u-1", "sharing-mic": true, "listening-only": false}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	uv, ok := ev.(*UserVoiceEnabled)
	require.True(t, ok)
	assert.True(t, uv.HasJoinedVoice)
	assert.False(t, uv.IsListeningOnly)
	assert.Equal(t, "u-1", uv.InternalUserID)
}

func Test_MapRaw_UserAttributeEvents(t *testing.T) {
	tests := []struct {
		id   string
		want any
	}{
		{id: TypeUserVoiceDisabled, want: &UserVoiceDisabled{}},
		{id: TypeUserListenOnlyEnabled, want: &UserListenOnlyEnabled{}},
		{id: TypeUserListenOnlyDisabled, want: &UserListenOnlyDisabled{}},
		{id: TypeUserCamBroadcastStart, want: &UserCamBroadcastStart{}},
		{id: TypeUserCamBroadcastEnd, want: &UserCamBroadcastEnd{}},
		{id: TypeUserPresenterAssigned, want: &UserPresenterAssigned{}},
		{id: TypeUserPresenterUnassigned, want: &UserPresenterUnassigned{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			data := toMap(t, `{"data": {"id": "`+tt.id+`", "event": {"ts": 1},
				"attributes": {
					"meeting": {"internal-meeting-id": "int-1"},
					"user": {"internal-user-id": "u-1"}}}}`)
			ev, err := MapRaw(data, "srv")
			require.Nil(t, err)
			assert.IsType(t, tt.want, ev)
			assert.Equal(t, tt.id, ev.Type())
		})
	}
}

func Test_MapRaw_TransferToggle(t *testing.T) {
	data := toMap(t, `{"data": {"id": "meeting-transfer-enabled", "event": {"ts": 1},
		"attributes": {"meeting": {"internal-meeting-id": "int-1"}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	assert.IsType(t, &MeetingTransferEnabled{}, ev)

	data = toMap(t, `{"data": {"id": "meeting-transfer-disabled", "event": {"ts": 1},
		"attributes": {"meeting": {"internal-meeting-id": "int-1"}}}}`)
	ev, err = MapRaw(data, "srv")
	require.Nil(t, err)
	assert.IsType(t, &MeetingTransferDisabled{}, ev)
}

func Test_MapRaw_RapStep(t *testing.T) {
	data := toMap(t, `{"data": {"id": "rap-process-started", "event": {"ts": 5},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1", "external-meeting-id": "ext-1"},
			"record-id": "rec-1", "workflow": "video", "success": true, "step-time": 850}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	rs, ok := ev.(*RapProcessStarted)
	require.True(t, ok)
	assert.Equal(t, "rec-1", rs.RecordID)
	assert.Equal(t, "video", rs.Workflow)
	assert.True(t, rs.Success)
	assert.Equal(t, int64(850), rs.StepTime)
}

func Test_MapRaw_RapDefaultWorkflow(t *testing.T) {
	data := toMap(t, `{"data": {"id": "rap-publish-started", "event": {"ts": 5},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1"}, "record-id": "rec-1"}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	rs, ok := ev.(*RapPublishStarted)
	require.True(t, ok)
	assert.Equal(t, "presentation", rs.Workflow)
}

func Test_MapRaw_RapPublishEnded(t *testing.T) {
	data := toMap(t, `{"data": {"id": "rap-publish-ended", "event": {"ts": 5},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1", "external-meeting-id": "ext-1"},
			"record-id": "rec-1", "workflow": "presentation", "success": true,
			"recording": {
				"name": "Demo room", "is-breakout": false,
				"start-time": 1653347100, "end-time": 1653348000,
				"size": 1048576, "raw-size": 4096000,
				"metadata": {"isBreakout": "false"},
				"playback": {"format": "presentation",
					"link": "https://srv/playback/rec-1",
					"processing_time": 5429, "duration": 785000, "size": 840000,
					"extensions": {"preview": {}}},
				"download": {"format": "mp4"}}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	pe, ok := ev.(*RapPublishEnded)
	require.True(t, ok)
	assert.Equal(t, "Demo room", pe.Recording.Name)
	assert.Equal(t, int64(1653347100), pe.Recording.StartTime)
	assert.Equal(t, int64(1048576), pe.Recording.Size)
	assert.Equal(t, int64(4096000), pe.Recording.RawSize)
	assert.Equal(t, "false", pe.Recording.Metadata["isBreakout"])
	assert.Equal(t, "presentation", pe.Recording.Playback.Format)
	assert.Equal(t, "https://srv/playback/rec-1", pe.Recording.Playback.Link)
	assert.Equal(t, int64(785000), pe.Recording.Playback.Duration)
	assert.NotNil(t, pe.Recording.Download)
}

func Test_MapRaw_RapLifecycleIDs(t *testing.T) {
	ids := []string{TypeRapArchiveStarted, TypeRapArchiveEnded, TypeRapSanityStarted,
		TypeRapSanityEnded, TypeRapProcessEnded, TypeRapPostPublishStarted,
		TypeRapPostPublishEnded, TypeRapPublished, TypeRapUnpublished, TypeRapDeleted}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			data := toMap(t, `{"data": {"id": "`+id+`", "event": {"ts": 5},
				"attributes": {"meeting": {"internal-meeting-id": "int-1"}, "record-id": "rec-1"}}}`)
			ev, err := MapRaw(data, "srv")
			require.Nil(t, err)
			assert.Equal(t, id, ev.Type())
		})
	}
}

func Test_MapRaw_BoolFromString(t *testing.T) {
	data := toMap(t, `{"data": {"id": "user-joined", "event": {"ts": 1},
		"attributes": {
			"meeting": {"internal-meeting-id": "int-1"},
			"user": {"internal-user-id": "u-1", "sharing-mic": "true", "presenter": "false"}}}}`)
	ev, err := MapRaw(data, "srv")
	require.Nil(t, err)
	uj, ok := ev.(*UserJoined)
	require.True(t, ok)
	assert.True(t, uj.HasJoinedVoice)
	assert.False(t, uj.IsPresenter)
}
