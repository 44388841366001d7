package consumer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/messages"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/test"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/test/mocks"
)

var (
	pubMock *mocks.Publisher
	srvData *ServiceData
)

func initTest(t *testing.T) {
	t.Helper()
	pubMock = &mocks.Publisher{}
	srvData = &ServiceData{GueClient: &gue.Client{}, WorkerCount: 5, Publisher: pubMock}
}

func Test_handleBatch(t *testing.T) {
	initTest(t)
	pubMock.On("Publish", mock.Anything, messages.ChannelWebhooks).Return(nil)
	batch := &messages.RawBatch{Server: "srv", Events: []map[string]any{
		{"data": map[string]any{"id": "meeting-ended",
			"attributes": map[string]any{"meeting": map[string]any{"internal-meeting-id": "int-1"}}}},
	}}
	require.Nil(t, handleBatch(test.Ctx(t), batch, srvData))
	pubMock.AssertNumberOfCalls(t, "Publish", 1)
	ev := pubMock.Calls[0].Arguments[0].(event.Event)
	assert.Equal(t, event.TypeMeetingEnded, ev.Type())
	assert.Equal(t, "srv", ev.Server())
}

func Test_handleBatch_DropsBadEvent(t *testing.T) {
	initTest(t)
	pubMock.On("Publish", mock.Anything, mock.Anything).Return(nil)
	batch := &messages.RawBatch{Server: "srv", Events: []map[string]any{
		{"data": map[string]any{"id": "meeting-exploded"}},
		{"data": map[string]any{"id": "meeting-ended",
			"attributes": map[string]any{"meeting": map[string]any{"internal-meeting-id": "int-1"}}}},
	}}
	require.Nil(t, handleBatch(test.Ctx(t), batch, srvData))
	pubMock.AssertNumberOfCalls(t, "Publish", 1)
}

func Test_handleBatch_PublishFailureContinues(t *testing.T) {
	initTest(t)
	pubMock.On("Publish", mock.Anything, mock.Anything).Return(fmt.Errorf("full"))
	batch := &messages.RawBatch{Server: "srv", Events: []map[string]any{
		{"data": map[string]any{"id": "meeting-ended",
			"attributes": map[string]any{"meeting": map[string]any{"internal-meeting-id": "int-1"}}}},
	}}
	require.Nil(t, handleBatch(test.Ctx(t), batch, srvData))
}

func Test_createHandler_AcksBadJSON(t *testing.T) {
	initTest(t)
	h := createHandler(srvData, handleBatch)
	err := h(test.Ctx(t), &gue.Job{Queue: messages.RawEvents, Args: []byte("not a json")})
	assert.Nil(t, err)
	pubMock.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func Test_createHandler_AcksOnProcessingError(t *testing.T) {
	initTest(t)
	h := createHandler(srvData, func(_ context.Context, _ *messages.RawBatch, _ *ServiceData) error {
		return fmt.Errorf("processing err")
	})
	err := h(test.Ctx(t), &gue.Job{Queue: messages.RawEvents, Args: []byte(`{"server": "srv", "events": []}`)})
	assert.Nil(t, err)
}

func Test_validate(t *testing.T) {
	tests := []struct {
		name    string
		data    *ServiceData
		wantErr bool
	}{
		{name: "OK", data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 5, Publisher: &mocks.Publisher{}}, wantErr: false},
		{name: "Fail GueClient", data: &ServiceData{WorkerCount: 5, Publisher: &mocks.Publisher{}}, wantErr: true},
		{name: "Fail WorkerCount", data: &ServiceData{GueClient: &gue.Client{}, Publisher: &mocks.Publisher{}}, wantErr: true},
		{name: "Fail Publisher", data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.data)
			if tt.wantErr {
				require.NotNil(t, err)
			} else {
				require.Nil(t, err)
			}
		})
	}
}
