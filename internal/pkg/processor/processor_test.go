package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/aggregator"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/test/mocks"
)

var (
	storeMock *mocks.Store
	proc      *Processor
)

// testSessions runs the handler func against the mocked store with no
// real transaction
type testSessions struct{ st Store }

func (s *testSessions) RunInTx(ctx context.Context, f func(ctx context.Context, st Store) error) error {
	return f(ctx, s.st)
}

func initTest(t *testing.T) {
	t.Helper()
	storeMock = &mocks.Store{}
	var err error
	proc, err = NewProcessor(&testSessions{st: storeMock})
	require.Nil(t, err)
}

func callArg[T any](t *testing.T, method string, idx int) T {
	t.Helper()
	for _, c := range storeMock.Calls {
		if c.Method == method {
			return c.Arguments[idx].(T)
		}
	}
	t.Fatalf("no call to %s", method)
	var res T
	return res
}

func Test_NewProcessor_Fails(t *testing.T) {
	_, err := NewProcessor(nil)
	require.NotNil(t, err)
}

func Test_Handle_WrapsAsCallbackError(t *testing.T) {
	initTest(t)
	storeMock.On("MeetingByInternalID", mock.Anything, mock.Anything).Return(nil, nil)
	storeMock.On("MeetingEventByInternalID", mock.Anything, mock.Anything).Return(nil, nil)
	err := proc.Handle(&event.UserJoined{Base: event.Base{EventType: event.TypeUserJoined},
		MeetingRef:     event.MeetingRef{InternalMeetingID: "int-1"},
		InternalUserID: "u-1"})
	require.NotNil(t, err)
	var cbErr *aggregator.CallbackError
	require.ErrorAs(t, err, &cbErr)
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
}
