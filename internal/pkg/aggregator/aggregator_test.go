package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
)

type mockSub struct{ mock.Mock }

func (m *mockSub) Setup() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockSub) Handle(ev event.Event) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *mockSub) Teardown() error {
	args := m.Called()
	return args.Error(0)
}

func newMockSub() *mockSub {
	res := &mockSub{}
	res.On("Setup").Return(nil)
	res.On("Handle", mock.Anything).Return(nil)
	res.On("Teardown").Return(nil)
	return res
}

func testEvent(id string) event.Event {
	return &event.MeetingEnded{Base: event.Base{EventType: event.TypeMeetingEnded},
		MeetingRef: event.MeetingRef{InternalMeetingID: id}}
}

func Test_Publish_NotRunning(t *testing.T) {
	a := New(0)
	err := a.Publish(testEvent("1"), "ch")
	assert.Equal(t, ErrNotRunning, err)
}

func Test_Publish_AfterStop(t *testing.T) {
	a := New(0)
	sub := newMockSub()
	require.Nil(t, a.Register(sub, "ch"))
	a.Setup()
	a.Start()
	a.Stop()
	err := a.Publish(testEvent("1"), "ch")
	assert.Equal(t, ErrNotRunning, err)
}

func Test_Register_AfterStart(t *testing.T) {
	a := New(0)
	require.Nil(t, a.Register(newMockSub(), "ch"))
	a.Start()
	defer a.Stop()
	err := a.Register(newMockSub(), "ch")
	assert.Equal(t, ErrRunning, err)
}

func Test_Publish_NoSubscribers(t *testing.T) {
	a := New(0)
	require.Nil(t, a.Register(newMockSub(), "ch"))
	a.Start()
	defer a.Stop()
	err := a.Publish(testEvent("1"), "other")
	var pErr *PublishError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "other", pErr.Channel)
}

func Test_FanOut(t *testing.T) {
	a := New(0)
	sub1, sub2 := newMockSub(), newMockSub()
	require.Nil(t, a.Register(sub1, "ch"))
	require.Nil(t, a.Register(sub2, "ch"))
	a.Setup()
	a.Start()
	require.Nil(t, a.Publish(testEvent("1"), "ch"))
	require.Nil(t, a.Publish(testEvent("2"), "ch"))
	a.Stop()
	sub1.AssertNumberOfCalls(t, "Handle", 2)
	sub2.AssertNumberOfCalls(t, "Handle", 2)
	sub1.AssertCalled(t, "Teardown")
	sub2.AssertCalled(t, "Teardown")
}

func Test_Setup_RemovesFailing(t *testing.T) {
	a := New(0)
	bad := &mockSub{}
	bad.On("Setup").Return(fmt.Errorf("setup err"))
	good := newMockSub()
	require.Nil(t, a.Register(bad, "ch"))
	require.Nil(t, a.Register(good, "ch"))
	a.Setup()
	a.Start()
	require.Nil(t, a.Publish(testEvent("1"), "ch"))
	a.Stop()
	good.AssertNumberOfCalls(t, "Handle", 1)
	bad.AssertNotCalled(t, "Handle", mock.Anything)
}

func Test_CallbackError_KeepsWorker(t *testing.T) {
	a := New(0)
	sub := &mockSub{}
	sub.On("Setup").Return(nil)
	sub.On("Teardown").Return(nil)
	sub.On("Handle", mock.Anything).Return(NewCallbackError(fmt.Errorf("handle err"))).Once()
	sub.On("Handle", mock.Anything).Return(nil)
	require.Nil(t, a.Register(sub, "ch"))
	a.Setup()
	a.Start()
	require.Nil(t, a.Publish(testEvent("1"), "ch"))
	require.Nil(t, a.Publish(testEvent("2"), "ch"))
	a.Stop()
	sub.AssertNumberOfCalls(t, "Handle", 2)
}

func Test_Panic_KeepsWorker(t *testing.T) {
	a := New(0)
	sub := &mockSub{}
	sub.On("Setup").Return(nil)
	sub.On("Teardown").Return(nil)
	sub.On("Handle", mock.Anything).Run(func(args mock.Arguments) { panic("boom") }).Return(nil).Once()
	sub.On("Handle", mock.Anything).Return(nil)
	require.Nil(t, a.Register(sub, "ch"))
	a.Setup()
	a.Start()
	require.Nil(t, a.Publish(testEvent("1"), "ch"))
	require.Nil(t, a.Publish(testEvent("2"), "ch"))
	a.Stop()
	sub.AssertNumberOfCalls(t, "Handle", 2)
}

func Test_Stop_Idempotent(t *testing.T) {
	a := New(0)
	sub := newMockSub()
	require.Nil(t, a.Register(sub, "ch"))
	a.Setup()
	a.Start()
	a.Stop()
	a.Stop()
	sub.AssertNumberOfCalls(t, "Teardown", 1)
}

func Test_Order_PerSubscriber(t *testing.T) {
	a := New(0)
	var got []string
	done := make(chan struct{})
	sub := &mockSub{}
	sub.On("Setup").Return(nil)
	sub.On("Teardown").Return(nil)
	sub.On("Handle", mock.Anything).Run(func(args mock.Arguments) {
		ev := args.Get(0).(event.Event)
		ms := ev.(interface{ Meeting() event.MeetingRef })
		got = append(got, ms.Meeting().InternalMeetingID)
		if len(got) == 3 {
			close(done)
		}
	}).Return(nil)
	require.Nil(t, a.Register(sub, "ch"))
	a.Setup()
	a.Start()
	for i := 0; i < 3; i++ {
		require.Nil(t, a.Publish(testEvent(fmt.Sprintf("%d", i)), "ch"))
	}
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("timeout waiting for deliveries")
	}
	a.Stop()
	assert.Equal(t, []string{"0", "1", "2"}, got)
}
