package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/provider"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusHook struct {
	events.NoopHook
	wg       *sync.WaitGroup
	mu       sync.Mutex
	statuses []events.StatusChanged
}

func (s *statusHook) OnStatus(_ context.Context, status events.StatusChanged) {
	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()
	s.wg.Done()
}

func TestNATSTopic_Subject(t *testing.T) {
	nc := connectNATS(t)
	top := NATS(nc).Topic(context.Background(), "abc").(*natsTopic)
	assert.Equal(t, SubjectPrefix+"abc", top.subject)
}

func TestNATSTopic_RoundTripsStatus(t *testing.T) {
	nc := connectNATS(t)
	topic := NATS(nc).Topic(context.Background(), "status")

	var wg sync.WaitGroup
	wg.Add(1)
	hook := &statusHook{wg: &wg}
	sub, err := topic.Subscribe(context.Background(), hook)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	err = topic.Publish(context.Background(), events.StatusChanged{
		Status: "success",
		Result: &provider.ConnectionResult{
			Success:  true,
			Message:  "OK",
			Provider: "OpenAI GPT-4",
		},
		Timestamp: strfmt.DateTime(time.Now()),
	})
	require.NoError(t, err)
	waitFor(t, &wg)

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.statuses, 1)
	assert.Equal(t, "success", hook.statuses[0].Status)
	require.NotNil(t, hook.statuses[0].Result)
	assert.Equal(t, "OpenAI GPT-4", hook.statuses[0].Result.Provider)
}

func TestNATSTopic_IgnoresInvalidMessage(t *testing.T) {
	nc := connectNATS(t)
	topic := NATS(nc).Topic(context.Background(), "invalid")

	recorder := newRecordingHook()
	sub, err := topic.Subscribe(context.Background(), recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	recorder.signalReady()

	require.NoError(t, nc.Publish(SubjectPrefix+"invalid", []byte("invalid json")))
	require.NoError(t, nc.Flush())
	time.Sleep(100 * time.Millisecond)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Empty(t, recorder.messages)
	assert.Empty(t, recorder.chunks)
}
