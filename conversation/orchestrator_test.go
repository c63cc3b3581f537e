package conversation

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/gateway"
	"github.com/casualjim/codelens/internal/broker"
	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/provider"
	"github.com/casualjim/codelens/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	kind      provider.Kind
	response  string
	chunks    []string
	err       error
	streamErr error
	// block holds Complete and Stream until it is closed
	block chan struct{}
	// onChunk runs before the i-th chunk is yielded
	onChunk func(i int)

	completeCalls atomic.Int32
	streamCalls   atomic.Int32
	lastRequest   atomic.Pointer[provider.Request]
}

func (f *fakeProvider) Kind() provider.Kind {
	return f.kind
}

func (f *fakeProvider) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (string, error) {
	f.completeCalls.Add(1)
	f.lastRequest.Store(&req)
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req provider.Request) iter.Seq2[string, error] {
	f.streamCalls.Add(1)
	f.lastRequest.Store(&req)
	return func(yield func(string, error) bool) {
		if err := f.wait(ctx); err != nil {
			yield("", err)
			return
		}
		if f.err != nil {
			yield("", f.err)
			return
		}
		for i, c := range f.chunks {
			if f.onChunk != nil {
				f.onChunk(i)
			}
			if !yield(c, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}
}

func (f *fakeProvider) calls() int {
	return int(f.completeCalls.Load() + f.streamCalls.Load())
}

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newGateway(fake *fakeProvider) *gateway.Gateway {
	factory := func(cfg provider.Config) (provider.Provider, error) {
		fake.kind = cfg.Kind
		return fake, nil
	}
	return gateway.New(
		gateway.WithFactory(provider.KindOpenAI, factory),
		gateway.WithFactory(provider.KindGemini, factory),
	)
}

func newOrchestrator(t *testing.T, fake *fakeProvider, st store.Store, options ...Option) (*Orchestrator, *gateway.Gateway) {
	t.Helper()
	gw := newGateway(fake)
	options = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithConnectionCheckDelay(time.Duration(0)),
	}, options...)
	return New(gw, st, options...), gw
}

// readyOrchestrator skips Configure so the conversation starts empty.
func readyOrchestrator(t *testing.T, fake *fakeProvider, st store.Store, options ...Option) *Orchestrator {
	t.Helper()
	o, gw := newOrchestrator(t, fake, st, options...)
	require.True(t, gw.Initialize(provider.Config{Kind: provider.KindOpenAI, Credential: "valid-key-1"}))
	return o
}

func TestSubmit(t *testing.T) {
	fake := &fakeProvider{response: "This prints 1."}
	o := readyOrchestrator(t, fake, store.NewMemory())
	require.True(t, o.IsConfigured())

	require.NoError(t, o.Submit(context.Background(), "print(1)", "python"))

	msgs := o.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, messages.SenderUser, msgs[0].Sender)
	assert.Equal(t, "print(1)", msgs[0].Code)
	assert.Equal(t, "python", msgs[0].Language)
	assert.Equal(t, messages.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, "This prints 1.", msgs[1].Content)
	assert.Equal(t, "print(1)", msgs[1].Code)
	assert.Equal(t, provider.KindOpenAI, msgs[1].Provider)
	assert.Less(t, msgs[0].ID, msgs[1].ID)

	assert.NotEmpty(t, o.ConversationID())
	assert.False(t, o.Busy())
	assert.Equal(t, 1, fake.calls())

	req := fake.lastRequest.Load()
	require.NotNil(t, req)
	assert.Contains(t, req.Prompt, "```python\nprint(1)\n```")
}

func TestSubmit_DefaultLanguage(t *testing.T) {
	fake := &fakeProvider{response: "ok"}
	o := readyOrchestrator(t, fake, store.NewMemory())

	require.NoError(t, o.Submit(context.Background(), "console.log(1)", ""))
	assert.Equal(t, provider.DefaultLanguage, o.Messages()[0].Language)
}

func TestSubmit_NotConfigured(t *testing.T) {
	fake := &fakeProvider{response: "unused"}
	o, _ := newOrchestrator(t, fake, store.NewMemory())

	assert.False(t, o.Configure(context.Background(), provider.KindOpenAI, ""))
	before := o.Messages()

	err := o.Submit(context.Background(), "print(1)", "python")
	assert.ErrorIs(t, err, ErrConfigurationRequired)
	err = o.SubmitStreaming(context.Background(), "print(1)", "python")
	assert.ErrorIs(t, err, ErrConfigurationRequired)
	_, err = o.Insights(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationRequired)

	assert.Equal(t, before, o.Messages())
	assert.Zero(t, fake.calls())
	assert.False(t, o.Busy())
}

func TestSubmit_Failure(t *testing.T) {
	fake := &fakeProvider{err: errors.New("boom")}
	o := readyOrchestrator(t, fake, store.NewMemory())

	err := o.Submit(context.Background(), "print(1)", "python")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)

	msgs := o.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, messages.SenderSystem, msgs[1].Sender)
	assert.Equal(t, messages.TypeError, msgs[1].Type)
	assert.Equal(t, "❌ **Error**: boom\n\nPlease check your API key configuration or try again.", msgs[1].Content)
	assert.False(t, o.Busy())
}

func TestSubmit_FailureDescribesKind(t *testing.T) {
	fake := &fakeProvider{err: provider.NewError(provider.KindOpenAI, provider.ErrRateLimited, errors.New("429"))}
	o := readyOrchestrator(t, fake, store.NewMemory())

	err := o.Submit(context.Background(), "x", "go")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
	last := o.Messages()[1]
	assert.Contains(t, last.Content, "Rate limit or quota exceeded")
}

func TestSubmitStreaming(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"Hello", " ", "world"}}
	o := readyOrchestrator(t, fake, store.NewMemory())

	require.NoError(t, o.SubmitStreaming(context.Background(), "print(1)", "python"))

	msgs := o.Messages()
	require.Len(t, msgs, 2)
	placeholder := msgs[1]
	assert.Equal(t, messages.SenderAssistant, placeholder.Sender)
	assert.Equal(t, "Hello world", placeholder.Content)
	assert.False(t, placeholder.Streaming)
	assert.Equal(t, "print(1)", placeholder.Code)
	assert.Equal(t, 1, int(fake.streamCalls.Load()))
	assert.False(t, o.Busy())
}

func TestSubmitStreaming_Concatenates(t *testing.T) {
	tests := [][]string{
		nil,
		{"a"},
		{"The ", "quick ", "brown ", "fox"},
		{"多", "字节", "🙂", "\n```go\n", "}"},
		{strings.Repeat("x", 4096), "y"},
	}

	for _, chunks := range tests {
		t.Run(strings.Join(chunks, "|"), func(t *testing.T) {
			fake := &fakeProvider{chunks: chunks}
			o := readyOrchestrator(t, fake, store.NewMemory())

			require.NoError(t, o.SubmitStreaming(context.Background(), "code", "go"))
			assert.Equal(t, strings.Join(chunks, ""), o.Messages()[1].Content)
		})
	}
}

func TestSubmitStreaming_StreamingFlagWhileInFlight(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"one", "two"}}
	o := readyOrchestrator(t, fake, store.NewMemory())

	var during []messages.Message
	fake.onChunk = func(i int) {
		if i == 1 {
			during = o.Messages()
		}
	}

	require.NoError(t, o.SubmitStreaming(context.Background(), "code", "go"))
	require.Len(t, during, 2)
	assert.True(t, during[1].Streaming)
	assert.Equal(t, "one", during[1].Content)
	assert.False(t, during[0].Streaming)
}

func TestSubmitStreaming_Failure(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"partial"}, streamErr: errors.New("connection reset")}
	o := readyOrchestrator(t, fake, store.NewMemory())

	err := o.SubmitStreaming(context.Background(), "code", "go")
	require.Error(t, err)

	msgs := o.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "partial", msgs[1].Content)
	assert.False(t, msgs[1].Streaming)
	assert.Equal(t, messages.SenderSystem, msgs[2].Sender)
	assert.Equal(t, "❌ **Streaming Error**: connection reset\n\nPlease check your configuration or try again.", msgs[2].Content)
	assert.False(t, o.Busy())
}

func TestSubmit_RejectsWhileBusy(t *testing.T) {
	fake := &fakeProvider{response: "done", block: make(chan struct{})}
	o := readyOrchestrator(t, fake, store.NewMemory())

	done := make(chan error, 1)
	go func() {
		done <- o.Submit(context.Background(), "first", "go")
	}()
	require.Eventually(t, o.Busy, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, o.Submit(context.Background(), "second", "go"), ErrBusy)
	assert.ErrorIs(t, o.SubmitStreaming(context.Background(), "second", "go"), ErrBusy)
	assert.False(t, o.Configure(context.Background(), provider.KindGemini, "AIza-other"))
	assert.Equal(t, provider.KindOpenAI, o.Provider())

	close(fake.block)
	require.NoError(t, <-done)
	assert.False(t, o.Busy())
	assert.Equal(t, 1, int(fake.completeCalls.Load()))
	assert.Len(t, o.Messages(), 2)
}

func TestPersistence_RoundTrip(t *testing.T) {
	st := store.NewMemory()
	fake := &fakeProvider{response: "This prints 1.", chunks: []string{"Hello", " world"}}
	o := readyOrchestrator(t, fake, st)

	require.NoError(t, o.Submit(context.Background(), "print(1)", "python"))
	require.NoError(t, o.SubmitStreaming(context.Background(), "fmt.Println(2)", "go"))

	raw, ok, err := st.Get(store.KeyConversation)
	require.NoError(t, err)
	require.True(t, ok)
	snap, err := UnmarshalSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, o.ConversationID(), snap.ID)
	assert.Equal(t, 4, snap.MessageCount)
	assert.Equal(t, provider.KindOpenAI, snap.Provider)

	restored, _ := newOrchestrator(t, &fakeProvider{}, st)
	require.True(t, restored.Load())
	assert.Equal(t, o.ConversationID(), restored.ConversationID())
	assert.Equal(t, o.Messages(), restored.Messages())
	assert.Equal(t, provider.KindOpenAI, restored.Provider())
}

func TestPersistence_RoundTripKeepsTimestamps(t *testing.T) {
	st := store.NewMemory()
	zone := time.FixedZone("CEST", 2*60*60)
	clock := time.Date(2024, 5, 6, 9, 8, 9, 123456789, zone)
	fake := &fakeProvider{response: "ok", chunks: []string{"a", "b"}}
	o := readyOrchestrator(t, fake, st, WithClock(func() time.Time { return clock }))

	require.NoError(t, o.Submit(context.Background(), "print(1)", "python"))
	require.NoError(t, o.SubmitStreaming(context.Background(), "x := 1", "go"))

	msgs := o.Messages()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.True(t, time.Time(m.Timestamp).Equal(clock.Truncate(time.Millisecond)))
		assert.Equal(t, time.UTC, time.Time(m.Timestamp).Location())
	}

	restored, _ := newOrchestrator(t, &fakeProvider{}, st)
	require.True(t, restored.Load())
	assert.Equal(t, msgs, restored.Messages())
}

type gatedStore struct {
	store.Store
	key     string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Set(key, value string) error {
	if key == g.key {
		close(g.entered)
		<-g.release
	}
	return g.Store.Set(key, value)
}

func TestConfigure_RefusesRequestsWhileRunning(t *testing.T) {
	st := &gatedStore{
		Store:   store.NewMemory(),
		key:     store.KeyProvider,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	fake := &fakeProvider{response: "ok"}
	o := readyOrchestrator(t, fake, st)

	done := make(chan bool, 1)
	go func() {
		done <- o.Configure(context.Background(), provider.KindGemini, "AIza-other-key")
	}()
	<-st.entered

	assert.True(t, o.Busy())
	require.ErrorIs(t, o.Submit(context.Background(), "x", "go"), ErrBusy)
	assert.Equal(t, 0, fake.calls())
	assert.Empty(t, o.Messages())

	close(st.release)
	require.True(t, <-done)
	o.Wait()

	assert.False(t, o.Busy())
	require.NoError(t, o.Submit(context.Background(), "x", "go"))
	assert.Equal(t, provider.KindGemini, o.Provider())
}

func TestLoad_ClearsStaleStreamingFlags(t *testing.T) {
	st := store.NewMemory()
	stale := Snapshot{
		ID: "conv-1",
		Messages: []messages.Message{
			messages.Code(1, "x", "go", fixedNow),
			messages.Placeholder(7, provider.KindGemini, fixedNow),
		},
	}
	data, err := MarshalSnapshot(stale)
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyConversation, data))

	fake := &fakeProvider{response: "ok"}
	o := readyOrchestrator(t, fake, st)
	require.True(t, o.Load())

	msgs := o.Messages()
	require.Len(t, msgs, 2)
	assert.False(t, msgs[1].Streaming)

	// ids continue past the restored ones
	require.NoError(t, o.Submit(context.Background(), "y", "go"))
	msgs = o.Messages()
	assert.Equal(t, int64(8), msgs[2].ID)
	assert.Equal(t, int64(9), msgs[3].ID)
	assert.Equal(t, "conv-1", o.ConversationID())
}

func TestLoad_MissingOrMalformed(t *testing.T) {
	st := store.NewMemory()
	o, _ := newOrchestrator(t, &fakeProvider{}, st)
	assert.False(t, o.Load())

	for _, raw := range []string{"{not json", `{"messages":[]}`, `"just a string"`} {
		require.NoError(t, st.Set(store.KeyConversation, raw))
		assert.False(t, o.Load(), raw)
		_, ok, err := st.Get(store.KeyConversation)
		require.NoError(t, err)
		assert.False(t, ok, "malformed snapshot should be discarded")
	}
	assert.Empty(t, o.Messages())
	assert.Empty(t, o.ConversationID())
}

func TestReset(t *testing.T) {
	st := store.NewMemory()
	fake := &fakeProvider{response: "ok"}
	o := readyOrchestrator(t, fake, st)

	require.NoError(t, o.Submit(context.Background(), "x", "go"))
	require.NotEmpty(t, o.ConversationID())

	o.Reset(context.Background())
	assert.Empty(t, o.Messages())
	assert.Empty(t, o.ConversationID())

	_, ok, err := st.Get(store.KeyConversation)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, _ := newOrchestrator(t, &fakeProvider{}, st)
	assert.False(t, fresh.Load())

	// the next exchange starts a new conversation
	require.NoError(t, o.Submit(context.Background(), "y", "go"))
	assert.NotEmpty(t, o.ConversationID())
	assert.Len(t, o.Messages(), 2)
}

func TestReset_DropsInFlightResults(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"a", "b", "c"}}
	o := readyOrchestrator(t, fake, store.NewMemory())
	fake.onChunk = func(i int) {
		if i == 1 {
			o.Reset(context.Background())
		}
	}

	require.NoError(t, o.SubmitStreaming(context.Background(), "code", "go"))
	assert.Empty(t, o.Messages())
	assert.Empty(t, o.ConversationID())
}

func TestConfigure(t *testing.T) {
	st := store.NewMemory()
	fake := &fakeProvider{response: "OK"}
	o, _ := newOrchestrator(t, fake, st)
	assert.Equal(t, StatusUnchecked, o.Status())

	require.True(t, o.Configure(context.Background(), provider.KindOpenAI, "valid-key-1"))
	o.Wait()

	assert.True(t, o.IsConfigured())
	assert.Equal(t, StatusSuccess, o.Status())
	result, ok := o.LastConnection()
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, "OK", result.Message)
	assert.Equal(t, "OpenAI", result.Provider)

	info, ok := o.Describe()
	require.True(t, ok)
	assert.Equal(t, provider.KindOpenAI, info.Kind)

	msgs := o.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.TypeSuccess, msgs[0].Type)
	assert.Equal(t, "🎉 Successfully configured OpenAI (GPT)! Testing connection...", msgs[0].Content)
	assert.NotEmpty(t, o.ConversationID())

	v, ok, _ := st.Get(store.KeyProvider)
	assert.True(t, ok)
	assert.Equal(t, "openai", v)
	v, ok, _ = st.Get(store.KeyOpenAI)
	assert.True(t, ok)
	assert.Equal(t, "valid-key-1", v)
}

func TestConfigure_ConnectionFails(t *testing.T) {
	fake := &fakeProvider{err: provider.NewError(provider.KindGemini, provider.ErrInvalidCredential, errors.New("API_KEY_INVALID"))}
	o, _ := newOrchestrator(t, fake, store.NewMemory())

	require.True(t, o.Configure(context.Background(), provider.KindGemini, "AIza-bad"))
	o.Wait()

	assert.Equal(t, StatusError, o.Status())
	result, ok := o.LastConnection()
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Invalid API key")
}

func TestConfigure_Failure(t *testing.T) {
	fake := &fakeProvider{}
	o, _ := newOrchestrator(t, fake, store.NewMemory())

	assert.False(t, o.Configure(context.Background(), provider.KindGemini, "  "))
	o.Wait()

	msgs := o.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.TypeError, msgs[0].Type)
	assert.Equal(t, "❌ Failed to configure Google Gemini. Please check your API key and try again.", msgs[0].Content)
	assert.Empty(t, o.ConversationID())
	assert.Equal(t, StatusUnchecked, o.Status())
	assert.Zero(t, fake.calls())
}

func TestConfigure_DelaysConnectionCheck(t *testing.T) {
	fake := &fakeProvider{response: "OK"}
	o, _ := newOrchestrator(t, fake, store.NewMemory(), WithConnectionCheckDelay(50*time.Millisecond))

	require.True(t, o.Configure(context.Background(), provider.KindOpenAI, "valid-key-1"))
	assert.Equal(t, StatusUnchecked, o.Status())
	assert.Zero(t, fake.calls())

	o.Wait()
	assert.Equal(t, StatusSuccess, o.Status())
	assert.Equal(t, 1, fake.calls())
}

func TestConfigure_CancelledBeforeCheck(t *testing.T) {
	fake := &fakeProvider{response: "OK"}
	o, _ := newOrchestrator(t, fake, store.NewMemory(), WithConnectionCheckDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, o.Configure(ctx, provider.KindOpenAI, "valid-key-1"))
	cancel()
	o.Wait()

	assert.Equal(t, StatusUnchecked, o.Status())
	assert.Zero(t, fake.calls())
}

func TestRestore(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(store.KeyProvider, "gemini"))
	require.NoError(t, st.Set(store.KeyGemini, "AIza-restored"))

	fake := &fakeProvider{response: "OK"}
	o, _ := newOrchestrator(t, fake, st)

	require.True(t, o.Restore(context.Background()))
	o.Wait()

	assert.Equal(t, provider.KindGemini, o.Provider())
	assert.Equal(t, provider.KindGemini, fake.kind)
	assert.Equal(t, StatusSuccess, o.Status())
	assert.Empty(t, o.Messages())
}

func TestRestore_Incomplete(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"nothing stored", nil},
		{"no credential", map[string]string{store.KeyProvider: "openai", store.KeyGemini: "AIza-x"}},
		{"unknown provider", map[string]string{store.KeyProvider: "claude"}},
		{"empty credential", map[string]string{store.KeyProvider: "openai", store.KeyOpenAI: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			for k, v := range tt.values {
				require.NoError(t, st.Set(k, v))
			}
			fake := &fakeProvider{}
			o, _ := newOrchestrator(t, fake, st)

			assert.False(t, o.Restore(context.Background()))
			o.Wait()
			assert.False(t, o.IsConfigured())
			assert.Zero(t, fake.calls())
		})
	}
}

func TestInsights(t *testing.T) {
	fake := &fakeProvider{response: "ok"}
	o := readyOrchestrator(t, fake, store.NewMemory())

	require.NoError(t, o.Submit(context.Background(), "print(1)", "python"))
	require.NoError(t, o.Submit(context.Background(), "fmt.Println(1)", "go"))
	assert.Equal(t, []provider.HistoryEntry{{Language: "python"}, {Language: "go"}}, o.History())

	fake.response = "Keep practicing."
	text, err := o.Insights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Keep practicing.", text)

	req := fake.lastRequest.Load()
	require.NotNil(t, req)
	assert.Contains(t, req.Prompt, "python, go")

	msgs := o.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, messages.TypeInsights, last.Type)
	assert.Equal(t, "Keep practicing.", last.Content)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(key string) (string, bool, error) {
	args := m.Called(key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(key, value string) error {
	return m.Called(key, value).Error(0)
}

func (m *mockStore) Remove(key string) error {
	return m.Called(key).Error(0)
}

func TestStoreFailuresAreNotFatal(t *testing.T) {
	diskGone := errors.New("disk gone")
	st := new(mockStore)
	st.On("Get", mock.Anything).Return("", false, diskGone)
	st.On("Set", store.KeyConversation, mock.AnythingOfType("string")).Return(diskGone)
	st.On("Remove", store.KeyConversation).Return(diskGone)

	fake := &fakeProvider{response: "fine"}
	o := readyOrchestrator(t, fake, st)

	assert.False(t, o.Load())
	assert.False(t, o.Restore(context.Background()))
	require.NoError(t, o.Submit(context.Background(), "x", "go"))
	assert.Len(t, o.Messages(), 2)
	assert.NotPanics(t, func() { o.Reset(context.Background()) })

	st.AssertCalled(t, "Get", store.KeyConversation)
	st.AssertCalled(t, "Get", store.KeyProvider)
	st.AssertNumberOfCalls(t, "Set", 2)
	st.AssertCalled(t, "Remove", store.KeyConversation)
}

type eventRecorder struct {
	mu     sync.Mutex
	kinds  []string
	chunks []string
	busy   []bool
}

func (r *eventRecorder) OnMessage(context.Context, string, messages.Message) {
	r.record("message")
}

func (r *eventRecorder) OnChunk(_ context.Context, c events.ChunkReceived) {
	r.mu.Lock()
	r.chunks = append(r.chunks, c.Chunk)
	r.mu.Unlock()
	r.record("chunk")
}

func (r *eventRecorder) OnDelim(_ context.Context, d events.Delim) {
	r.record("delim:" + d.Delim)
}

func (r *eventRecorder) OnStatus(_ context.Context, s events.StatusChanged) {
	r.record("status:" + s.Status)
}

func (r *eventRecorder) OnBusy(_ context.Context, busy bool) {
	r.mu.Lock()
	r.busy = append(r.busy, busy)
	r.mu.Unlock()
	r.record("busy")
}

func (r *eventRecorder) OnReset(context.Context, string) {
	r.record("reset")
}

func (r *eventRecorder) record(kind string) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	topic := broker.Local().Topic(ctx, "conversation-events")
	recorder := &eventRecorder{}
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	fake := &fakeProvider{chunks: []string{"Hello", " ", "world"}}
	o := readyOrchestrator(t, fake, store.NewMemory(), WithTopic(topic))

	require.NoError(t, o.SubmitStreaming(ctx, "code", "go"))
	o.Reset(ctx)

	want := []string{
		"busy",
		"message", "message",
		"delim:start",
		"chunk", "chunk", "chunk",
		"delim:end",
		"busy",
		"reset",
	}
	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == len(want)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, recorder.snapshot())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, []string{"Hello", " ", "world"}, recorder.chunks)
	assert.Equal(t, []bool{true, false}, recorder.busy)
}
