package conversation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casualjim/codelens/events"
	"github.com/casualjim/codelens/internal/broker"
	"github.com/casualjim/codelens/messages"
	"github.com/casualjim/codelens/pkg/slogx"
	"github.com/casualjim/codelens/pkg/uuidx"
	"github.com/casualjim/codelens/provider"
	"github.com/casualjim/codelens/store"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

const defaultConnectionCheckDelay = 500 * time.Millisecond

var (
	// ErrBusy is returned when a request is submitted while another one is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrConfigurationRequired is returned when no provider has been configured.
	// Nothing is appended to the conversation and the gateway is not called.
	ErrConfigurationRequired = errors.New("AI provider is not configured")
)

// Gateway is the part of gateway.Gateway the orchestrator drives.
type Gateway interface {
	Initialize(provider.Config) bool
	IsReady() bool
	Describe() (provider.Info, bool)
	Analyze(ctx context.Context, code, language string) (string, error)
	StreamAnalyze(ctx context.Context, code, language string, onChunk func(string)) error
	TestConnection(ctx context.Context) provider.ConnectionResult
	CodingInsights(ctx context.Context, history []provider.HistoryEntry) (string, error)
}

// Option configures an Orchestrator.
type Option = opts.Option[Orchestrator]

var (
	// WithTopic publishes every state change on the topic.
	WithTopic = opts.ForName[Orchestrator, broker.Topic]("topic")
	// WithConnectionCheckDelay sets how long Configure waits before testing the connection.
	WithConnectionCheckDelay = opts.ForName[Orchestrator, time.Duration]("checkDelay")
)

// WithClock replaces time.Now for message timestamps. Readings are truncated
// to milliseconds in UTC like every other clock reading.
func WithClock(now func() time.Time) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if now == nil {
			return errors.New("nil clock")
		}
		o.now = now
		return nil
	})
}

// Orchestrator owns a conversation: its messages, identity, busy flag and
// connection status. It drives the gateway for user requests and persists a
// snapshot to the store after every change.
type Orchestrator struct {
	gateway    Gateway
	store      store.Store
	topic      broker.Topic
	checkDelay time.Duration
	now        func() time.Time

	lastID  atomic.Int64
	busy    atomic.Bool
	pending sync.WaitGroup
	saveMu  sync.Mutex

	mu          sync.RWMutex
	id          string
	generation  uint64
	messages    []messages.Message
	lastUpdated time.Time
	kind        provider.Kind
	status      ConnectionStatus
	lastResult  *provider.ConnectionResult
}

// New creates an orchestrator with an empty conversation. Call Load to pick
// up a persisted one.
func New(gw Gateway, st store.Store, options ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:    gw,
		store:      st,
		checkDelay: defaultConnectionCheckDelay,
		now:        time.Now,
		status:     StatusUnchecked,
	}
	if err := opts.Apply(o, options); err != nil {
		panic(err)
	}
	o.now = snapshotClock(o.now)
	return o
}

// snapshotClock keeps only the precision a snapshot can hold, so a restored
// conversation equals the one that was saved.
func snapshotClock(now func() time.Time) func() time.Time {
	return func() time.Time {
		return now().UTC().Truncate(time.Millisecond)
	}
}

// Load restores the persisted conversation. It reports false when there is
// none. A snapshot that cannot be decoded is removed from the store.
func (o *Orchestrator) Load() bool {
	raw, ok, err := o.store.Get(store.KeyConversation)
	if err != nil {
		slog.Warn("failed to read conversation", slogx.LoggerName("conversation"), slogx.Error(err))
		return false
	}
	if !ok {
		return false
	}

	snap, err := UnmarshalSnapshot(raw)
	if err != nil {
		slog.Warn("discarding malformed conversation", slogx.LoggerName("conversation"), slogx.Error(err))
		if err := o.store.Remove(store.KeyConversation); err != nil {
			slog.Warn("failed to remove conversation", slogx.LoggerName("conversation"), slogx.Error(err))
		}
		return false
	}

	o.mu.Lock()
	o.id = snap.ID
	o.messages = snap.Messages
	o.lastUpdated = time.Time(snap.LastUpdated)
	if o.kind == "" {
		o.kind = snap.Provider
	}
	o.mu.Unlock()

	o.seedIDs(snap.maxID())
	slog.Info("conversation restored", slogx.LoggerName("conversation"), slogx.Conversation(snap.ID), slog.Int("messages", len(snap.Messages)))
	return true
}

// Restore initializes the gateway from the provider selection and credential
// in the store and schedules a connection test. It reports whether the
// gateway is ready.
func (o *Orchestrator) Restore(ctx context.Context) bool {
	selected, ok, err := o.store.Get(store.KeyProvider)
	if err != nil || !ok {
		if err != nil {
			slog.Warn("failed to read provider selection", slogx.LoggerName("conversation"), slogx.Error(err))
		}
		return false
	}
	kind, err := provider.ParseKind(selected)
	if err != nil {
		slog.Warn("ignoring stored provider", slogx.LoggerName("conversation"), slogx.Error(err))
		return false
	}
	credential, ok, err := o.store.Get(store.CredentialKey(kind))
	if err != nil || !ok || credential == "" {
		return false
	}

	ready := o.gateway.Initialize(provider.Config{Kind: kind, Credential: credential})
	o.mu.Lock()
	o.kind = kind
	o.mu.Unlock()

	if ready {
		o.scheduleConnectionCheck(ctx, 0)
	}
	return ready
}

// Configure saves the provider selection and credential, and re-initializes
// the gateway with them. On success a connection test is scheduled after the
// connection check delay. Reconfiguration is refused while a request is in
// flight, and requests are refused while it runs.
func (o *Orchestrator) Configure(ctx context.Context, kind provider.Kind, credential string) bool {
	if !o.busy.CompareAndSwap(false, true) {
		slog.Warn("refusing to reconfigure while busy", slogx.LoggerName("conversation"), slogx.Provider(kind))
		return false
	}
	ready := o.reconfigure(kind, credential)
	o.busy.Store(false)

	name := string(kind)
	if info, ok := provider.Lookup(kind); ok {
		name = info.DisplayName
	}
	if !ready {
		o.appendSystem(ctx, messages.TypeError, fmt.Sprintf("❌ Failed to configure %s. Please check your API key and try again.", name))
		return false
	}

	o.ensureID()
	o.appendSystem(ctx, messages.TypeSuccess, fmt.Sprintf("🎉 Successfully configured %s! Testing connection...", name))
	o.scheduleConnectionCheck(ctx, o.checkDelay)
	return true
}

// reconfigure saves the selection and swaps the gateway client. The caller
// holds the busy flag.
func (o *Orchestrator) reconfigure(kind provider.Kind, credential string) bool {

	if kind.Valid() {
		o.save(store.KeyProvider, string(kind))
		o.save(store.CredentialKey(kind), credential)
	}

	ready := o.gateway.Initialize(provider.Config{Kind: kind, Credential: credential})

	o.mu.Lock()
	o.kind = kind
	if !ready {
		o.status = StatusUnchecked
		o.lastResult = nil
	}
	o.mu.Unlock()
	return ready
}

func (o *Orchestrator) scheduleConnectionCheck(ctx context.Context, delay time.Duration) {
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		o.CheckConnection(ctx)
	}()
}

// CheckConnection runs a connection test now and records its outcome.
func (o *Orchestrator) CheckConnection(ctx context.Context) provider.ConnectionResult {
	if !o.gateway.IsReady() {
		return provider.ConnectionResult{Success: false, Error: provider.Describe(provider.ErrNotReady)}
	}

	o.setStatus(ctx, StatusChecking, nil)
	result := o.gateway.TestConnection(ctx)
	if result.Success {
		slog.Info("connection successful", slogx.LoggerName("conversation"), slog.String("provider", result.Provider), slog.String("message", result.Message))
		o.setStatus(ctx, StatusSuccess, &result)
	} else {
		slog.Warn("connection failed", slogx.LoggerName("conversation"), slog.String("provider", result.Provider), slog.String("error", result.Error))
		o.setStatus(ctx, StatusError, &result)
	}
	return result
}

func (o *Orchestrator) setStatus(ctx context.Context, status ConnectionStatus, result *provider.ConnectionResult) {
	o.mu.Lock()
	o.status = status
	o.lastResult = result
	o.mu.Unlock()

	o.publish(ctx, events.StatusChanged{Status: string(status), Result: result, Timestamp: o.timestamp()})
}

// Wait blocks until scheduled connection tests have finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// Submit asks the gateway to explain code and appends the exchange to the
// conversation. A gateway failure is recorded as a system error message and
// returned.
func (o *Orchestrator) Submit(ctx context.Context, code, language string) error {
	release, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	language = cmp.Or(language, provider.DefaultLanguage)
	gen := o.appendUser(ctx, code, language)

	text, err := o.gateway.Analyze(ctx, code, language)
	if err != nil {
		slog.Error("analysis failed", slogx.LoggerName("conversation"), slogx.Error(err))
		o.appendFor(ctx, gen, o.errorMessage("Error", err, "Please check your API key configuration or try again."))
		return err
	}

	msg := messages.Explanation(o.nextID(), text, o.Provider(), o.now())
	msg.Code = code
	msg.Language = language
	o.appendFor(ctx, gen, msg)
	return nil
}

// SubmitStreaming is Submit with the explanation streamed into a placeholder
// message. Chunks are folded into the placeholder by id in arrival order.
// On failure the placeholder keeps its partial content and a system error
// message is appended.
func (o *Orchestrator) SubmitStreaming(ctx context.Context, code, language string) error {
	release, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	language = cmp.Or(language, provider.DefaultLanguage)
	gen := o.appendUser(ctx, code, language)

	placeholder := messages.Placeholder(o.nextID(), o.Provider(), o.now())
	placeholder.Code = code
	placeholder.Language = language
	o.appendFor(ctx, gen, placeholder)
	o.publish(ctx, events.Delim{ConversationID: o.ConversationID(), MessageID: placeholder.ID, Delim: events.DelimStart})

	err = o.gateway.StreamAnalyze(ctx, code, language, func(chunk string) {
		o.fold(ctx, placeholder.ID, chunk)
	})

	o.finish(placeholder.ID)
	o.publish(ctx, events.Delim{ConversationID: o.ConversationID(), MessageID: placeholder.ID, Delim: events.DelimEnd})

	if err != nil {
		slog.Error("streaming analysis failed", slogx.LoggerName("conversation"), slogx.Message(placeholder.ID), slogx.Error(err))
		o.appendFor(ctx, gen, o.errorMessage("Streaming Error", err, "Please check your configuration or try again."))
		return err
	}
	o.persist()
	return nil
}

// Insights asks for mentoring feedback on the code submitted so far and
// appends it as an insights message.
func (o *Orchestrator) Insights(ctx context.Context) (string, error) {
	release, err := o.begin(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	o.mu.RLock()
	gen := o.generation
	o.mu.RUnlock()

	text, err := o.gateway.CodingInsights(ctx, o.History())
	if err != nil {
		slog.Error("coding insights failed", slogx.LoggerName("conversation"), slogx.Error(err))
		o.ensureID()
		o.appendFor(ctx, gen, o.errorMessage("Error", err, "Please check your API key configuration or try again."))
		return "", err
	}

	o.ensureID()
	o.appendFor(ctx, gen, messages.Insights(o.nextID(), text, o.Provider(), o.now()))
	return text, nil
}

// History lists the language of every code submission in order.
func (o *Orchestrator) History() []provider.HistoryEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var history []provider.HistoryEntry
	for _, m := range o.messages {
		if m.IsUser() && m.Type == messages.TypeCode {
			history = append(history, provider.HistoryEntry{Language: m.Language})
		}
	}
	return history
}

// Reset clears the conversation and forgets the persisted snapshot. Results
// of requests still in flight are dropped.
func (o *Orchestrator) Reset(ctx context.Context) {
	o.mu.Lock()
	previous := o.id
	o.id = ""
	o.messages = nil
	o.lastUpdated = time.Time{}
	o.generation++
	o.mu.Unlock()

	o.saveMu.Lock()
	if err := o.store.Remove(store.KeyConversation); err != nil {
		slog.Warn("failed to remove conversation", slogx.LoggerName("conversation"), slogx.Error(err))
	}
	o.saveMu.Unlock()

	slog.Info("conversation reset", slogx.LoggerName("conversation"), slogx.Conversation(previous))
	o.publish(ctx, events.Reset{ConversationID: previous, Timestamp: o.timestamp()})
}

func (o *Orchestrator) begin(ctx context.Context) (func(), error) {
	if !o.gateway.IsReady() {
		return nil, ErrConfigurationRequired
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	o.publish(ctx, events.BusyChanged{Busy: true, Timestamp: o.timestamp()})

	return func() {
		o.busy.Store(false)
		o.publish(ctx, events.BusyChanged{Busy: false, Timestamp: o.timestamp()})
	}, nil
}

func (o *Orchestrator) appendUser(ctx context.Context, code, language string) uint64 {
	o.ensureID()
	o.mu.RLock()
	gen := o.generation
	o.mu.RUnlock()

	o.appendFor(ctx, gen, messages.Code(o.nextID(), code, language, o.now()))
	return gen
}

func (o *Orchestrator) errorMessage(title string, err error, hint string) messages.Message {
	content := fmt.Sprintf("❌ **%s**: %s\n\n%s", title, provider.Describe(err), hint)
	return messages.System(o.nextID(), messages.TypeError, content, o.now())
}

func (o *Orchestrator) appendSystem(ctx context.Context, typ messages.Type, content string) {
	o.mu.RLock()
	gen := o.generation
	o.mu.RUnlock()
	o.appendFor(ctx, gen, messages.System(o.nextID(), typ, content, o.now()))
}

// appendFor appends msg unless the conversation was reset since gen.
func (o *Orchestrator) appendFor(ctx context.Context, gen uint64, msg messages.Message) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		slog.Debug("dropping message for a reset conversation", slogx.LoggerName("conversation"), slogx.Message(msg.ID))
		return
	}
	o.messages = append(o.messages, msg)
	o.lastUpdated = o.now()
	id := o.id
	o.mu.Unlock()

	o.publish(ctx, events.MessageAppended{ConversationID: id, Message: msg, Timestamp: o.timestamp()})
	o.persist()
}

func (o *Orchestrator) fold(ctx context.Context, messageID int64, chunk string) {
	o.mu.Lock()
	idx := o.indexOf(messageID)
	if idx < 0 {
		o.mu.Unlock()
		return
	}
	o.messages[idx].Append(chunk)
	id := o.id
	o.mu.Unlock()

	o.publish(ctx, events.ChunkReceived{ConversationID: id, MessageID: messageID, Chunk: chunk, Timestamp: o.timestamp()})
}

func (o *Orchestrator) finish(messageID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if idx := o.indexOf(messageID); idx >= 0 {
		o.messages[idx].Complete()
		o.lastUpdated = o.now()
	}
}

// indexOf must be called with mu held.
func (o *Orchestrator) indexOf(messageID int64) int {
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) ensureID() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.id == "" {
		o.id = uuidx.NewString()
	}
}

func (o *Orchestrator) persist() {
	o.saveMu.Lock()
	defer o.saveMu.Unlock()

	kind := o.Provider()
	o.mu.RLock()
	if o.id == "" || len(o.messages) == 0 {
		o.mu.RUnlock()
		return
	}
	snap := Snapshot{
		ID:          o.id,
		Messages:    slices.Clone(o.messages),
		LastUpdated: strfmt.DateTime(o.lastUpdated),
		Provider:    kind,
	}
	o.mu.RUnlock()

	data, err := MarshalSnapshot(snap)
	if err != nil {
		slog.Error("failed to encode conversation", slogx.LoggerName("conversation"), slogx.Error(err))
		return
	}
	if err := o.store.Set(store.KeyConversation, data); err != nil {
		slog.Error("failed to save conversation", slogx.LoggerName("conversation"), slogx.Conversation(snap.ID), slogx.Error(err))
	}
}

func (o *Orchestrator) save(key, value string) {
	if err := o.store.Set(key, value); err != nil {
		slog.Error("failed to save setting", slogx.LoggerName("conversation"), slog.String("key", key), slogx.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.topic == nil {
		return
	}
	if err := o.topic.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish event", slogx.LoggerName("conversation"), slogx.Error(err))
	}
}

func (o *Orchestrator) nextID() int64 {
	return o.lastID.Add(1)
}

func (o *Orchestrator) seedIDs(highest int64) {
	for {
		current := o.lastID.Load()
		if current >= highest || o.lastID.CompareAndSwap(current, highest) {
			return
		}
	}
}

func (o *Orchestrator) timestamp() strfmt.DateTime {
	return strfmt.DateTime(o.now())
}

// Messages returns a copy of the conversation.
func (o *Orchestrator) Messages() []messages.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.messages)
}

// Busy reports whether a request is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Status is the outcome of the latest connection test.
func (o *Orchestrator) Status() ConnectionStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// LastConnection returns the result of the last finished connection test.
func (o *Orchestrator) LastConnection() (provider.ConnectionResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastResult == nil {
		return provider.ConnectionResult{}, false
	}
	return *o.lastResult, true
}

// ConversationID is empty until the first exchange.
func (o *Orchestrator) ConversationID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

// Provider is the selected provider, which may not be ready. When none was
// selected through the orchestrator, the gateway's selection is used.
func (o *Orchestrator) Provider() provider.Kind {
	o.mu.RLock()
	kind := o.kind
	o.mu.RUnlock()

	if kind == "" {
		if info, ok := o.gateway.Describe(); ok {
			kind = info.Kind
		}
	}
	return kind
}

// IsConfigured reports whether the gateway has a client to send requests to.
func (o *Orchestrator) IsConfigured() bool {
	return o.gateway.IsReady()
}

// Describe returns the metadata of the selected provider.
func (o *Orchestrator) Describe() (provider.Info, bool) {
	return o.gateway.Describe()
}
