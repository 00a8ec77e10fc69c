package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/transcript"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	period  time.Duration
	next    time.Time
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	tk := &fakeTicker{period: d, next: c.now.Add(d), c: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, tk)
	return tk
}

// Advance moves time forward one second at a time and hands each due tick
// to the loop before moving on.
func (c *fakeClock) Advance(t *testing.T, d time.Duration) {
	t.Helper()
	for elapsed := time.Duration(0); elapsed < d; elapsed += time.Second {
		c.mu.Lock()
		c.now = c.now.Add(time.Second)
		now := c.now
		var due []*fakeTicker
		for _, tk := range c.tickers {
			if tk.isStopped() {
				continue
			}
			if !now.Before(tk.next) {
				tk.next = tk.next.Add(tk.period)
				due = append(due, tk)
			}
		}
		c.mu.Unlock()
		for _, tk := range due {
			select {
			case tk.c <- now:
			case <-tk.stopped:
			case <-time.After(2 * time.Second):
				t.Fatal("timeout delivering tick")
			}
		}
	}
}

func (c *fakeClock) activeTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tk := range c.tickers {
		if !tk.isStopped() {
			n++
		}
	}
	return n
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

type mockVendor struct {
	mu         sync.Mutex
	listeners  map[voice.EventName][]voice.Listener
	startErr   error
	startCalls []voice.StartOptions
	assistants []voice.AssistantConfig
	stopCalls  int
	muteCalls  []bool
}

func newMockVendor() *mockVendor {
	return &mockVendor{listeners: make(map[voice.EventName][]voice.Listener)}
}

func (m *mockVendor) Start(_ context.Context, assistant voice.AssistantConfig, opts voice.StartOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls = append(m.startCalls, opts)
	m.assistants = append(m.assistants, assistant)
	return m.startErr
}

func (m *mockVendor) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *mockVendor) SetMuted(muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muteCalls = append(m.muteCalls, muted)
	return nil
}

func (m *mockVendor) On(name voice.EventName, l voice.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[name] = append(m.listeners[name], l)
}

func (m *mockVendor) Off(name voice.EventName, l voice.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.listeners[name]
	for i, existing := range list {
		if existing == l {
			m.listeners[name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (m *mockVendor) emit(ev voice.VendorEvent) {
	m.mu.Lock()
	list := append([]voice.Listener(nil), m.listeners[ev.Name]...)
	m.mu.Unlock()
	for _, l := range list {
		l.Handle(ev)
	}
}

func (m *mockVendor) say(role, text string) {
	m.emit(voice.VendorEvent{Name: voice.EventMessage, Message: &voice.VendorMessage{
		Type: voice.MessageTypeTranscript, TranscriptType: voice.TranscriptTypeFinal, Role: role, Transcript: text,
	}})
}

func (m *mockVendor) stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

type mockProgress struct {
	mu       sync.Mutex
	saves    []progress.SaveInput
	saveErr  error
	snapshot *progress.Snapshot
	loadErr  error

	// hold makes in-progress saves wait until it is closed. With
	// ignoreCancel they also keep waiting after ctx is done.
	hold         chan struct{}
	ignoreCancel bool
	held         int
}

func (m *mockProgress) Save(ctx context.Context, _ string, input progress.SaveInput) error {
	m.mu.Lock()
	hold, ignoreCancel := m.hold, m.ignoreCancel
	if hold != nil && !input.IsCompleted {
		m.held++
	}
	m.mu.Unlock()

	if hold != nil && !input.IsCompleted {
		if ignoreCancel {
			<-hold
		} else {
			select {
			case <-hold:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, input)
	return nil
}

func (m *mockProgress) heldSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

func (m *mockProgress) Load(_ context.Context, _ string) (*progress.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.loadErr
}

func (m *mockProgress) savedInputs() []progress.SaveInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]progress.SaveInput(nil), m.saves...)
}

type mockShell struct {
	mu    sync.Mutex
	enter int
	exit  int
	back  int
}

func (m *mockShell) EnterImmersive() { m.mu.Lock(); m.enter++; m.mu.Unlock() }
func (m *mockShell) ExitImmersive()  { m.mu.Lock(); m.exit++; m.mu.Unlock() }
func (m *mockShell) Back()           { m.mu.Lock(); m.back++; m.mu.Unlock() }

func (m *mockShell) immersive() (enter int, exit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter, m.exit
}

func (m *mockShell) backs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.back
}

type mockNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (m *mockNotifier) Notify(n Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
}

func (m *mockNotifier) last() Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.notices) == 0 {
		return Notice{}
	}
	return m.notices[len(m.notices)-1]
}

type harness struct {
	manager  *Manager
	vendor   *mockVendor
	progress *mockProgress
	shell    *mockShell
	notifier *mockNotifier
	clock    *fakeClock
}

func newHarness(t *testing.T, def interview.Definition) *harness {
	t.Helper()
	preset, err := voice.DefaultPreset()
	if err != nil {
		t.Fatalf("DefaultPreset failed: %v", err)
	}
	h := &harness{
		vendor:   newMockVendor(),
		progress: &mockProgress{},
		shell:    &mockShell{},
		notifier: &mockNotifier{},
		clock:    newFakeClock(),
	}
	h.manager = NewManager(Deps{
		Voice:            voice.NewAdapter(h.vendor, preset),
		Progress:         h.progress,
		Shell:            h.shell,
		Notifier:         h.notifier,
		Clock:            h.clock,
		AutosaveInterval: 30 * time.Second,
	}, User{ID: "user-1"}, def)
	return h
}

func testDefinition() interview.Definition {
	return interview.Definition{
		ID:              "iv-1",
		Company:         "Acme",
		Role:            "Backend Engineer",
		DurationMinutes: 30,
		Questions:       []interview.Question{{Text: "Explain goroutines", Category: "technical"}},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) startActive(t *testing.T) {
	t.Helper()
	if err := h.manager.StartCall(context.Background()); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}
	h.vendor.emit(voice.VendorEvent{Name: voice.EventCallStart})
	waitFor(t, "active status", func() bool { return h.manager.State().Status == StatusActive })
}

func TestStartCall_MissingInterviewID(t *testing.T) {
	def := testDefinition()
	def.ID = ""
	h := newHarness(t, def)

	err := h.manager.StartCall(context.Background())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if h.manager.State().Status != StatusInactive {
		t.Fatalf("expected inactive, got %s", h.manager.State().Status)
	}
	if n := h.notifier.last(); n.Level != NoticeError {
		t.Fatalf("expected error notice, got %+v", n)
	}
	if len(h.vendor.startCalls) != 0 {
		t.Fatal("expected vendor not started")
	}
}

func TestStartCall_IgnoredWhileActive(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)

	err := h.manager.StartCall(context.Background())
	if !errors.Is(err, ErrNotInactive) {
		t.Fatalf("expected ErrNotInactive, got %v", err)
	}
	if len(h.vendor.startCalls) != 1 {
		t.Fatalf("expected one vendor start, got %d", len(h.vendor.startCalls))
	}
	if h.manager.State().Status != StatusActive {
		t.Fatal("expected status unchanged")
	}
}

func TestStartCall_VendorFailureMovesToError(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.vendor.startErr = errors.New("microphone denied")

	err := h.manager.StartCall(context.Background())
	if !errors.Is(err, voice.ErrVendor) {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if got := h.manager.State().Status; got != StatusError {
		t.Fatalf("expected error status, got %s", got)
	}
	if n := h.notifier.last(); n.Message != messageStartFailed {
		t.Fatalf("unexpected notice: %+v", n)
	}
	if enter, exit := h.shell.immersive(); enter != 1 || exit != 1 {
		t.Fatalf("expected immersive mode entered and left once, got %d and %d", enter, exit)
	}
}

func TestTimeExhaustion_CompletesOnce(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.snapshot = &progress.Snapshot{InterviewID: "iv-1", SessionID: "s-prev", TimeRemainingSeconds: 1}
	if err := h.manager.LoadProgress(context.Background()); err != nil {
		t.Fatalf("LoadProgress failed: %v", err)
	}
	h.startActive(t)

	h.clock.Advance(t, time.Second)
	waitFor(t, "completion save", func() bool { return len(h.progress.savedInputs()) == 1 })

	st := h.manager.State()
	if st.Status != StatusFinished {
		t.Fatalf("expected finished, got %s", st.Status)
	}
	if st.TimeText != "00:00" {
		t.Fatalf("expected 00:00, got %s", st.TimeText)
	}
	saves := h.progress.savedInputs()
	if !saves[0].IsCompleted || saves[0].TimeRemainingSeconds != 0 || saves[0].SessionID != "s-prev" {
		t.Fatalf("unexpected completion save: %+v", saves[0])
	}
	if h.vendor.stops() != 1 {
		t.Fatalf("expected vendor stopped once, got %d", h.vendor.stops())
	}

	h.clock.Advance(t, 3*time.Second)
	if got := len(h.progress.savedInputs()); got != 1 {
		t.Fatalf("expected a single completion save, got %d", got)
	}
	waitFor(t, "tickers stopped", func() bool { return h.clock.activeTickers() == 0 })
}

func TestAutosave_EveryIntervalWithTranscript(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)

	h.vendor.say("assistant", "Tell me about goroutines.")
	h.vendor.say("user", "They are lightweight threads.")
	waitFor(t, "two turns", func() bool { return len(h.manager.State().Transcript) == 2 })

	h.clock.Advance(t, 65*time.Second)
	waitFor(t, "two autosaves", func() bool { return len(h.progress.savedInputs()) == 2 })
	waitFor(t, "last saved time", func() bool { return !h.manager.State().LastSavedAt.IsZero() })
	time.Sleep(20 * time.Millisecond)
	if got := len(h.progress.savedInputs()); got != 2 {
		t.Fatalf("expected exactly two autosaves after 65s, got %d", got)
	}

	for i, s := range h.progress.savedInputs() {
		if s.IsCompleted {
			t.Fatalf("autosave %d marked completed", i)
		}
		if len(s.Transcript) != 2 {
			t.Fatalf("autosave %d has %d turns", i, len(s.Transcript))
		}
	}
	if got := h.manager.State().TimeRemainingSeconds; got != 30*60-65 {
		t.Fatalf("expected %d seconds remaining, got %d", 30*60-65, got)
	}
}

func TestAutosave_StopsAfterEndCall(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.vendor.say("user", "I would shard the queue.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })

	if err := h.manager.EndCall(context.Background()); err != nil {
		t.Fatalf("EndCall failed: %v", err)
	}
	h.clock.Advance(t, 65*time.Second)
	time.Sleep(20 * time.Millisecond)

	saves := h.progress.savedInputs()
	if len(saves) != 1 || !saves[0].IsCompleted {
		t.Fatalf("expected only the completion save, got %+v", saves)
	}
}

func TestAutosave_InFlightIsCancelledByCompletion(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.hold = make(chan struct{})
	defer close(h.progress.hold)
	h.startActive(t)
	h.vendor.say("user", "Channels for ownership transfer.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })

	h.clock.Advance(t, 31*time.Second)
	waitFor(t, "autosave in flight", func() bool { return h.progress.heldSaves() == 1 })

	if err := h.manager.EndCall(context.Background()); err != nil {
		t.Fatalf("EndCall failed: %v", err)
	}
	saves := h.progress.savedInputs()
	if len(saves) != 1 || !saves[0].IsCompleted {
		t.Fatalf("expected the completion save alone, got %+v", saves)
	}
}

func TestAutosave_SlowWriteLandsBeforeCompletion(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.hold = make(chan struct{})
	h.progress.ignoreCancel = true
	h.startActive(t)
	h.vendor.say("user", "A mutex around the map.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })

	h.clock.Advance(t, 31*time.Second)
	waitFor(t, "autosave in flight", func() bool { return h.progress.heldSaves() == 1 })

	done := make(chan error, 1)
	go func() { done <- h.manager.EndCall(context.Background()) }()
	waitFor(t, "call stopped", func() bool { return h.vendor.stops() == 1 })
	close(h.progress.hold)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("EndCall failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EndCall did not return")
	}
	time.Sleep(20 * time.Millisecond)

	saves := h.progress.savedInputs()
	if len(saves) == 0 || !saves[len(saves)-1].IsCompleted {
		t.Fatalf("expected the completion save to be written last, got %+v", saves)
	}
	for _, s := range saves[:len(saves)-1] {
		if s.IsCompleted {
			t.Fatalf("unexpected extra completion save: %+v", saves)
		}
	}
}

func TestAutosave_SkippedWithoutTranscript(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)

	h.clock.Advance(t, 31*time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := len(h.progress.savedInputs()); got != 0 {
		t.Fatalf("expected no autosave, got %d", got)
	}
}

func TestResume_PassesTranscriptAndReusesSessionID(t *testing.T) {
	h := newHarness(t, testDefinition())
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.progress.snapshot = &progress.Snapshot{
		InterviewID:          "iv-1",
		SessionID:            "s1",
		TimeRemainingSeconds: 450,
		Transcript: []transcript.Turn{
			{Speaker: transcript.SpeakerAgent, Text: "Hi, I'm Sarah.", Timestamp: ts},
			{Speaker: transcript.SpeakerCandidate, Text: "Hello.", Timestamp: ts},
			{Speaker: transcript.SpeakerAgent, Text: "Explain goroutines.", Timestamp: ts},
		},
	}
	if err := h.manager.LoadProgress(context.Background()); err != nil {
		t.Fatalf("LoadProgress failed: %v", err)
	}
	st := h.manager.State()
	if st.Status != StatusInactive || st.TimeText != "07:30" || len(st.Transcript) != 3 || st.SessionID != "s1" {
		t.Fatalf("unexpected state after load: %+v", st)
	}
	if n := h.notifier.last(); n.Level != NoticeSuccess || !strings.Contains(n.Message, "3 messages") {
		t.Fatalf("unexpected notice: %+v", n)
	}

	h.startActive(t)
	opts := h.vendor.startCalls[0]
	if strings.Count(opts.VariableValues.Transcript, "\n") != 2 {
		t.Fatalf("expected three transcript lines, got %q", opts.VariableValues.Transcript)
	}
	assistant := h.vendor.assistants[0]
	last := assistant.Model.Messages[len(assistant.Model.Messages)-1]
	if !strings.Contains(last.Content, "7.5 minutes remain") {
		t.Fatalf("expected resume timing instruction, got %q", last.Content)
	}

	if err := h.manager.SaveAndQuit(context.Background()); err != nil {
		t.Fatalf("SaveAndQuit failed: %v", err)
	}
	saves := h.progress.savedInputs()
	if len(saves) != 1 || saves[0].SessionID != "s1" {
		t.Fatalf("expected session id reused, got %+v", saves)
	}
}

func TestSaveAndQuit_FailureKeepsCallRunning(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.progress.saveErr = errors.New("503")

	err := h.manager.SaveAndQuit(context.Background())
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("expected ErrSaveFailed, got %v", err)
	}
	if got := h.manager.State().Status; got != StatusActive {
		t.Fatalf("expected active after failed save, got %s", got)
	}
	if h.vendor.stops() != 0 {
		t.Fatal("expected vendor not stopped")
	}
	if h.shell.backs() != 0 {
		t.Fatal("expected no navigation")
	}
	if n := h.notifier.last(); n.Level != NoticeError {
		t.Fatalf("expected error notice, got %+v", n)
	}
}

func TestSaveAndQuit_RejectedAfterEndCall(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.vendor.say("user", "Use context for cancellation.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })
	if err := h.manager.EndCall(context.Background()); err != nil {
		t.Fatalf("EndCall failed: %v", err)
	}

	err := h.manager.SaveAndQuit(context.Background())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	saves := h.progress.savedInputs()
	if len(saves) != 1 || !saves[0].IsCompleted {
		t.Fatalf("expected completion to stay the only save, got %+v", saves)
	}
	if h.shell.backs() != 0 {
		t.Fatal("expected no navigation")
	}
}

func TestSaveAndQuit_RejectedWhileInactive(t *testing.T) {
	h := newHarness(t, testDefinition())

	err := h.manager.SaveAndQuit(context.Background())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if got := len(h.progress.savedInputs()); got != 0 {
		t.Fatalf("expected no save, got %d", got)
	}
	if h.shell.backs() != 0 {
		t.Fatal("expected no navigation")
	}
	if got := h.manager.State().Status; got != StatusInactive {
		t.Fatalf("expected inactive, got %s", got)
	}
}

func TestSaveAndQuit_StopsAndNavigates(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.vendor.say("user", "I would use a worker pool.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })

	if err := h.manager.SaveAndQuit(context.Background()); err != nil {
		t.Fatalf("SaveAndQuit failed: %v", err)
	}
	if got := h.manager.State().Status; got != StatusFinished {
		t.Fatalf("expected finished, got %s", got)
	}
	if h.vendor.stops() != 1 || h.shell.backs() != 1 {
		t.Fatalf("expected one stop and one back, got %d and %d", h.vendor.stops(), h.shell.backs())
	}
	saves := h.progress.savedInputs()
	if len(saves) != 1 || saves[0].IsCompleted {
		t.Fatalf("expected one incomplete save, got %+v", saves)
	}
}

func TestErrorEvent_ClearsFlagsThenRetry(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.vendor.say("assistant", "Let's begin.")
	h.vendor.emit(voice.VendorEvent{Name: voice.EventSpeechStart})
	h.vendor.emit(voice.VendorEvent{Name: voice.EventMessage, Message: &voice.VendorMessage{
		Type: voice.MessageTypeTranscript, TranscriptType: voice.TranscriptTypePartial, Role: "user", Transcript: "I thi",
	}})
	waitFor(t, "streaming turn", func() bool { return h.manager.State().Streaming != nil })

	h.vendor.emit(voice.VendorEvent{Name: voice.EventError, Err: errors.New("network lost")})
	waitFor(t, "error status", func() bool { return h.manager.State().Status == StatusError })

	st := h.manager.State()
	if st.Speaking || st.Listening || st.Streaming != nil {
		t.Fatalf("expected flags cleared, got %+v", st)
	}
	if n := h.notifier.last(); n.Message != messageVendorError {
		t.Fatalf("unexpected notice: %+v", n)
	}
	sessionID := st.SessionID

	if err := h.manager.RetryAfterError(); err != nil {
		t.Fatalf("RetryAfterError failed: %v", err)
	}
	st = h.manager.State()
	if st.Status != StatusInactive || len(st.Transcript) != 0 || st.SessionID != sessionID {
		t.Fatalf("unexpected state after retry: %+v", st)
	}
	if err := h.manager.RetryAfterError(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second retry, got %v", err)
	}
}

func TestLoadProgress_NoProgress(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.loadErr = progress.ErrNoProgress

	if err := h.manager.LoadProgress(context.Background()); err != nil {
		t.Fatalf("LoadProgress failed: %v", err)
	}
	if n := h.notifier.last(); n.Message != messageNoProgress {
		t.Fatalf("unexpected notice: %+v", n)
	}
	if got := h.manager.State(); got.Status != StatusInactive || got.TimeRemainingSeconds != 30*60 {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestLoadProgress_FailureStartsFresh(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.loadErr = errors.New("connection refused")

	if err := h.manager.LoadProgress(context.Background()); err != nil {
		t.Fatalf("LoadProgress failed: %v", err)
	}
	if n := h.notifier.last(); n.Message != messageLoadFailed {
		t.Fatalf("unexpected notice: %+v", n)
	}
}

func TestLoadProgress_RejectedWhileActive(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)

	if err := h.manager.LoadProgress(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCheckExistingProgress(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.progress.snapshot = &progress.Snapshot{InterviewID: "iv-1", SessionID: "s1", TimeRemainingSeconds: 600}

	if !h.manager.CheckExistingProgress(context.Background()) {
		t.Fatal("expected existing progress")
	}
	st := h.manager.State()
	if !st.HasExistingProgress || st.TimeRemainingSeconds != 30*60 {
		t.Fatalf("expected flag only, got %+v", st)
	}
}

func TestEndCall_DuringConnecting(t *testing.T) {
	h := newHarness(t, testDefinition())
	if err := h.manager.StartCall(context.Background()); err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}
	if got := h.manager.State().Status; got != StatusConnecting {
		t.Fatalf("expected connecting, got %s", got)
	}

	if err := h.manager.EndCall(context.Background()); err != nil {
		t.Fatalf("EndCall failed: %v", err)
	}
	if got := h.manager.State().Status; got != StatusFinished {
		t.Fatalf("expected finished, got %s", got)
	}

	h.vendor.emit(voice.VendorEvent{Name: voice.EventCallStart})
	time.Sleep(20 * time.Millisecond)
	if got := h.manager.State().Status; got != StatusFinished {
		t.Fatalf("late call start changed status to %s", got)
	}
	if h.clock.activeTickers() != 0 {
		t.Fatal("expected no tickers for a call that never became active")
	}
}

func TestVendorCallEnd_SavesIncompleteProgress(t *testing.T) {
	h := newHarness(t, testDefinition())
	h.startActive(t)
	h.vendor.say("assistant", "Let's begin.")
	waitFor(t, "turn", func() bool { return len(h.manager.State().Transcript) == 1 })

	h.vendor.emit(voice.VendorEvent{Name: voice.EventCallEnd})
	waitFor(t, "save after call end", func() bool { return len(h.progress.savedInputs()) == 1 })
	if got := h.manager.State().Status; got != StatusFinished {
		t.Fatalf("expected finished, got %s", got)
	}
	if h.progress.savedInputs()[0].IsCompleted {
		t.Fatal("expected vendor hang-up to save incomplete progress")
	}
}

func TestToggleMute(t *testing.T) {
	h := newHarness(t, testDefinition())
	if !h.manager.ToggleMute() {
		t.Fatal("expected muted")
	}
	if n := h.notifier.last(); n.Message != messageMicrophoneMuted {
		t.Fatalf("unexpected notice: %+v", n)
	}
	if len(h.vendor.muteCalls) != 0 {
		t.Fatal("expected no vendor call while inactive")
	}
	h.startActive(t)
	if h.manager.ToggleMute() {
		t.Fatal("expected unmuted")
	}
	if n := h.notifier.last(); n.Message != messageMicrophoneUnmuted {
		t.Fatalf("unexpected notice: %+v", n)
	}
	h.vendor.mu.Lock()
	calls := append([]bool(nil), h.vendor.muteCalls...)
	h.vendor.mu.Unlock()
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Fatalf("unexpected mute calls: %v", calls)
	}
}

func TestExitInterception(t *testing.T) {
	h := newHarness(t, testDefinition())
	if h.manager.RequestExit() {
		t.Fatal("expected exit allowed while inactive")
	}
	h.startActive(t)

	if !h.manager.RequestExit() {
		t.Fatal("expected exit intercepted while active")
	}
	h.manager.CancelExit()
	if h.manager.State().ExitPending {
		t.Fatal("expected pending exit cleared")
	}
	if err := h.manager.ConfirmExit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState without pending exit, got %v", err)
	}

	h.manager.RequestExit()
	if err := h.manager.ConfirmExit(context.Background()); err != nil {
		t.Fatalf("ConfirmExit failed: %v", err)
	}
	if h.shell.backs() != 1 {
		t.Fatal("expected navigation after confirmed exit")
	}
}

func TestNewManager_NormalizesDuration(t *testing.T) {
	def := testDefinition()
	def.DurationMinutes = 0
	h := newHarness(t, def)
	if got := h.manager.State().TotalSeconds; got != 30*60 {
		t.Fatalf("expected default duration, got %d", got)
	}

	def.DurationMinutes = 600
	h = newHarness(t, def)
	if got := h.manager.State().TotalSeconds; got != 240*60 {
		t.Fatalf("expected capped duration, got %d", got)
	}
}
