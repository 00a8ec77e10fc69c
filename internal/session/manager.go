package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/timebudget"
	"github.com/foxseedlab/mensetsu/internal/transcript"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

const (
	countdownInterval       = time.Second
	defaultAutosaveInterval = 30 * time.Second
	backgroundSaveTimeout   = 15 * time.Second
)

type Deps struct {
	Voice            VoiceSession
	Progress         progress.Client
	Shell            Shell
	Notifier         Notifier
	Clock            Clock
	AutosaveInterval time.Duration
	Bounds           timebudget.Bounds
}

// Manager drives one interview attempt for one user. Every transition out
// of a live state bumps epoch and cancels the call loop, so results that
// belong to an older call are discarded.
type Manager struct {
	voice            VoiceSession
	progress         progress.Client
	shell            Shell
	notifier         Notifier
	clock            Clock
	autosaveInterval time.Duration

	user         User
	def          interview.Definition
	totalMinutes float64
	totalSeconds int

	mu                  sync.Mutex
	status              Status
	countdown           *timebudget.Countdown
	acc                 *transcript.Accumulator
	sessionID           string
	muted               bool
	speaking            bool
	listening           bool
	hasExistingProgress bool
	exitPending         bool
	lastSavedAt         time.Time
	epoch               uint64
	stopLoop            context.CancelFunc

	// completed is set once the attempt has been finished as completed.
	// saveSeq numbers snapshots as they are taken; writtenSeq is the newest
	// one the backend accepted.
	completed  bool
	saveSeq    uint64
	writtenSeq uint64

	// saveMu serializes every write to the progress backend. bgCtx is
	// cancelled when the completion save starts so in-flight autosaves give up.
	saveMu   sync.Mutex
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// snapshot is a SaveInput stamped with the order it was taken in.
type snapshot struct {
	input progress.SaveInput
	seq   uint64
}

type View struct {
	Status               Status
	TimeText             string
	TimeRemainingSeconds int
	TotalSeconds         int
	Urgency              timebudget.Urgency
	Transcript           []transcript.Turn
	Streaming            *transcript.Turn
	Muted                bool
	Speaking             bool
	Listening            bool
	SessionID            string
	HasExistingProgress  bool
	ExitPending          bool
	LastSavedAt          time.Time
}

func NewManager(deps Deps, user User, def interview.Definition) *Manager {
	if deps.Shell == nil {
		deps.Shell = noopShell{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.AutosaveInterval <= 0 {
		deps.AutosaveInterval = defaultAutosaveInterval
	}
	if deps.Bounds == (timebudget.Bounds{}) {
		deps.Bounds = timebudget.DefaultBounds()
	}
	minutes := deps.Bounds.Normalize(def.DurationMinutes)
	total := timebudget.TotalSeconds(minutes)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Manager{
		voice:            deps.Voice,
		progress:         deps.Progress,
		shell:            deps.Shell,
		notifier:         deps.Notifier,
		clock:            deps.Clock,
		autosaveInterval: deps.AutosaveInterval,
		user:             user,
		def:              def,
		totalMinutes:     minutes,
		totalSeconds:     total,
		status:           StatusInactive,
		countdown:        timebudget.NewCountdown(total),
		acc:              transcript.NewAccumulator(nil),
		sessionID:        progress.NewSessionID(),
		bgCtx:            bgCtx,
		bgCancel:         bgCancel,
	}
}

func (m *Manager) State() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.countdown.Remaining()
	return View{
		Status:               m.status,
		TimeText:             timebudget.FormatTime(float64(remaining)),
		TimeRemainingSeconds: remaining,
		TotalSeconds:         m.totalSeconds,
		Urgency:              timebudget.Classify(remaining, m.totalSeconds),
		Transcript:           m.acc.Turns(),
		Streaming:            m.acc.Streaming(),
		Muted:                m.muted,
		Speaking:             m.speaking,
		Listening:            m.listening,
		SessionID:            m.sessionID,
		HasExistingProgress:  m.hasExistingProgress,
		ExitPending:          m.exitPending,
		LastSavedAt:          m.lastSavedAt,
	}
}

func (m *Manager) StartCall(ctx context.Context) error {
	m.mu.Lock()
	if strings.TrimSpace(m.def.ID) == "" {
		m.mu.Unlock()
		m.notify(NoticeError, messageMissingInterview)
		return fmt.Errorf("%w: interview id is missing", ErrValidation)
	}
	if m.status != StatusInactive {
		status := m.status
		m.mu.Unlock()
		slog.Info("ignoring start request", "interview_id", m.def.ID, "status", string(status))
		return fmt.Errorf("%w: status is %s", ErrNotInactive, status)
	}
	if m.countdown.Remaining() <= 0 {
		m.mu.Unlock()
		m.notify(NoticeError, messageNoTimeRemaining)
		return fmt.Errorf("%w: no time remaining", ErrValidation)
	}
	m.status = StatusConnecting
	m.epoch++
	epoch := m.epoch
	muted := m.muted
	sc := voice.BuildStartContext(m.acc.Turns(), m.countdown.Remaining(), m.def.Questions)
	m.mu.Unlock()

	slog.Info("starting interview call", "interview_id", m.def.ID, "user_id", m.user.ID, "session_id", m.sessionID, "remaining_minutes", sc.RemainingMinutes)
	m.shell.EnterImmersive()

	sub, err := m.voice.Start(ctx, sc)
	if err != nil {
		m.mu.Lock()
		if m.epoch == epoch && m.status == StatusConnecting {
			m.failLocked()
		}
		m.mu.Unlock()
		slog.Error("failed to start voice session", "error", err, "interview_id", m.def.ID)
		m.shell.ExitImmersive()
		m.notify(NoticeError, messageStartFailed)
		return fmt.Errorf("start voice session: %w", err)
	}

	m.mu.Lock()
	if m.epoch != epoch || m.status != StatusConnecting {
		m.mu.Unlock()
		slog.Info("call left connecting before vendor start returned; releasing", "interview_id", m.def.ID)
		sub.Close()
		m.stopVoice(ctx)
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	m.stopLoop = cancel
	m.mu.Unlock()

	if muted {
		if err := m.voice.SetMuted(true); err != nil {
			slog.Warn("failed to apply mute to new call", "error", err)
		}
	}
	go m.run(loopCtx, sub, epoch)
	return nil
}

// EndCall finishes a live call and records it as completed.
func (m *Manager) EndCall(ctx context.Context) error {
	m.mu.Lock()
	if !m.status.live() {
		m.mu.Unlock()
		return nil
	}
	snap := m.finishLocked(true)
	m.mu.Unlock()
	slog.Info("interview ended by user", "interview_id", m.def.ID, "session_id", snap.input.SessionID)
	return m.complete(ctx, snap)
}

// SaveAndQuit persists progress first; the call is only torn down and the
// user only navigated away once the save succeeded. It is only allowed while
// a call is live.
func (m *Manager) SaveAndQuit(ctx context.Context) error {
	m.mu.Lock()
	if !m.status.live() {
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot save and quit while %s", ErrInvalidState, status)
	}
	snap := m.snapshotLocked(false)
	m.exitPending = false
	m.mu.Unlock()

	written, err := m.persist(ctx, snap)
	if err != nil {
		slog.Error("save and quit failed", "error", err, "interview_id", m.def.ID, "session_id", snap.input.SessionID)
		m.notify(NoticeError, messageSaveFailed)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	m.mu.Lock()
	if !written && m.completed {
		m.mu.Unlock()
		slog.Info("save and quit dropped; the interview was completed meanwhile", "interview_id", m.def.ID)
		return fmt.Errorf("%w: interview already completed", ErrInvalidState)
	}
	wasLive := m.status.live()
	if wasLive {
		m.finishLocked(false)
	}
	m.mu.Unlock()

	if wasLive {
		m.stopVoice(ctx)
	}
	m.shell.ExitImmersive()
	m.notify(NoticeSuccess, messageProgressSaved)
	m.shell.Back()
	slog.Info("progress saved and session left", "interview_id", m.def.ID, "session_id", snap.input.SessionID, "time_remaining", snap.input.TimeRemainingSeconds)
	return nil
}

// LoadProgress is only honored from Inactive; a call while a load is
// already running is coalesced into it.
func (m *Manager) LoadProgress(ctx context.Context) error {
	m.mu.Lock()
	switch m.status {
	case StatusInactive:
	case StatusLoadingProgress:
		m.mu.Unlock()
		return nil
	default:
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot load progress while %s", ErrInvalidState, status)
	}
	m.status = StatusLoadingProgress
	m.mu.Unlock()

	snap, err := m.progress.Load(ctx, m.def.ID)
	if err == nil && snap == nil {
		err = progress.ErrNoProgress
	}

	m.mu.Lock()
	if err != nil {
		m.status = StatusInactive
		m.mu.Unlock()
		if errors.Is(err, progress.ErrNoProgress) {
			m.notify(NoticeInfo, messageNoProgress)
			return nil
		}
		slog.Warn("failed to load progress; starting fresh", "error", err, "interview_id", m.def.ID)
		m.notify(NoticeError, messageLoadFailed)
		return nil
	}
	m.applySnapshotLocked(snap)
	turns, remaining, sessionID := m.acc.Len(), m.countdown.Remaining(), m.sessionID
	m.status = StatusInactive
	m.mu.Unlock()

	slog.Info("progress loaded", "interview_id", m.def.ID, "session_id", sessionID, "turns", turns, "time_remaining", remaining)
	m.notify(NoticeSuccess, progressLoadedMessage(turns, remaining))
	return nil
}

// CheckExistingProgress only raises a flag; it never applies the snapshot.
func (m *Manager) CheckExistingProgress(ctx context.Context) bool {
	m.mu.Lock()
	if m.status != StatusInactive {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	snap, err := m.progress.Load(ctx, m.def.ID)
	if err != nil {
		if !errors.Is(err, progress.ErrNoProgress) {
			slog.Warn("failed to check existing progress", "error", err, "interview_id", m.def.ID)
		}
		return false
	}
	found := snap != nil && !snap.IsCompleted

	m.mu.Lock()
	m.hasExistingProgress = found
	m.mu.Unlock()
	if found {
		m.notify(NoticeInfo, messageExistingProgress)
	}
	return found
}

func (m *Manager) ToggleMute() bool {
	m.mu.Lock()
	m.muted = !m.muted
	muted := m.muted
	live := m.status.live()
	m.mu.Unlock()
	if live {
		if err := m.voice.SetMuted(muted); err != nil {
			slog.Warn("failed to toggle mute", "error", err, "muted", muted)
		}
	}
	if muted {
		m.notify(NoticeInfo, messageMicrophoneMuted)
	} else {
		m.notify(NoticeInfo, messageMicrophoneUnmuted)
	}
	return muted
}

// RetryAfterError clears the live buffers. The persisted snapshot is left alone.
func (m *Manager) RetryAfterError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusError {
		return fmt.Errorf("%w: retry requires error state, got %s", ErrInvalidState, m.status)
	}
	m.acc.Reset()
	m.speaking = false
	m.listening = false
	m.status = StatusInactive
	return nil
}

// RequestExit reports whether leaving needs confirmation.
func (m *Manager) RequestExit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusActive {
		return false
	}
	m.exitPending = true
	return true
}

func (m *Manager) ConfirmExit(ctx context.Context) error {
	m.mu.Lock()
	pending := m.exitPending
	m.mu.Unlock()
	if !pending {
		return fmt.Errorf("%w: no exit pending", ErrInvalidState)
	}
	return m.SaveAndQuit(ctx)
}

func (m *Manager) CancelExit() {
	m.mu.Lock()
	pending := m.exitPending
	m.exitPending = false
	m.mu.Unlock()
	if pending {
		m.shell.EnterImmersive()
	}
}

func (m *Manager) run(ctx context.Context, sub *voice.Subscription, epoch uint64) {
	defer sub.Close()
	var countdown, autosave Ticker
	defer func() {
		if countdown != nil {
			countdown.Stop()
		}
		if autosave != nil {
			autosave.Stop()
		}
	}()
	var tickC, saveC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Events():
			started, done := m.handleEvent(ctx, epoch, ev)
			if done {
				return
			}
			if started != nil {
				countdown, autosave = started.countdown, started.autosave
				tickC, saveC = countdown.C(), autosave.C()
			}
		case <-tickC:
			if m.onTick(ctx, epoch) {
				return
			}
		case <-saveC:
			m.onAutosave(epoch)
		}
	}
}

type activeTickers struct {
	countdown Ticker
	autosave  Ticker
}

func (m *Manager) handleEvent(ctx context.Context, epoch uint64, ev voice.Event) (*activeTickers, bool) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return nil, true
	}
	switch ev.Kind {
	case voice.KindCallStarted:
		if m.status != StatusConnecting {
			m.mu.Unlock()
			return nil, false
		}
		m.status = StatusActive
		m.listening = true
		// Tickers exist before Active is observable.
		t := &activeTickers{
			countdown: m.clock.NewTicker(countdownInterval),
			autosave:  m.clock.NewTicker(m.autosaveInterval),
		}
		m.mu.Unlock()
		slog.Info("interview call active", "interview_id", m.def.ID, "session_id", m.sessionID)
		return t, false

	case voice.KindCallEnded:
		if !m.status.live() {
			m.mu.Unlock()
			return nil, true
		}
		snap := m.finishLocked(false)
		m.mu.Unlock()
		slog.Info("vendor ended the call", "interview_id", m.def.ID, "session_id", snap.input.SessionID)
		m.stopVoice(ctx)
		m.shell.ExitImmersive()
		if len(snap.input.Transcript) > 0 {
			m.saveInBackground(snap, "call end")
		}
		return nil, true

	case voice.KindSpeechStarted:
		if m.status.live() {
			m.speaking = true
			m.listening = false
		}
	case voice.KindSpeechEnded:
		if m.status.live() {
			m.speaking = false
			m.listening = true
		}
	case voice.KindTranscriptPartial:
		if m.status.live() && ev.Turn != nil {
			m.acc.SetStreaming(ev.Turn)
		}
	case voice.KindTranscriptFinal:
		if m.status.live() && ev.Turn != nil {
			m.acc.AppendFinal(*ev.Turn)
		}

	case voice.KindError:
		if !m.status.live() {
			m.mu.Unlock()
			return nil, false
		}
		m.failLocked()
		m.mu.Unlock()
		slog.Error("voice session error", "error", ev.Err, "interview_id", m.def.ID)
		m.stopVoice(ctx)
		m.shell.ExitImmersive()
		m.notify(NoticeError, messageVendorError)
		return nil, true
	}
	m.mu.Unlock()
	return nil, false
}

func (m *Manager) onTick(ctx context.Context, epoch uint64) bool {
	m.mu.Lock()
	if m.epoch != epoch || m.status != StatusActive {
		m.mu.Unlock()
		return false
	}
	if _, expired := m.countdown.Tick(); !expired {
		m.mu.Unlock()
		return false
	}
	snap := m.finishLocked(true)
	m.mu.Unlock()

	slog.Info("time budget exhausted", "interview_id", m.def.ID, "session_id", snap.input.SessionID)
	// ctx is the call loop's and was cancelled by finishLocked.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundSaveTimeout)
	defer cancel()
	_ = m.complete(saveCtx, snap)
	return true
}

func (m *Manager) onAutosave(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch || m.status != StatusActive || m.acc.Len() == 0 {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked(false)
	m.mu.Unlock()
	m.saveInBackground(snap, "autosave")
}

// saveInBackground is best-effort: failures are logged and the next tick
// tries again. It never changes Status.
func (m *Manager) saveInBackground(snap snapshot, reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(m.bgCtx, backgroundSaveTimeout)
		defer cancel()
		written, err := m.persist(ctx, snap)
		if err != nil {
			slog.Warn("background progress save failed", "error", err, "reason", reason, "interview_id", m.def.ID, "session_id", snap.input.SessionID)
			return
		}
		if !written {
			slog.Debug("background progress save dropped as stale", "reason", reason, "interview_id", m.def.ID, "seq", snap.seq)
			return
		}
		slog.Debug("background progress saved", "reason", reason, "interview_id", m.def.ID, "turns", len(snap.input.Transcript))
	}()
}

// persist writes one snapshot. An in-progress snapshot is dropped, reporting
// false, once the attempt is completed or a newer snapshot was written.
func (m *Manager) persist(ctx context.Context, snap snapshot) (bool, error) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	stale := !snap.input.IsCompleted && (m.completed || snap.seq < m.writtenSeq)
	m.mu.Unlock()
	if stale {
		return false, nil
	}
	if err := m.progress.Save(ctx, m.def.ID, snap.input); err != nil {
		return false, err
	}
	m.mu.Lock()
	m.writtenSeq = snap.seq
	m.lastSavedAt = m.clock.Now()
	m.mu.Unlock()
	return true, nil
}

// complete cancels outstanding autosaves and then writes the completion
// snapshot, so it is always the last write of the attempt.
func (m *Manager) complete(ctx context.Context, snap snapshot) error {
	m.bgCancel()
	m.stopVoice(ctx)
	m.shell.ExitImmersive()
	if _, err := m.persist(ctx, snap); err != nil {
		slog.Error("failed to save completed interview", "error", err, "interview_id", m.def.ID, "session_id", snap.input.SessionID)
		m.notify(NoticeError, messageCompletionSaveFailed)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	m.notify(NoticeSuccess, messageCompleted)
	return nil
}

func (m *Manager) stopVoice(ctx context.Context) {
	if err := m.voice.Stop(ctx); err != nil {
		slog.Warn("voice stop failed", "error", err, "interview_id", m.def.ID)
	}
}

func (m *Manager) finishLocked(completed bool) snapshot {
	m.status = StatusFinished
	if completed {
		m.completed = true
	}
	m.leaveLiveLocked()
	return m.snapshotLocked(completed)
}

func (m *Manager) failLocked() {
	m.status = StatusError
	m.leaveLiveLocked()
}

func (m *Manager) leaveLiveLocked() {
	m.speaking = false
	m.listening = false
	m.exitPending = false
	m.acc.SetStreaming(nil)
	m.epoch++
	if m.stopLoop != nil {
		m.stopLoop()
		m.stopLoop = nil
	}
}

func (m *Manager) snapshotLocked(completed bool) snapshot {
	m.saveSeq++
	return snapshot{
		seq: m.saveSeq,
		input: progress.SaveInput{
			SessionID:            m.sessionID,
			TimeRemainingSeconds: m.countdown.Remaining(),
			Transcript:           m.acc.Turns(),
			TotalDurationMinutes: m.totalMinutes,
			IsCompleted:          completed,
		},
	}
}

func (m *Manager) applySnapshotLocked(snap *progress.Snapshot) {
	remaining := snap.TimeRemainingSeconds
	if remaining < 0 {
		remaining = 0
	}
	m.countdown.Reset(remaining)
	m.acc.Replace(snap.Transcript)
	if snap.SessionID != "" {
		m.sessionID = snap.SessionID
	}
	m.hasExistingProgress = false
}

func (m *Manager) notify(level NoticeLevel, message string) {
	m.notifier.Notify(Notice{Level: level, Message: message})
}
