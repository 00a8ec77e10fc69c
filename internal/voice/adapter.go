package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/transcript"
)

var (
	ErrVendor         = errors.New("voice vendor error")
	ErrAlreadyStarted = errors.New("voice session already started")
)

const subscriptionBuffer = 64

type Adapter struct {
	vendor Vendor
	preset AssistantConfig
	now    func() time.Time

	mu      sync.Mutex
	current *Subscription
}

func NewAdapter(vendor Vendor, preset AssistantConfig) *Adapter {
	return &Adapter{vendor: vendor, preset: preset, now: time.Now}
}

// Start subscribes to every vendor event before starting the call so no
// early event is missed. On failure the subscription is already released.
func (a *Adapter) Start(ctx context.Context, sc StartContext) (*Subscription, error) {
	a.mu.Lock()
	if a.current != nil {
		a.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	sub := newSubscription(a.vendor, a.now)
	a.current = sub
	a.mu.Unlock()

	assistant := a.preset.ForSession(sc)
	opts := StartOptions{VariableValues: sc.variableValues()}
	if err := guard(func() error { return a.vendor.Start(ctx, assistant, opts) }); err != nil {
		a.release(sub)
		return nil, fmt.Errorf("%w: start: %v", ErrVendor, err)
	}
	slog.Info("voice session started", "remaining_minutes", sc.RemainingMinutes, "resumed", sc.PriorTranscriptText != "")
	return sub, nil
}

// Stop ends the vendor call if one is open. Calling it with nothing open is a no-op.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	sub := a.current
	a.current = nil
	a.mu.Unlock()
	if sub == nil {
		return nil
	}
	defer sub.Close()
	if err := guard(func() error { return a.vendor.Stop(ctx) }); err != nil {
		return fmt.Errorf("%w: stop: %v", ErrVendor, err)
	}
	return nil
}

func (a *Adapter) SetMuted(muted bool) error {
	a.mu.Lock()
	open := a.current != nil
	a.mu.Unlock()
	if !open {
		return nil
	}
	if err := guard(func() error { return a.vendor.SetMuted(muted) }); err != nil {
		return fmt.Errorf("%w: mute: %v", ErrVendor, err)
	}
	return nil
}

func (a *Adapter) release(sub *Subscription) {
	a.mu.Lock()
	if a.current == sub {
		a.current = nil
	}
	a.mu.Unlock()
	sub.Close()
}

func guard(op func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vendor panic: %v", r)
		}
	}()
	return op()
}

// Subscription delivers translated vendor events until Close. Close removes
// every listener registered for it and is safe to call more than once.
type Subscription struct {
	vendor    Vendor
	now       func() time.Time
	events    chan Event
	done      chan struct{}
	once      sync.Once
	listeners map[EventName]*subscriptionListener
}

func newSubscription(vendor Vendor, now func() time.Time) *Subscription {
	s := &Subscription{
		vendor:    vendor,
		now:       now,
		events:    make(chan Event, subscriptionBuffer),
		done:      make(chan struct{}),
		listeners: make(map[EventName]*subscriptionListener, len(AllEventNames)),
	}
	for _, name := range AllEventNames {
		l := &subscriptionListener{sub: s}
		s.listeners[name] = l
		vendor.On(name, l)
	}
	return s
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		for name, l := range s.listeners {
			s.vendor.Off(name, l)
		}
		close(s.done)
	})
}

func (s *Subscription) emit(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

type subscriptionListener struct {
	sub *Subscription
}

func (l *subscriptionListener) Handle(ev VendorEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in voice listener", "event", string(ev.Name), "panic", r)
			l.sub.emit(Event{Kind: KindError, Err: fmt.Errorf("%w: listener panic: %v", ErrVendor, r)})
		}
	}()
	if out, ok := translate(ev, l.sub.now()); ok {
		l.sub.emit(out)
	}
}

func translate(ev VendorEvent, now time.Time) (Event, bool) {
	switch ev.Name {
	case EventCallStart:
		return Event{Kind: KindCallStarted}, true
	case EventCallEnd:
		return Event{Kind: KindCallEnded}, true
	case EventSpeechStart:
		return Event{Kind: KindSpeechStarted}, true
	case EventSpeechEnd:
		return Event{Kind: KindSpeechEnded}, true
	case EventError:
		err := ev.Err
		if err == nil {
			err = errors.New("unspecified vendor error")
		}
		return Event{Kind: KindError, Err: fmt.Errorf("%w: %v", ErrVendor, err)}, true
	case EventMessage:
		return translateMessage(ev.Message, now)
	default:
		return Event{}, false
	}
}

func translateMessage(msg *VendorMessage, now time.Time) (Event, bool) {
	if msg == nil || msg.Type != MessageTypeTranscript {
		return Event{}, false
	}
	turn, err := transcript.NewTurn(msg.Role, msg.Transcript, now)
	if err != nil {
		slog.Warn("dropping malformed transcript event", "role", msg.Role, "transcript_type", msg.TranscriptType)
		return Event{}, false
	}
	switch msg.TranscriptType {
	case TranscriptTypePartial:
		return Event{Kind: KindTranscriptPartial, Turn: &turn}, true
	case TranscriptTypeFinal:
		return Event{Kind: KindTranscriptFinal, Turn: &turn}, true
	default:
		slog.Warn("dropping transcript event with unknown type", "transcript_type", msg.TranscriptType)
		return Event{}, false
	}
}
