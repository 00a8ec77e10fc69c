package session

import (
	"context"
	"time"

	"github.com/foxseedlab/mensetsu/internal/voice"
)

type User struct {
	ID string
}

type VoiceSession interface {
	Start(ctx context.Context, sc voice.StartContext) (*voice.Subscription, error)
	Stop(ctx context.Context) error
	SetMuted(muted bool) error
}

// Shell is the host presentation: navigation and immersive (fullscreen) mode.
type Shell interface {
	EnterImmersive()
	ExitImmersive()
	Back()
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

type noopShell struct{}

func (noopShell) EnterImmersive() {}
func (noopShell) ExitImmersive()  {}
func (noopShell) Back()           {}

type noopNotifier struct{}

func (noopNotifier) Notify(Notice) {}
