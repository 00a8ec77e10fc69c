package session

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/timebudget"
	"github.com/samber/do/v2"
)

// Factory builds one Manager per interview attempt. Shell and Notifier are
// per-attempt because they belong to the surface that opened it.
type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) *Factory {
	return &Factory{deps: deps}
}

func (f *Factory) New(user User, def interview.Definition, shell Shell, notifier Notifier) *Manager {
	deps := f.deps
	deps.Shell = shell
	deps.Notifier = notifier
	return NewManager(deps, user, def)
}

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Factory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		voiceSession := do.MustInvoke[VoiceSession](i)
		progressClient := do.MustInvoke[progress.Client](i)
		return NewFactory(Deps{
			Voice:            voiceSession,
			Progress:         progressClient,
			Clock:            RealClock(),
			AutosaveInterval: cfg.AutosaveInterval(),
			Bounds: timebudget.Bounds{
				DefaultMinutes: float64(cfg.DefaultDurationMin),
				MaxMinutes:     float64(cfg.MaxDurationMin),
			},
		}), nil
	})
}
