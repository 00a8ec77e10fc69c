package voice

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*voice.Adapter, error) {
		c := do.MustInvoke[*config.Config](i)
		preset, err := voice.DefaultPreset()
		if err != nil {
			return nil, err
		}
		return voice.NewAdapter(NewWebsocketVendor(c.VoiceVendorURL, c.VoiceVendorAPIKey), preset), nil
	})
	do.Provide(injector, func(i do.Injector) (session.VoiceSession, error) {
		return do.MustInvoke[*voice.Adapter](i), nil
	})
}
