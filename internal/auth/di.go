package auth

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Authenticator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewAuthenticator(cfg.JWTSecret), nil
	})
}
