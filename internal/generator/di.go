package generator

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/retry"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Generator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[llm.Client](i)
		return New(client, retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     retry.Exponential(cfg.RetryBaseDelay()),
		}), nil
	})
}
