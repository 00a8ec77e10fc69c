package progress

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/retry"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (progress.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		policy := retry.Policy{
			MaxAttempts: c.RetryMaxAttempts,
			Backoff:     retry.Exponential(c.RetryBaseDelay()),
		}
		return NewHTTPClient(c.ProgressAPIURL, c.ProgressAPIToken, policy), nil
	})
}
