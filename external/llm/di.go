package llm

import (
	"fmt"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (llm.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		provider, model, err := llm.ParseModel(cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		var opts []Option
		if cfg.LLMBaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.LLMBaseURL))
		}
		client, err := NewClient(provider, cfg.LLMAPIKey, model, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		return client, nil
	})
}
