package server

import (
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/generator"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		repo := do.MustInvoke[repository.Repository](i)
		gen := do.MustInvoke[*generator.Generator](i)
		authenticator := do.MustInvoke[*auth.Authenticator](i)
		return New(repo, gen, authenticator), nil
	})
}
