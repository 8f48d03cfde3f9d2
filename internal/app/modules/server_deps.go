package modules

import (
	"aibos-vmp/core/internal/api/handlers"
	"aibos-vmp/core/internal/api/middleware"
	"aibos-vmp/core/internal/config"
	"aibos-vmp/core/internal/principal"
)

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(cfg *config.Config, infra *Infrastructure, mods []Module) handlers.ServerDeps {
	jwtCfg := middleware.JWTConfig{
		SigningKey:        []byte(cfg.Security.SessionSecret),
		Issuer:            "aibos-vmp",
		ExpiresIn:         cfg.Session.Lifetime,
		RevocationChecker: middleware.NewEntSessionRevocationChecker(infra.EntClient),
	}

	deps := handlers.ServerDeps{
		EntClient:         infra.EntClient,
		Pool:              infra.Pool,
		JWTCfg:            jwtCfg,
		RiverClient:       infra.RiverClient,
		Chain:             infra.Chain,
		Inbox:             infra.Inbox,
		PrincipalResolver: principal.NewResolver(infra.EntClient, jwtCfg),
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}
