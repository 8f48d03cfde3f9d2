package modules

import (
	"context"

	"github.com/riverqueue/river"

	"aibos-vmp/core/internal/api/handlers"
	"aibos-vmp/core/internal/tenant"
)

// TenantModule wires tenant/user/relationship/invite lifecycle (spec 4.F)
// into the composition root.
type TenantModule struct {
	Tenant *tenant.Service
}

// NewTenantModule constructs a TenantModule.
func NewTenantModule(infra *Infrastructure) *TenantModule {
	return &TenantModule{
		Tenant: tenant.NewService(
			infra.EntClient,
			infra.Config.Security.KDFWorkFactor,
			infra.Config.Invite.TTLHours,
		),
	}
}

func (m *TenantModule) Name() string { return "tenant" }

func (m *TenantModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Tenant = m.Tenant
}

func (m *TenantModule) RegisterWorkers(workers *river.Workers) {}

func (m *TenantModule) Shutdown(ctx context.Context) error { return nil }

var _ Module = (*TenantModule)(nil)
