package modules

import (
	"context"

	"github.com/riverqueue/river"

	"aibos-vmp/core/internal/api/handlers"
	"aibos-vmp/core/internal/caseengine"
	"aibos-vmp/core/internal/evidence"
	"aibos-vmp/core/internal/messaging"
)

// CaseModule wires the case lifecycle, evidence, and messaging services
// (spec 4.G/4.H/4.I) into the composition root.
type CaseModule struct {
	CaseEngine *caseengine.Service
	Evidence   *evidence.Service
	Messaging  *messaging.Service
}

// NewCaseModule constructs a CaseModule. classifier may be nil: messaging's
// AI-hint follow-up is best-effort and is simply skipped when absent.
func NewCaseModule(infra *Infrastructure, classifier messaging.Classifier) *CaseModule {
	return &CaseModule{
		CaseEngine: caseengine.NewService(infra.EntClient, infra.Chain, infra.Triggers),
		Evidence:   evidence.NewService(infra.EntClient, infra.Storage, infra.Chain),
		Messaging:  messaging.NewService(infra.EntClient, infra.Pools, classifier),
	}
}

func (m *CaseModule) Name() string { return "case" }

func (m *CaseModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.CaseEngine = m.CaseEngine
	deps.Evidence = m.Evidence
	deps.Messaging = m.Messaging
}

func (m *CaseModule) RegisterWorkers(workers *river.Workers) {}

func (m *CaseModule) Shutdown(ctx context.Context) error { return nil }

var _ Module = (*CaseModule)(nil)
