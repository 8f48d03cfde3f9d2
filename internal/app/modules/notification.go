package modules

import (
	"context"

	"github.com/riverqueue/river"

	"aibos-vmp/core/internal/api/handlers"
	"aibos-vmp/core/internal/jobs"
)

// NotificationModule wires the in-app notification inbox (spec 4.J) and
// registers its retention cleanup job.
type NotificationModule struct {
	infra *Infrastructure
}

// NewNotificationModule constructs a NotificationModule.
func NewNotificationModule(infra *Infrastructure) *NotificationModule {
	return &NotificationModule{infra: infra}
}

func (m *NotificationModule) Name() string { return "notification" }

func (m *NotificationModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Inbox = m.infra.Inbox
	deps.Sender = m.infra.Sender
	deps.Triggers = m.infra.Triggers
}

func (m *NotificationModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewNotificationCleanupWorker(m.infra.EntClient, jobs.DefaultNotificationRetention))
}

func (m *NotificationModule) Shutdown(ctx context.Context) error { return nil }

var _ Module = (*NotificationModule)(nil)
