package service

import (
	"context"

	"geauxclean/internal/domain"
	"geauxclean/internal/export"

	"github.com/rs/zerolog"
)

// AdminDashboard groups the task board and schedule panel under one
// lifecycle. Teardown closes both feed subscriptions; leaking either
// keeps a change-feed connection open across navigation. Reports serves
// the dashboard's export action and has no lifecycle of its own.
type AdminDashboard struct {
	Board    *TaskBoard
	Schedule *SchedulePanel
	Reports  *export.Reporter
}

func NewAdminDashboard(store domain.Store, feed domain.ChangeFeed, notifier domain.Notifier, eventBus domain.EventPublisher, reports *export.Reporter, logger *zerolog.Logger) *AdminDashboard {
	return &AdminDashboard{
		Board:    NewTaskBoard(store, feed, notifier, eventBus, logger),
		Schedule: NewSchedulePanel(store, feed, logger),
		Reports:  reports,
	}
}

// Start brings up both panels; the dashboard is not ready until both the
// bulk loads and the subscriptions are active.
func (d *AdminDashboard) Start(ctx context.Context) error {
	if err := d.Board.Start(ctx); err != nil {
		return err
	}
	if err := d.Schedule.Start(ctx); err != nil {
		d.Board.Stop()
		return err
	}
	return nil
}

// Stop tears down both subscriptions.
func (d *AdminDashboard) Stop() {
	d.Board.Stop()
	d.Schedule.Stop()
}
