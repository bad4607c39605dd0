package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/featureflags"
	"github.com/yourorg/staffdesk/internal/service"
)

// InvitationReaper periodically deletes pending invitations older than the
// configured TTL. Accepted memberships are never touched; the repository
// query only matches rows still carrying a token.
type InvitationReaper struct {
	invitations *service.InvitationService
	logger      *slog.Logger
	interval    time.Duration
	ttl         time.Duration
}

// NewInvitationReaper creates a new invitation reaper
func NewInvitationReaper(invitations *service.InvitationService, logger *slog.Logger, interval, ttl time.Duration) *InvitationReaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationReaper{
		invitations: invitations,
		logger:      logger,
		interval:    interval,
		ttl:         ttl,
	}
}

// Start begins the reaper loop. The invitation_reaper flag lets operators
// disable reaping without a redeploy.
func (w *InvitationReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("invitation reaper started",
		slog.Duration("interval", w.interval),
		slog.Duration("ttl", w.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("invitation reaper stopped")
			return
		case <-ticker.C:
			if !featureflags.Enabled(featureflags.FlagInvitationReaper) {
				continue
			}
			w.reap()
		}
	}
}

func (w *InvitationReaper) reap() {
	cutoff := time.Now().Add(-w.ttl)
	n, err := w.invitations.ExpireBefore(cutoff)
	if err != nil {
		w.logger.Error("failed to reap expired invitations", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		w.logger.Info("reaped expired invitations", slog.Int("count", n))
	}
}
