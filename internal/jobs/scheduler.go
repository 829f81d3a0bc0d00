package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/service"
)

const sweepBatchSize = 100

// SchedulerJob runs the periodic session sweeps: reminders shortly before
// a booking, and the overdue sweep that marks unstarted bookings as
// no-shows. The no-show transition exists only here; the API never
// produces it.
type SchedulerJob struct {
	sessionRepo  repository.SessionRepository
	notifier     service.Notifier
	interval     time.Duration
	reminderLead time.Duration
	noShowGrace  time.Duration
	done         chan struct{}
}

func NewSchedulerJob(
	sessionRepo repository.SessionRepository,
	notifier service.Notifier,
	interval time.Duration,
	reminderLead time.Duration,
	noShowGrace time.Duration,
) *SchedulerJob {
	return &SchedulerJob{
		sessionRepo:  sessionRepo,
		notifier:     notifier,
		interval:     interval,
		reminderLead: reminderLead,
		noShowGrace:  noShowGrace,
		done:         make(chan struct{}),
	}
}

func (j *SchedulerJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("scheduler job started")
}

func (j *SchedulerJob) Stop() {
	close(j.done)
	log.Info().Msg("scheduler job stopped")
}

func (j *SchedulerJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SchedulerJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.sendReminders(ctx)
	j.sweepNoShows(ctx)
}

func (j *SchedulerJob) sendReminders(ctx context.Context) {
	windowEnd := time.Now().Add(j.reminderLead)
	sessions, err := j.sessionRepo.FindDueReminders(ctx, windowEnd, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to find due reminders")
		return
	}

	for _, session := range sessions {
		for _, userID := range []string{session.ClientID, session.ReaderID} {
			if _, err := j.notifier.Notify(ctx, service.NotifyParams{
				UserID:  userID,
				Type:    model.NotificationTypeSessionReminder,
				Title:   "Upcoming session",
				Message: "Your session starts at " + session.ScheduledAt.Format(time.RFC3339),
			}); err != nil {
				log.Warn().Err(err).
					Str("sessionId", session.ID).
					Str("userId", userID).
					Msg("reminder notification failed")
			}
		}
		if err := j.sessionRepo.MarkReminderSent(ctx, session.ID, time.Now()); err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to mark reminder sent")
		}
	}

	if len(sessions) > 0 {
		log.Info().Int("count", len(sessions)).Msg("session reminders sent")
	}
}

func (j *SchedulerJob) sweepNoShows(ctx context.Context) {
	cutoff := time.Now().Add(-j.noShowGrace)
	sessions, err := j.sessionRepo.FindOverdueScheduled(ctx, cutoff, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to find overdue sessions")
		return
	}

	marked := 0
	for _, session := range sessions {
		changed, err := j.sessionRepo.MarkNoShow(ctx, session.ID)
		if err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to mark no-show")
			continue
		}
		if !changed {
			// Started or cancelled between the select and the update.
			continue
		}
		marked++

		for _, userID := range []string{session.ClientID, session.ReaderID} {
			if _, err := j.notifier.Notify(ctx, service.NotifyParams{
				UserID:  userID,
				Type:    model.NotificationTypeSessionNoShow,
				Title:   "Session missed",
				Message: "Your scheduled session was never started",
			}); err != nil {
				log.Warn().Err(err).
					Str("sessionId", session.ID).
					Str("userId", userID).
					Msg("no-show notification failed")
			}
		}
	}

	if marked > 0 {
		log.Info().Int("count", marked).Msg("sessions marked no-show")
	}
}
