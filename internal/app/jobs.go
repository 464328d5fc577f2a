/**
 * @description
 * Scheduled job implementations: the daily offer expiry sweep, the
 * 24h-before-expiry reminder and the weekly payout batch.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

// reminderWindow is how far before the validity deadline the single
// expiry reminder goes out.
const reminderWindow = 24 * time.Hour

// JobsRepository defines the database operations needed by the jobs.
type JobsRepository interface {
	ExpireOverdueOffers(ctx context.Context, now time.Time) ([]domain.Offer, error)
	ClaimExpiryReminders(ctx context.Context, now, until time.Time) ([]domain.Offer, error)
}

// BatchPayoutRunner runs the weekly payout batch.
type BatchPayoutRunner interface {
	RunBatchPayout(ctx context.Context) (*domain.BatchPayoutResult, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo      JobsRepository
	payouts   BatchPayoutRunner
	publisher EventPublisher
	logger    *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo JobsRepository, payouts BatchPayoutRunner, publisher EventPublisher, logger *slog.Logger) *Jobs {
	return &Jobs{repo: repo, payouts: payouts, publisher: publisher, logger: logger}
}

// ProcessOfferExpiry flips every pending offer past its deadline to expired
// and notifies per offer.
func (j *Jobs) ProcessOfferExpiry() {
	j.logger.Info("starting offer expiry job")
	ctx := context.Background()

	expired, err := j.repo.ExpireOverdueOffers(ctx, time.Now())
	if err != nil {
		j.logger.Error("failed to expire overdue offers", "error", err)
		return
	}

	for _, offer := range expired {
		j.publishOfferEvent(ctx, domain.EventOfferExpired, offer)
	}

	j.logger.Info("offer expiry job finished", "expired", len(expired))
}

// ProcessExpiryReminders sends one reminder per offer expiring within the
// next 24 hours. The claim is a compare-and-set flag flip, so a retried
// sweep never double-sends.
func (j *Jobs) ProcessExpiryReminders() {
	j.logger.Info("starting offer reminder job")
	ctx := context.Background()

	now := time.Now()
	claimed, err := j.repo.ClaimExpiryReminders(ctx, now, now.Add(reminderWindow))
	if err != nil {
		j.logger.Error("failed to claim expiry reminders", "error", err)
		return
	}

	for _, offer := range claimed {
		j.publishOfferEvent(ctx, domain.EventOfferReminder, offer)
	}

	j.logger.Info("offer reminder job finished", "reminders", len(claimed))
}

// ProcessWeeklyPayouts runs the Monday payout batch.
func (j *Jobs) ProcessWeeklyPayouts() {
	j.logger.Info("starting weekly payout batch")
	ctx := context.Background()

	result, err := j.payouts.RunBatchPayout(ctx)
	if err != nil {
		j.logger.Error("weekly payout batch failed", "error", err)
		return
	}

	j.logger.Info("weekly payout batch finished",
		"processed", result.Processed,
		"successful", result.Successful,
		"failed", result.Failed)
}

func (j *Jobs) publishOfferEvent(ctx context.Context, routingKey string, offer domain.Offer) {
	if j.publisher == nil {
		return
	}

	event := domain.SettlementEvent{
		OfferID:   offer.ID,
		CoachID:   offer.CoachID,
		CoacheeID: &offer.CoacheeID,
		Amount:    offer.PriceTotalWithFee,
		Timestamp: time.Now(),
	}
	if err := j.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		j.logger.Warn("failed to publish offer event", "routing_key", routingKey, "offer_id", offer.ID, "error", err)
	}
}
