package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"gorm.io/gorm"
)

// Service synchronizes payment processor state into local billing tables and
// governs self-service tier changes.
type Service struct {
	repo   Repository
	usage  UsageReader
	mailer Mailer
	now    func() time.Time
}

// NewService creates a billing service from an injected repository. Usage
// reader and mailer are optional collaborators.
func NewService(repo Repository, usage UsageReader, mailer Mailer) *Service {
	return &Service{repo: repo, usage: usage, mailer: mailer, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle without
// the optional collaborators.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), nil, nil)
}

// inFlightGracePeriod is how long an outcome-less ledger row is trusted to
// still be in flight. Past it the original attempt is presumed crashed and a
// redelivery is admitted again.
const inFlightGracePeriod = 15 * time.Minute

// RecordWebhookEvent persists an incoming event idempotently and decides
// whether it should be processed. A replay of an event that previously
// completed is not admitted; neither is a replay of an event another delivery
// is still processing. Only a recorded failure, or an attempt that went stale
// without an outcome, is admitted again so redelivery can repair it.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return false, nil, errors.New("event_id is required")
	}

	event := &models.BillingWebhookEvent{
		EventID:     eventID,
		EventType:   strings.TrimSpace(in.EventType),
		PayloadJSON: in.PayloadJSON,
		ReceivedAt:  s.now(),
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(event)
	if err != nil {
		return false, nil, err
	}
	if created {
		return true, stored, nil
	}
	// Duplicate key. Completed rows and rows still in flight stay no-ops.
	readmit := stored.FailedProcessing() ||
		(stored.ProcessedAt == nil && s.now().Sub(stored.ReceivedAt) > inFlightGracePeriod)
	return readmit, stored, nil
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ProcessEvent routes a parsed event to its handler. Unhandled kinds are
// logged and acknowledged so the processor does not retry them forever.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case EventKindCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, ev)
	case EventKindSubscriptionCreated, EventKindSubscriptionUpdated:
		return s.handleSubscriptionSync(ctx, ev)
	case EventKindSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, ev)
	case EventKindInvoicePaid, EventKindInvoicePaymentFailed:
		return s.handleInvoice(ctx, ev)
	default:
		log.Printf("[Billing] ignoring unhandled event %s (%s)", ev.ID, ev.Type)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, ev *Event) error {
	cs, err := ev.DecodeCheckoutSession()
	if err != nil {
		return err
	}

	switch cs.Mode {
	case CheckoutModePayment:
		return s.settleServicePayment(cs)
	case CheckoutModeSubscription:
		return s.seedSubscriptionFromCheckout(ctx, cs)
	default:
		log.Printf("[Billing] checkout session %s has unknown mode %q, ignoring", cs.ID, cs.Mode)
		return nil
	}
}

// settleServicePayment marks a one-off professional-service request as paid
// and notifies the buyer. Mail failure is logged, not fatal: the payment is
// already settled.
func (s *Service) settleServicePayment(cs *CheckoutSession) error {
	uuid := cs.ServiceRequestUUID()
	if uuid == "" {
		log.Printf("[Billing] payment checkout %s carries no service request reference, ignoring", cs.ID)
		return nil
	}
	sr, err := s.repo.MarkServiceRequestPaid(uuid, s.now())
	if err != nil {
		return fmt.Errorf("mark service request %s paid: %w", uuid, err)
	}
	if s.mailer != nil {
		email := strings.TrimSpace(cs.CustomerEmail)
		if email == "" {
			email, _ = s.repo.GetUserEmail(sr.UserID)
		}
		if email != "" {
			if err := s.mailer.SendServicePaymentConfirmation(email, sr.ServiceType); err != nil {
				log.Printf("[Billing] payment confirmation mail for request %s failed: %v", uuid, err)
			}
		}
	}
	return nil
}

// seedSubscriptionFromCheckout creates the local record right after checkout
// so entitlements apply immediately. Period bounds are an estimate; the
// subscription_created event that follows carries the authoritative ones.
func (s *Service) seedSubscriptionFromCheckout(ctx context.Context, cs *CheckoutSession) error {
	userID, err := cs.UserID()
	if err != nil {
		return err
	}
	now := s.now()
	start := now
	end := now.AddDate(0, 0, 30)
	return s.syncSubscription(ctx, NormalizedSubscription{
		UserID:                 userID,
		ExternalSubscriptionID: strings.TrimSpace(cs.SubscriptionID),
		ExternalCustomerID:     strings.TrimSpace(cs.CustomerID),
		PriceRef:               cs.PriceRef(),
		Status:                 models.BillingStatusActive,
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
	})
}

func (s *Service) handleSubscriptionSync(ctx context.Context, ev *Event) error {
	so, err := ev.DecodeSubscription()
	if err != nil {
		return err
	}
	userID, err := so.UserID()
	if err != nil {
		// Updates for subscriptions we created carry no metadata; resolve
		// through the stored external ID instead.
		stored, lookupErr := s.repo.GetSubscriptionByExternalID(strings.TrimSpace(so.ID))
		if lookupErr != nil {
			return fmt.Errorf("resolve subscriber for subscription %s: %w", so.ID, err)
		}
		userID = stored.UserID
	}

	var canceledAt *time.Time
	if so.CancelAtPeriodEnd {
		canceledAt = unixPtr(so.CanceledAt)
	}
	return s.syncSubscription(ctx, NormalizedSubscription{
		UserID:                 userID,
		ExternalSubscriptionID: strings.TrimSpace(so.ID),
		ExternalCustomerID:     strings.TrimSpace(so.CustomerID),
		PriceRef:               so.PriceRef(),
		BillingInterval:        so.Interval(),
		Status:                 strings.ToLower(strings.TrimSpace(so.Status)),
		CurrentPeriodStart:     so.PeriodStart(),
		CurrentPeriodEnd:       so.PeriodEnd(),
		CancelAtPeriodEnd:      so.CancelAtPeriodEnd,
		CanceledAt:             canceledAt,
	})
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev *Event) error {
	_ = ctx
	so, err := ev.DecodeSubscription()
	if err != nil {
		return err
	}

	sub, err := s.repo.GetSubscriptionByExternalID(strings.TrimSpace(so.ID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Billing] deletion for unknown subscription %s, ignoring", so.ID)
			return nil
		}
		return err
	}

	now := s.now()
	canceledAt := unixPtr(so.CanceledAt)
	if canceledAt == nil {
		canceledAt = &now
	}
	sub.Status = models.BillingStatusCanceled
	sub.Tier = string(tiers.TierTrial)
	sub.CanceledAt = canceledAt
	sub.LockedUntil = nil
	if err := s.repo.UpsertSubscriptionByUser(sub); err != nil {
		return err
	}
	if err := s.repo.SetUserTier(sub.UserID, string(tiers.TierTrial)); err != nil {
		log.Printf("[Billing] CRITICAL: subscription %s canceled but profile tier for user %d not reset: %v", so.ID, sub.UserID, err)
		return err
	}
	return nil
}

func (s *Service) handleInvoice(ctx context.Context, ev *Event) error {
	_ = ctx
	inv, err := ev.DecodeInvoice()
	if err != nil {
		return err
	}
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("event %s: invoice without id", ev.ID)
	}

	record := &models.BillingInvoice{
		ExternalInvoiceID: strings.TrimSpace(inv.ID),
		ExternalSubID:     strings.TrimSpace(inv.SubscriptionID),
		Currency:          strings.ToLower(strings.TrimSpace(inv.Currency)),
		OccurredAt:        inv.OccurredAt(s.now()),
	}
	if ev.Kind == EventKindInvoicePaid {
		record.Status = models.InvoiceStatusPaid
		record.AmountCents = inv.AmountPaid
	} else {
		record.Status = models.InvoiceStatusFailed
		record.AmountCents = inv.AmountDue
		record.FailureMessage = strings.TrimSpace(inv.LastError.Message)
	}

	created, err := s.repo.AppendInvoice(record)
	if err != nil {
		return err
	}
	if created && record.Status == models.InvoiceStatusFailed {
		log.Printf("[Billing] ALERT: payment failed for invoice %s (subscription %s): %s",
			record.ExternalInvoiceID, record.ExternalSubID, record.FailureMessage)
	}
	return nil
}

// syncSubscription upserts the subscription record and propagates the tier to
// the user profile. Both writes must land; when the second one fails the
// stores disagree and the error forces redelivery of the whole event.
func (s *Service) syncSubscription(ctx context.Context, in NormalizedSubscription) error {
	_ = ctx
	if in.UserID == 0 {
		return errors.New("user_id is required")
	}
	status := in.Status
	if status == "" {
		status = models.BillingStatusActive
	}
	interval := in.BillingInterval
	if interval == "" {
		interval = models.BillingIntervalMonthly
	}

	tier, err := s.resolveTier(in.PriceRef, interval)
	if err != nil {
		return err
	}

	sub, err := s.repo.GetSubscriptionByUser(in.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		sub = &models.BillingSubscription{UserID: in.UserID}
	}

	// Entering a different tier starts that tier's commitment window.
	// An unchanged tier keeps whatever lock is already running.
	if sub.Tier != tier {
		def, err := tiers.Lookup(tier)
		if err != nil {
			return err
		}
		sub.LockedUntil = nil
		if def.LockDays > 0 {
			until := s.now().AddDate(0, 0, def.LockDays)
			sub.LockedUntil = &until
		}
	}

	sub.ExternalSubscriptionID = in.ExternalSubscriptionID
	sub.ExternalCustomerID = in.ExternalCustomerID
	sub.Tier = tier
	sub.BillingInterval = interval
	sub.Status = status
	sub.CurrentPeriodStart = in.CurrentPeriodStart
	sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = in.CancelAtPeriodEnd
	sub.CanceledAt = in.CanceledAt
	if err := s.repo.UpsertSubscriptionByUser(sub); err != nil {
		return err
	}

	profileTier := tier
	if !isEntitlingStatus(status) {
		profileTier = string(tiers.TierTrial)
	}
	if err := s.repo.SetUserTier(in.UserID, profileTier); err != nil {
		log.Printf("[Billing] CRITICAL: subscription stored for user %d but profile tier update to %s failed: %v", in.UserID, profileTier, err)
		return err
	}
	return nil
}

// resolveTier maps a processor price reference to an internal tier via the
// plan mapping table. A missing mapping is a configuration error, not a
// silent downgrade.
func (s *Service) resolveTier(priceRef, interval string) (string, error) {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return "", errors.New("price reference is required")
	}
	m, err := s.repo.FindActivePlanMapping(ref, interval)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("no active plan mapping for price %s (%s)", ref, interval)
		}
		return "", err
	}
	tier := string(tiers.Normalize(m.Tier))
	if !tiers.IsKnown(tier) {
		return "", fmt.Errorf("plan mapping for price %s names unknown tier %q", ref, m.Tier)
	}
	return tier, nil
}

// RequestTierChange evaluates and, when permitted, applies a self-service
// plan change. The billing period is optional; when set it must be monthly or
// annual and is applied together with the tier, so a lateral request can
// switch the billing period alone. Downgrades are refused while the
// commitment lock runs, and refused when current-period usage already exceeds
// the target tier's quota.
func (s *Service) RequestTierChange(ctx context.Context, userID uint, requestedTier, billingPeriod string) (TierChangeResult, error) {
	if userID == 0 {
		return TierChangeResult{}, errors.New("user_id is required")
	}
	requested := string(tiers.Normalize(requestedTier))
	billingPeriod = strings.ToLower(strings.TrimSpace(billingPeriod))
	switch billingPeriod {
	case "", models.BillingIntervalMonthly, models.BillingIntervalAnnual:
	default:
		return TierChangeResult{}, fmt.Errorf("unknown billing period %q", billingPeriod)
	}

	currentTier := string(tiers.TierTrial)
	var lockedUntil *time.Time
	sub, err := s.repo.GetSubscriptionByUser(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return TierChangeResult{}, err
		}
		sub = nil
	} else {
		currentTier = sub.Tier
		lockedUntil = sub.LockedUntil
	}

	now := s.now()
	dec, err := EvaluateTierChange(currentTier, requested, lockedUntil, now)
	if err != nil {
		return TierChangeResult{}, err
	}
	if !dec.Allowed {
		liftsAt := dec.LiftsAt
		return TierChangeResult{
			Allowed:       false,
			Tier:          currentTier,
			Reason:        RefusalCommitmentLock,
			DaysRemaining: dec.DaysRemaining,
			LiftsAt:       &liftsAt,
			LockedUntil:   lockedUntil,
		}, nil
	}

	if dec.Direction == DirectionDowngrade && s.usage != nil {
		used, err := s.usage.UsedInCurrentPeriod(ctx, userID)
		if err != nil {
			return TierChangeResult{}, err
		}
		def := tiers.MustLookup(requested)
		if used > def.MonthlyQuota {
			return TierChangeResult{
				Allowed: false,
				Tier:    currentTier,
				Reason:  RefusalUsageExceeds,
			}, nil
		}
	}

	if sub == nil {
		sub = &models.BillingSubscription{
			UserID:          userID,
			Status:          models.BillingStatusActive,
			BillingInterval: models.BillingIntervalMonthly,
		}
	}
	sub.Tier = requested
	if billingPeriod != "" {
		sub.BillingInterval = billingPeriod
	}
	if dec.NewLockedUntil != nil {
		sub.LockedUntil = dec.NewLockedUntil
	} else if dec.Direction != DirectionLateral {
		sub.LockedUntil = nil
	}
	if err := s.repo.UpsertSubscriptionByUser(sub); err != nil {
		return TierChangeResult{}, err
	}
	if err := s.repo.SetUserTier(userID, requested); err != nil {
		log.Printf("[Billing] CRITICAL: tier change stored for user %d but profile tier update to %s failed: %v", userID, requested, err)
		return TierChangeResult{}, err
	}
	return TierChangeResult{
		Allowed:          true,
		Tier:             requested,
		BillingInterval:  sub.BillingInterval,
		LockedUntil:      sub.LockedUntil,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}, nil
}

func isEntitlingStatus(status string) bool {
	switch status {
	case models.BillingStatusActive, models.BillingStatusPastDue:
		return true
	default:
		return false
	}
}
