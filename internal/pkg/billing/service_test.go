package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	events        map[string]*models.BillingWebhookEvent
	subsByUser    map[uint]*models.BillingSubscription
	mappings      map[string]string
	userTiers     map[uint]string
	invoices      map[string]*models.BillingInvoice
	requests      map[string]*models.ServiceRequest
	emails        map[uint]string
	nextID        uint
	failUserTiers bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		events:     map[string]*models.BillingWebhookEvent{},
		subsByUser: map[uint]*models.BillingSubscription{},
		mappings:   map[string]string{},
		userTiers:  map[uint]string{},
		invoices:   map[string]*models.BillingInvoice{},
		requests:   map[string]*models.ServiceRequest{},
		emails:     map[uint]string{},
	}
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := f.events[event.EventID]; ok {
		return false, stored, nil
	}
	f.nextID++
	event.ID = f.nextID
	f.events[event.EventID] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error) {
	if sub, ok := f.subsByUser[userID]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriptionByExternalID(externalSubscriptionID string) (*models.BillingSubscription, error) {
	for _, sub := range f.subsByUser {
		if sub.ExternalSubscriptionID == externalSubscriptionID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertSubscriptionByUser(sub *models.BillingSubscription) error {
	cp := *sub
	if existing, ok := f.subsByUser[sub.UserID]; ok {
		cp.ID = existing.ID
	} else {
		f.nextID++
		cp.ID = f.nextID
	}
	f.subsByUser[sub.UserID] = &cp
	sub.ID = cp.ID
	return nil
}

func (f *fakeRepository) FindActivePlanMapping(priceRef, interval string) (*models.BillingPlanMapping, error) {
	tier, ok := f.mappings[priceRef+"/"+interval]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.BillingPlanMapping{PriceRef: priceRef, BillingInterval: interval, Tier: tier, IsActive: true}, nil
}

func (f *fakeRepository) SetUserTier(userID uint, tier string) error {
	if f.failUserTiers {
		return fmt.Errorf("simulated profile store outage")
	}
	f.userTiers[userID] = tier
	return nil
}

func (f *fakeRepository) AppendInvoice(inv *models.BillingInvoice) (bool, error) {
	if _, ok := f.invoices[inv.ExternalInvoiceID]; ok {
		return false, nil
	}
	f.invoices[inv.ExternalInvoiceID] = inv
	return true, nil
}

func (f *fakeRepository) MarkServiceRequestPaid(uuid string, paidAt time.Time) (*models.ServiceRequest, error) {
	sr, ok := f.requests[uuid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	sr.Status = models.ServiceRequestStatusPaid
	sr.PaidAt = &paidAt
	return sr, nil
}

func (f *fakeRepository) GetUserEmail(userID uint) (string, error) {
	if email, ok := f.emails[userID]; ok {
		return email, nil
	}
	return "", gorm.ErrRecordNotFound
}

type fakeUsage struct {
	used int
	err  error
}

func (f *fakeUsage) UsedInCurrentPeriod(ctx context.Context, userID uint) (int, error) {
	return f.used, f.err
}

func newTestService(repo *fakeRepository, usage UsageReader, now time.Time) *Service {
	svc := NewService(repo, usage, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRecordWebhookEventAdmitsOnceAndReadmitsFailures(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil, time.Now())
	ctx := context.Background()

	in := WebhookEventInput{EventID: "evt_1", EventType: "invoice.payment_succeeded", PayloadJSON: "{}"}

	admit, stored, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil || !admit {
		t.Fatalf("expected first delivery to be admitted, admit=%v err=%v", admit, err)
	}

	// A concurrent redelivery sees a row with no outcome yet. The first
	// attempt owns the event until it records one.
	admit, _, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil || admit {
		t.Fatalf("expected redelivery of in-flight event to be skipped, admit=%v err=%v", admit, err)
	}

	// Redelivery after a failed run is admitted so it can be repaired.
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, fmt.Errorf("boom")); err != nil {
		t.Fatalf("MarkWebhookProcessed returned error: %v", err)
	}
	admit, _, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil || !admit {
		t.Fatalf("expected redelivery of failed event to be admitted, admit=%v err=%v", admit, err)
	}

	// Redelivery after success is a no-op.
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, nil); err != nil {
		t.Fatalf("MarkWebhookProcessed returned error: %v", err)
	}
	admit, _, err = svc.RecordWebhookEvent(ctx, in)
	if err != nil || admit {
		t.Fatalf("expected redelivery of processed event to be skipped, admit=%v err=%v", admit, err)
	}
}

func TestRecordWebhookEventStaleAttemptIsReadmitted(t *testing.T) {
	repo := newFakeRepository()
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, t0)
	ctx := context.Background()

	in := WebhookEventInput{EventID: "evt_stale", EventType: "invoice.payment_succeeded", PayloadJSON: "{}"}
	if admit, _, err := svc.RecordWebhookEvent(ctx, in); err != nil || !admit {
		t.Fatalf("expected first delivery to be admitted, admit=%v err=%v", admit, err)
	}

	// Within the grace period the row is still trusted to be in flight.
	svc.now = func() time.Time { return t0.Add(inFlightGracePeriod) }
	if admit, _, err := svc.RecordWebhookEvent(ctx, in); err != nil || admit {
		t.Fatalf("expected redelivery within the grace period to be skipped, admit=%v err=%v", admit, err)
	}

	// An attempt that never recorded an outcome is presumed crashed once
	// the grace period has passed.
	svc.now = func() time.Time { return t0.Add(inFlightGracePeriod + time.Minute) }
	if admit, _, err := svc.RecordWebhookEvent(ctx, in); err != nil || !admit {
		t.Fatalf("expected stale attempt to be readmitted, admit=%v err=%v", admit, err)
	}
}

func TestRecordWebhookEventRequiresEventID(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil, time.Now())

	if _, _, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{PayloadJSON: `{"a":1}`}); err == nil {
		t.Fatalf("expected error for delivery without an event id")
	}
	if len(repo.events) != 0 {
		t.Fatalf("expected no ledger row for rejected delivery")
	}
}

func subscriptionEvent(t *testing.T, eventID, eventType, payload string) *Event {
	t.Helper()
	raw := fmt.Sprintf(`{"id":%q,"type":%q,"data":{"object":%s}}`, eventID, eventType, payload)
	ev, err := ParseEvent([]byte(raw))
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	return &ev
}

func TestProcessEventSubscriptionCreated(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings["price_pro_m/monthly"] = string(tiers.TierProfessional)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)

	ev := subscriptionEvent(t, "evt_1", "customer.subscription.created", `{
		"id":"sub_1","customer":"cus_1","status":"active",
		"current_period_start":1756684800,"current_period_end":1759276800,
		"metadata":{"user_id":"7"},
		"items":{"data":[{"price":{"id":"price_pro_m","recurring":{"interval":"month"}}}]}
	}`)
	if err := svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}

	sub := repo.subsByUser[7]
	if sub == nil {
		t.Fatalf("expected subscription record for user 7")
	}
	if sub.Tier != string(tiers.TierProfessional) || sub.Status != models.BillingStatusActive {
		t.Fatalf("unexpected subscription state: %+v", sub)
	}
	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd == nil {
		t.Fatalf("expected authoritative period bounds to be stored")
	}
	if sub.LockedUntil == nil {
		t.Fatalf("expected new tier to start its commitment window")
	}
	wantLock := now.AddDate(0, 0, tiers.MustLookup(string(tiers.TierProfessional)).LockDays)
	if !sub.LockedUntil.Equal(wantLock) {
		t.Fatalf("expected lock until %v, got %v", wantLock, *sub.LockedUntil)
	}
	if repo.userTiers[7] != string(tiers.TierProfessional) {
		t.Fatalf("expected profile tier to be propagated, got %q", repo.userTiers[7])
	}
}

func TestProcessEventSubscriptionUpdatedResolvesUserFromStoredRecord(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings["price_starter_m/monthly"] = string(tiers.TierStarter)
	repo.subsByUser[3] = &models.BillingSubscription{
		ID: 1, UserID: 3, ExternalSubscriptionID: "sub_3",
		Tier: string(tiers.TierProfessional), Status: models.BillingStatusActive,
	}
	svc := newTestService(repo, nil, time.Now())

	// No metadata on the update; the stored external id resolves the user.
	ev := subscriptionEvent(t, "evt_2", "customer.subscription.updated", `{
		"id":"sub_3","customer":"cus_3","status":"active",
		"items":{"data":[{"price":{"id":"price_starter_m","recurring":{"interval":"month"}}}]}
	}`)
	if err := svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if repo.subsByUser[3].Tier != string(tiers.TierStarter) {
		t.Fatalf("expected stored tier to follow the update, got %q", repo.subsByUser[3].Tier)
	}
	if repo.userTiers[3] != string(tiers.TierStarter) {
		t.Fatalf("expected profile tier to follow the update, got %q", repo.userTiers[3])
	}
}

func TestProcessEventSubscriptionDeletedResetsToTrial(t *testing.T) {
	repo := newFakeRepository()
	locked := time.Now().AddDate(0, 0, 60)
	repo.subsByUser[4] = &models.BillingSubscription{
		ID: 1, UserID: 4, ExternalSubscriptionID: "sub_4",
		Tier: string(tiers.TierPremium), Status: models.BillingStatusActive,
		LockedUntil: &locked,
	}
	svc := newTestService(repo, nil, time.Now())

	ev := subscriptionEvent(t, "evt_3", "customer.subscription.deleted", `{"id":"sub_4","status":"canceled","canceled_at":1756684800}`)
	if err := svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}

	sub := repo.subsByUser[4]
	if sub.Status != models.BillingStatusCanceled || sub.Tier != string(tiers.TierTrial) {
		t.Fatalf("expected canceled Trial record, got %+v", sub)
	}
	if sub.CanceledAt == nil || sub.LockedUntil != nil {
		t.Fatalf("expected canceled_at stamped and lock cleared, got %+v", sub)
	}
	if repo.userTiers[4] != string(tiers.TierTrial) {
		t.Fatalf("expected profile tier reset to Trial, got %q", repo.userTiers[4])
	}
}

func TestProcessEventProfileSyncFailureSurfaces(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings["price_pro_m/monthly"] = string(tiers.TierProfessional)
	repo.failUserTiers = true
	svc := newTestService(repo, nil, time.Now())

	ev := subscriptionEvent(t, "evt_4", "customer.subscription.created", `{
		"id":"sub_5","status":"active","metadata":{"user_id":"8"},
		"items":{"data":[{"price":{"id":"price_pro_m","recurring":{"interval":"month"}}}]}
	}`)
	if err := svc.ProcessEvent(context.Background(), ev); err == nil {
		t.Fatalf("expected error when profile tier write fails after subscription write")
	}
	// The subscription write already landed; redelivery repairs the profile.
	if repo.subsByUser[8] == nil {
		t.Fatalf("expected subscription record to be stored despite profile failure")
	}
}

func TestProcessEventUnhandledKindIsAcknowledged(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil, time.Now())

	ev := subscriptionEvent(t, "evt_5", "charge.refunded", `{"id":"ch_1"}`)
	if err := svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("expected unhandled event to be acknowledged, got %v", err)
	}
}

func TestProcessEventInvoiceLedgerIsAppendOnly(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil, time.Now())
	ctx := context.Background()

	paid := subscriptionEvent(t, "evt_6", "invoice.payment_succeeded", `{"id":"in_1","subscription":"sub_1","amount_paid":4900,"currency":"USD","created":1756684800}`)
	if err := svc.ProcessEvent(ctx, paid); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if err := svc.ProcessEvent(ctx, paid); err != nil {
		t.Fatalf("expected replayed invoice to be a no-op, got %v", err)
	}
	if len(repo.invoices) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(repo.invoices))
	}
	row := repo.invoices["in_1"]
	if row.Status != models.InvoiceStatusPaid || row.AmountCents != 4900 || row.Currency != "usd" {
		t.Fatalf("unexpected ledger row: %+v", row)
	}

	failed := subscriptionEvent(t, "evt_7", "invoice.payment_failed", `{"id":"in_2","subscription":"sub_1","amount_due":4900,"currency":"usd","last_payment_error":{"message":"card_declined"}}`)
	if err := svc.ProcessEvent(ctx, failed); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if repo.invoices["in_2"].FailureMessage != "card_declined" {
		t.Fatalf("expected failure message to be recorded")
	}
}

func TestProcessEventCheckoutPaymentSettlesServiceRequest(t *testing.T) {
	repo := newFakeRepository()
	repo.requests["req-1"] = &models.ServiceRequest{ID: 1, UUID: "req-1", UserID: 2, ServiceType: "supplier_verification", Status: models.ServiceRequestStatusPending}
	svc := newTestService(repo, nil, time.Now())

	ev := subscriptionEvent(t, "evt_8", "checkout.session.completed", `{"id":"cs_1","mode":"payment","metadata":{"service_request_uuid":"req-1"}}`)
	if err := svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("ProcessEvent returned error: %v", err)
	}
	if repo.requests["req-1"].Status != models.ServiceRequestStatusPaid {
		t.Fatalf("expected request to be marked paid, got %q", repo.requests["req-1"].Status)
	}
}

func TestRequestTierChangeRefusedByLock(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	locked := now.AddDate(0, 0, 20)
	repo.subsByUser[5] = &models.BillingSubscription{
		ID: 1, UserID: 5, Tier: string(tiers.TierProfessional),
		Status: models.BillingStatusActive, LockedUntil: &locked,
	}
	svc := newTestService(repo, &fakeUsage{}, now)

	res, err := svc.RequestTierChange(context.Background(), 5, string(tiers.TierStarter), "")
	if err != nil {
		t.Fatalf("RequestTierChange returned error: %v", err)
	}
	if res.Allowed || res.Reason != RefusalCommitmentLock {
		t.Fatalf("expected lock refusal, got %+v", res)
	}
	if res.DaysRemaining != 20 || res.LiftsAt == nil || !res.LiftsAt.Equal(locked) {
		t.Fatalf("unexpected refusal details: %+v", res)
	}
	if repo.subsByUser[5].Tier != string(tiers.TierProfessional) {
		t.Fatalf("refused change must not touch the stored tier")
	}
}

func TestRequestTierChangeRefusedByUsage(t *testing.T) {
	repo := newFakeRepository()
	repo.subsByUser[5] = &models.BillingSubscription{
		ID: 1, UserID: 5, Tier: string(tiers.TierProfessional),
		Status: models.BillingStatusActive,
	}
	// 40 analyses used this period; Starter's quota is 15.
	svc := newTestService(repo, &fakeUsage{used: 40}, time.Now())

	res, err := svc.RequestTierChange(context.Background(), 5, string(tiers.TierStarter), "")
	if err != nil {
		t.Fatalf("RequestTierChange returned error: %v", err)
	}
	if res.Allowed || res.Reason != RefusalUsageExceeds {
		t.Fatalf("expected usage refusal, got %+v", res)
	}
}

func TestRequestTierChangeUpgradeAppliesAndLocks(t *testing.T) {
	repo := newFakeRepository()
	repo.subsByUser[6] = &models.BillingSubscription{
		ID: 1, UserID: 6, Tier: string(tiers.TierStarter),
		Status: models.BillingStatusActive,
	}
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &fakeUsage{}, now)

	res, err := svc.RequestTierChange(context.Background(), 6, string(tiers.TierPremium), "")
	if err != nil {
		t.Fatalf("RequestTierChange returned error: %v", err)
	}
	if !res.Allowed || res.Tier != string(tiers.TierPremium) {
		t.Fatalf("expected allowed upgrade, got %+v", res)
	}
	wantLock := now.AddDate(0, 0, tiers.MustLookup(string(tiers.TierPremium)).LockDays)
	if res.LockedUntil == nil || !res.LockedUntil.Equal(wantLock) {
		t.Fatalf("expected lock until %v, got %+v", wantLock, res.LockedUntil)
	}
	if repo.userTiers[6] != string(tiers.TierPremium) {
		t.Fatalf("expected profile tier to follow the upgrade")
	}
}

func TestRequestTierChangeBillingPeriodOnlyIgnoresLock(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	locked := now.AddDate(0, 0, 40)
	periodStart := now.AddDate(0, 0, -10)
	periodEnd := periodStart.AddDate(0, 0, 30)
	repo.subsByUser[9] = &models.BillingSubscription{
		ID: 1, UserID: 9, Tier: string(tiers.TierProfessional),
		Status: models.BillingStatusActive, BillingInterval: models.BillingIntervalMonthly,
		CurrentPeriodStart: &periodStart, CurrentPeriodEnd: &periodEnd,
		LockedUntil: &locked,
	}
	svc := newTestService(repo, &fakeUsage{}, now)

	// Same tier, new billing period. The commitment lock binds tier
	// downgrades only, so the switch goes through and the lock stays.
	res, err := svc.RequestTierChange(context.Background(), 9, string(tiers.TierProfessional), models.BillingIntervalAnnual)
	if err != nil {
		t.Fatalf("RequestTierChange returned error: %v", err)
	}
	if !res.Allowed || res.BillingInterval != models.BillingIntervalAnnual {
		t.Fatalf("expected billing period switch to be allowed, got %+v", res)
	}
	if res.LockedUntil == nil || !res.LockedUntil.Equal(locked) {
		t.Fatalf("expected lateral change to leave the lock untouched, got %+v", res.LockedUntil)
	}
	if res.CurrentPeriodEnd == nil || !res.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("expected current period end in the result, got %+v", res.CurrentPeriodEnd)
	}
	if repo.subsByUser[9].BillingInterval != models.BillingIntervalAnnual {
		t.Fatalf("expected stored billing interval to change, got %q", repo.subsByUser[9].BillingInterval)
	}
	if repo.subsByUser[9].Tier != string(tiers.TierProfessional) {
		t.Fatalf("expected tier to stay, got %q", repo.subsByUser[9].Tier)
	}
}

func TestRequestTierChangeRejectsUnknownBillingPeriod(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, &fakeUsage{}, time.Now())

	if _, err := svc.RequestTierChange(context.Background(), 9, string(tiers.TierStarter), "weekly"); err == nil {
		t.Fatalf("expected error for unknown billing period")
	}
}
