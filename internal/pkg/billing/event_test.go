package billing

import (
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		in   string
		want EventKind
	}{
		{in: "checkout.session.completed", want: EventKindCheckoutCompleted},
		{in: "customer.subscription.created", want: EventKindSubscriptionCreated},
		{in: "customer.subscription.updated", want: EventKindSubscriptionUpdated},
		{in: "customer.subscription.deleted", want: EventKindSubscriptionDeleted},
		{in: "invoice.payment_succeeded", want: EventKindInvoicePaid},
		{in: "invoice.payment_failed", want: EventKindInvoicePaymentFailed},
		{in: "customer.created", want: EventKindUnhandled},
		{in: "charge.refunded", want: EventKindUnhandled},
		{in: "", want: EventKindUnhandled},
	}

	for _, tt := range tests {
		if got := KindOf(tt.in); got != tt.want {
			t.Fatalf("KindOf(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseEvent(t *testing.T) {
	raw := []byte(`{"id":"evt_42","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","status":"active"}}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if ev.ID != "evt_42" {
		t.Fatalf("expected event id evt_42, got %q", ev.ID)
	}
	if ev.Kind != EventKindSubscriptionUpdated {
		t.Fatalf("expected subscription_updated kind, got %v", ev.Kind)
	}
	so, err := ev.DecodeSubscription()
	if err != nil {
		t.Fatalf("DecodeSubscription returned error: %v", err)
	}
	if so.ID != "sub_1" || so.Status != "active" {
		t.Fatalf("unexpected decoded subscription: %+v", so)
	}
}

func TestParseEventRejectsIncompleteEnvelope(t *testing.T) {
	for _, raw := range []string{
		`{"type":"invoice.payment_succeeded"}`,
		`{"id":"evt_1"}`,
		`not json`,
	} {
		if _, err := ParseEvent([]byte(raw)); err == nil {
			t.Fatalf("expected error for envelope %s", raw)
		}
	}
}

func TestCheckoutSessionUserID(t *testing.T) {
	cs := &CheckoutSession{ClientReferenceID: "17"}
	id, err := cs.UserID()
	if err != nil || id != 17 {
		t.Fatalf("expected user 17 from client reference, got %d, err=%v", id, err)
	}

	cs = &CheckoutSession{Metadata: map[string]string{"user_id": "9"}}
	id, err = cs.UserID()
	if err != nil || id != 9 {
		t.Fatalf("expected user 9 from metadata fallback, got %d, err=%v", id, err)
	}

	cs = &CheckoutSession{}
	if _, err := cs.UserID(); err == nil {
		t.Fatalf("expected error when session carries no user reference")
	}
}

func TestSubscriptionObjectHelpers(t *testing.T) {
	raw := []byte(`{"id":"evt_7","type":"customer.subscription.created","data":{"object":{
		"id":"sub_9","customer":"cus_3","status":"active",
		"current_period_start":1756684800,"current_period_end":1759276800,
		"metadata":{"user_id":"5"},
		"items":{"data":[{"price":{"id":"price_pro_m","recurring":{"interval":"month"}}}]}
	}}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	so, err := ev.DecodeSubscription()
	if err != nil {
		t.Fatalf("DecodeSubscription returned error: %v", err)
	}

	if uid, err := so.UserID(); err != nil || uid != 5 {
		t.Fatalf("expected user 5, got %d, err=%v", uid, err)
	}
	if so.PriceRef() != "price_pro_m" {
		t.Fatalf("expected price_pro_m, got %q", so.PriceRef())
	}
	if so.Interval() != "monthly" {
		t.Fatalf("expected monthly interval, got %q", so.Interval())
	}
	start := so.PeriodStart()
	end := so.PeriodEnd()
	if start == nil || end == nil {
		t.Fatalf("expected explicit period bounds")
	}
	if !start.Equal(time.Unix(1756684800, 0)) || !end.Equal(time.Unix(1759276800, 0)) {
		t.Fatalf("unexpected period bounds: %v .. %v", start, end)
	}
}

func TestInvoiceOccurredAtFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := &InvoiceObject{}
	if got := inv.OccurredAt(now); !got.Equal(now) {
		t.Fatalf("expected fallback to now, got %v", got)
	}
	inv.Created = 1756684800
	if got := inv.OccurredAt(now); !got.Equal(time.Unix(1756684800, 0)) {
		t.Fatalf("expected created timestamp, got %v", got)
	}
}
