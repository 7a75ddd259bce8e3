package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind is a closed enumeration of the processor event types this system
// acts on. Everything else maps to EventKindUnhandled, which is acknowledged
// and logged but never treated as an error: processors add event types faster
// than consumers care about them.
type EventKind int

const (
	EventKindUnhandled EventKind = iota
	EventKindCheckoutCompleted
	EventKindSubscriptionCreated
	EventKindSubscriptionUpdated
	EventKindSubscriptionDeleted
	EventKindInvoicePaid
	EventKindInvoicePaymentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventKindCheckoutCompleted:
		return "checkout_completed"
	case EventKindSubscriptionCreated:
		return "subscription_created"
	case EventKindSubscriptionUpdated:
		return "subscription_updated"
	case EventKindSubscriptionDeleted:
		return "subscription_deleted"
	case EventKindInvoicePaid:
		return "invoice_paid"
	case EventKindInvoicePaymentFailed:
		return "invoice_payment_failed"
	default:
		return "unhandled"
	}
}

// KindOf maps the processor's wire-level event type string to an EventKind.
func KindOf(eventType string) EventKind {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "checkout.session.completed":
		return EventKindCheckoutCompleted
	case "customer.subscription.created":
		return EventKindSubscriptionCreated
	case "customer.subscription.updated":
		return EventKindSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventKindSubscriptionDeleted
	case "invoice.payment_succeeded", "invoice.paid":
		return EventKindInvoicePaid
	case "invoice.payment_failed":
		return EventKindInvoicePaymentFailed
	default:
		return EventKindUnhandled
	}
}

// Event is a verified, parsed processor event envelope. Object stays raw
// until a handler decodes it into the payload type for its kind.
type Event struct {
	ID     string
	Type   string
	Kind   EventKind
	Object json.RawMessage
	Raw    []byte
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes the processor envelope {id, type, data:{object}}.
func ParseEvent(raw []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("malformed event envelope: %w", err)
	}
	if strings.TrimSpace(env.ID) == "" {
		return Event{}, fmt.Errorf("event envelope missing id")
	}
	if strings.TrimSpace(env.Type) == "" {
		return Event{}, fmt.Errorf("event envelope missing type")
	}
	return Event{
		ID:     env.ID,
		Type:   env.Type,
		Kind:   KindOf(env.Type),
		Object: env.Data.Object,
		Raw:    raw,
	}, nil
}

const (
	CheckoutModePayment      = "payment"
	CheckoutModeSubscription = "subscription"
)

// CheckoutSession is the decoded object of a checkout_completed event.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerID        string            `json:"customer"`
	SubscriptionID    string            `json:"subscription"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	CustomerEmail     string            `json:"customer_email"`
	Metadata          map[string]string `json:"metadata"`
}

// UserID resolves the local subscriber from the session's client reference,
// falling back to metadata set at session creation.
func (cs *CheckoutSession) UserID() (uint, error) {
	ref := strings.TrimSpace(cs.ClientReferenceID)
	if ref == "" {
		ref = strings.TrimSpace(cs.Metadata["user_id"])
	}
	if ref == "" {
		return 0, fmt.Errorf("checkout session %s carries no user reference", cs.ID)
	}
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("checkout session %s: bad user reference %q: %w", cs.ID, ref, err)
	}
	return uint(id), nil
}

// PriceRef returns the purchased price reference from session metadata.
func (cs *CheckoutSession) PriceRef() string {
	return strings.TrimSpace(cs.Metadata["price_ref"])
}

// ServiceRequestUUID returns the service-request reference for one-time
// service purchases, empty for subscription checkouts.
func (cs *CheckoutSession) ServiceRequestUUID() string {
	return strings.TrimSpace(cs.Metadata["service_request_uuid"])
}

// SubscriptionObject is the decoded object of the subscription lifecycle
// events. Period bounds arrive as unix seconds.
type SubscriptionObject struct {
	ID                 string            `json:"id"`
	CustomerID         string            `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// UserID resolves the local subscriber from subscription metadata.
func (so *SubscriptionObject) UserID() (uint, error) {
	ref := strings.TrimSpace(so.Metadata["user_id"])
	if ref == "" {
		return 0, fmt.Errorf("subscription %s carries no user reference", so.ID)
	}
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("subscription %s: bad user reference %q: %w", so.ID, ref, err)
	}
	return uint(id), nil
}

// PriceRef returns the price reference of the first line item.
func (so *SubscriptionObject) PriceRef() string {
	if len(so.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(so.Items.Data[0].Price.ID)
}

// Interval maps the line item's recurring interval to a billing interval.
func (so *SubscriptionObject) Interval() string {
	if len(so.Items.Data) == 0 {
		return ""
	}
	switch strings.ToLower(so.Items.Data[0].Price.Recurring.Interval) {
	case "year":
		return "annual"
	case "month":
		return "monthly"
	default:
		return ""
	}
}

// PeriodStart returns the authoritative period start, nil if absent.
func (so *SubscriptionObject) PeriodStart() *time.Time {
	return unixPtr(so.CurrentPeriodStart)
}

// PeriodEnd returns the authoritative period end, nil if absent.
func (so *SubscriptionObject) PeriodEnd() *time.Time {
	return unixPtr(so.CurrentPeriodEnd)
}

// InvoiceObject is the decoded object of the invoice outcome events.
type InvoiceObject struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscription"`
	CustomerID     string            `json:"customer"`
	AmountPaid     int64             `json:"amount_paid"`
	AmountDue      int64             `json:"amount_due"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	Metadata       map[string]string `json:"metadata"`
	LastError      struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// OccurredAt returns the invoice creation time, falling back to now when the
// processor omitted it.
func (inv *InvoiceObject) OccurredAt(now time.Time) time.Time {
	if t := unixPtr(inv.Created); t != nil {
		return *t
	}
	return now
}

// DecodeCheckoutSession decodes the event object as a checkout session.
func (e Event) DecodeCheckoutSession() (*CheckoutSession, error) {
	var cs CheckoutSession
	if err := json.Unmarshal(e.Object, &cs); err != nil {
		return nil, fmt.Errorf("event %s: malformed checkout session object: %w", e.ID, err)
	}
	return &cs, nil
}

// DecodeSubscription decodes the event object as a subscription.
func (e Event) DecodeSubscription() (*SubscriptionObject, error) {
	var so SubscriptionObject
	if err := json.Unmarshal(e.Object, &so); err != nil {
		return nil, fmt.Errorf("event %s: malformed subscription object: %w", e.ID, err)
	}
	return &so, nil
}

// DecodeInvoice decodes the event object as an invoice.
func (e Event) DecodeInvoice() (*InvoiceObject, error) {
	var inv InvoiceObject
	if err := json.Unmarshal(e.Object, &inv); err != nil {
		return nil, fmt.Errorf("event %s: malformed invoice object: %w", e.ID, err)
	}
	return &inv, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
