package jobqueue

import (
	"fmt"

	"github.com/DorianVeras/TradeGate/internal/pkg/mail"
)

// processNotificationJob delivers a queued mail notification
func (q *Queue) processNotificationJob(job *Job) error {
	payload, err := NotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if payload.Email == "" {
		return fmt.Errorf("notification job %s has no recipient", job.ID)
	}

	notifier := mail.NewNotifier()
	switch payload.Kind {
	case NotificationAccountActivation:
		return notifier.SendAccountActivation(payload.Email, payload.Token)
	case NotificationPaymentConfirmation:
		return notifier.SendServicePaymentConfirmation(payload.Email, payload.ServiceType)
	default:
		return fmt.Errorf("unknown notification kind: %s", payload.Kind)
	}
}

// EnqueueNotification queues an outbound mail for background delivery
func EnqueueNotification(payload NotificationJobPayload) (*Job, error) {
	return GetManager().GetQueue().EnqueueJob(JobTypeNotification, payload.ToMap())
}

// AsyncMailer sends billing mails through the job queue instead of blocking
// the request on SMTP.
type AsyncMailer struct{}

// NewAsyncMailer creates a queue-backed mailer
func NewAsyncMailer() AsyncMailer {
	return AsyncMailer{}
}

// SendServicePaymentConfirmation queues a payment confirmation mail
func (AsyncMailer) SendServicePaymentConfirmation(toEmail, serviceType string) error {
	_, err := EnqueueNotification(NotificationJobPayload{
		Kind:        NotificationPaymentConfirmation,
		Email:       toEmail,
		ServiceType: serviceType,
	})
	return err
}
