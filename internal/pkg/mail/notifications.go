package mail

import (
	"fmt"

	"github.com/DorianVeras/TradeGate/internal/pkg/env"
)

// Notifier sends the transactional mails the platform produces. It satisfies
// the billing package's mailer dependency.
type Notifier struct{}

// NewNotifier creates a mail notifier backed by the SMTP sender.
func NewNotifier() Notifier {
	return Notifier{}
}

// SendAccountActivation mails the activation link for a fresh registration.
func (Notifier) SendAccountActivation(toEmail, activationToken string) error {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	link := fmt.Sprintf("%s/activate?token=%s", base, activationToken)
	body := fmt.Sprintf(
		"<p>Welcome to TradeGate!</p>"+
			"<p>Please confirm your email address by opening the link below:</p>"+
			"<p><a href=\"%s\">%s</a></p>",
		link, link,
	)
	return SendMail(toEmail, "Activate your TradeGate account", body)
}

// SendServicePaymentConfirmation confirms a settled one-time service payment.
func (Notifier) SendServicePaymentConfirmation(toEmail, serviceType string) error {
	body := fmt.Sprintf(
		"<p>Thank you for your purchase.</p>"+
			"<p>We received your payment for <strong>%s</strong>. Our compliance team "+
			"will reach out within one business day to schedule the work.</p>",
		serviceType,
	)
	return SendMail(toEmail, "Payment received - TradeGate services", body)
}
