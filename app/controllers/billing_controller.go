package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DorianVeras/TradeGate/internal/pkg/billing"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/env"
	"github.com/DorianVeras/TradeGate/internal/pkg/jobqueue"
	"github.com/DorianVeras/TradeGate/internal/pkg/metering"
)

// billingService wires the billing service with its collaborators.
func billingService() *billing.Service {
	db := database.GetDB()
	return billing.NewService(
		billing.NewRepository(db),
		metering.NewServiceFromDB(db),
		jobqueue.NewAsyncMailer(),
	)
}

// HandleBillingWebhook receives payment processor events on POST /billing/events.
// The signature covers the raw body, so it is verified before any parsing.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("X-Signature")
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	if !billing.VerifyWebhookSignature(rawBody, signature, secret) {
		log.Printf("[Billing] rejected webhook delivery with invalid signature from %s", GetClientIP(c))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := billing.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admit, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		EventID:     ev.ID,
		EventType:   ev.Type,
		PayloadJSON: string(rawBody),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !admit {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	if err := svc.ProcessEvent(ctx, &ev); err != nil {
		log.Printf("[Billing] processing event %s (%s) failed: %v", ev.ID, ev.Type, err)
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		// Non-2xx so the processor redelivers.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, nil); err != nil {
		log.Printf("[Billing] marking event %s processed failed: %v", ev.ID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
