package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/app/repository"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/jobqueue"
	"github.com/DorianVeras/TradeGate/internal/pkg/mail"
	"github.com/DorianVeras/TradeGate/internal/pkg/session"
	"github.com/DorianVeras/TradeGate/internal/pkg/statistics"
)

type registerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	CompanyName    string `json:"company_name"`
	CompanyCountry string `json:"company_country"`
}

// HandleAuthRegister creates an inactive account and mails the activation link.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "malformed request body"})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	user.CompanyName = strings.TrimSpace(req.CompanyName)
	user.CompanyCountry = strings.ToUpper(strings.TrimSpace(req.CompanyCountry))
	if err := user.GenerateActivationToken(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if err := repo.Create(user); err != nil {
		// Do not leak which emails are registered.
		log.Printf("registration failed for %s: %v", req.Email, err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "registration_failed"})
	}

	// Deliver the activation mail in the background; fall back to a direct
	// send when the queue is unavailable.
	if _, err := jobqueue.EnqueueNotification(jobqueue.NotificationJobPayload{
		Kind:  jobqueue.NotificationAccountActivation,
		Email: user.Email,
		Token: user.ActivationToken,
	}); err != nil {
		log.Printf("queueing activation mail for user %d failed: %v", user.ID, err)
		if err := mail.NewNotifier().SendAccountActivation(user.Email, user.ActivationToken); err != nil {
			log.Printf("activation mail for user %d failed: %v", user.ID, err)
		}
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "message": "Account created. Please confirm your email address."})
}

// HandleAuthActivate activates an account via the mailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "token is required"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invalid_token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{"ok": true, "message": "Account activated."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthLogin verifies credentials and establishes a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "malformed request body"})
	}

	// notice: in production you should not inform the user
	// with detailed messages about login failures
	var user models.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil || !models.CheckPasswordHash(req.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials"})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account_inactive", "message": "Please confirm your email address first."})
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	database.GetDB().Model(&user).Update("last_login_at", time.Now())

	return c.JSON(fiber.Map{"ok": true, "user": fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}})
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(FROM_PROTECTED, false)

	return c.JSON(fiber.Map{"ok": true})
}
