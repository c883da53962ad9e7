package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/session"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

// OAuthController signs users in with an external provider and links the
// provider identity to a local user. The local user is what billing keys on.
type OAuthController struct {
	repos *repository.Repositories
}

func NewOAuthController(repos *repository.Repositories) *OAuthController {
	return &OAuthController{repos: repos}
}

// HandleCallback completes the provider flow and logs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	appUser, err := oc.linkAccount(u)
	if err != nil {
		log.Errorf("[OAuth] linking %s account %s failed: %v", u.Provider, u.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("sign-in failed")
	}
	if !appUser.IsActive() {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "This account is disabled."}).Redirect("/")
	}

	store := session.GetSessionStore()
	if store == nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	// new session id on privilege change
	if err := sess.Regenerate(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, appUser.ID)
	sess.Set(USER_NAME, appUser.Name)
	sess.Set(USER_EMAIL, appUser.Email)
	sess.Set(USER_IS_ADMIN, appUser.IsAdmin())
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	if err := oc.repos.User.TouchLastLogin(appUser.ID); err != nil {
		log.Warnf("[OAuth] last login update for user %d failed: %v", appUser.ID, err)
	}

	// Ensure HTMX boosted flows perform a full redirect
	c.Set("HX-Redirect", "/")
	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": fmt.Sprintf("Signed in as %s", appUser.Email),
	}).Redirect("/", fiber.StatusSeeOther)
}

// linkAccount finds or creates the local user behind a provider identity and
// refreshes the stored provider tokens.
func (oc *OAuthController) linkAccount(u goth.User) (*models.User, error) {
	var exp *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		exp = &t
	}

	pa, err := oc.repos.ProviderAccount.GetByProviderUserID(u.Provider, u.UserID)
	switch {
	case err == nil:
		pa.AccessToken = u.AccessToken
		pa.RefreshToken = u.RefreshToken
		pa.ExpiresAt = exp
		if err := oc.repos.ProviderAccount.Save(pa); err != nil {
			return nil, fmt.Errorf("update tokens: %w", err)
		}
		appUser, err := oc.repos.User.GetByID(pa.UserID)
		if err != nil {
			return nil, fmt.Errorf("linked user %d: %w", pa.UserID, err)
		}
		return appUser, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	appUser, err := oc.findOrCreateUser(u)
	if err != nil {
		return nil, err
	}

	pa = &models.ProviderAccount{
		UserID:         appUser.ID,
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          models.NormalizeEmail(u.Email),
		AccessToken:    u.AccessToken,
		RefreshToken:   u.RefreshToken,
		ExpiresAt:      exp,
	}
	if err := oc.repos.ProviderAccount.Create(pa); err != nil {
		return nil, fmt.Errorf("link provider: %w", err)
	}
	return appUser, nil
}

func (oc *OAuthController) findOrCreateUser(u goth.User) (*models.User, error) {
	email := models.NormalizeEmail(u.Email)
	if email != "" {
		existing, err := oc.repos.User.GetByEmail(email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		// unique, non-empty placeholder for providers that withhold the address
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}

	appUser, err := models.NewOAuthUser(firstNonEmpty(u.Name, u.NickName, u.Email, "User"), email, u.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("invalid user profile: %w", err)
	}
	if err := oc.repos.User.Create(appUser); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return appUser, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// HandleSession reports who is signed in and which providers are linked to the
// account. Checkout pages use it to prefill the payer.
func (oc *OAuthController) HandleSession(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.JSON(fiber.Map{"authenticated": false, "user": nil})
	}

	userID := usercontext.GetUserID(c)
	providers := []string{}
	accounts, err := oc.repos.ProviderAccount.ListByUserID(userID)
	if err != nil {
		log.Warnf("[OAuth] listing provider accounts of user %d failed: %v", userID, err)
	}
	for _, pa := range accounts {
		providers = append(providers, pa.Provider)
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":        userID,
			"name":      usercontext.GetUsername(c),
			"email":     usercontext.GetEmail(c),
			"providers": providers,
		},
	})
}
