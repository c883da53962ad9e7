package billing

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
)

// IdentityResolver maps an email to a stable local user id. A zero id with a nil
// error means the email is unknown.
type IdentityResolver interface {
	LookupUserIDByEmail(ctx context.Context, email string) (uint, error)
}

// UserDirectory resolves identities against the local users table, which is
// populated on OAuth sign-in.
type UserDirectory struct {
	users repository.UserRepository
}

func NewUserDirectory(users repository.UserRepository) *UserDirectory {
	return &UserDirectory{users: users}
}

func (d *UserDirectory) LookupUserIDByEmail(ctx context.Context, email string) (uint, error) {
	_ = ctx
	email = models.NormalizeEmail(email)
	if email == "" {
		return 0, nil
	}
	u, err := d.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return u.ID, nil
}

// resolveIdentity prefers the signed-in session over any client supplied email.
// Resolution failures degrade to an email-only identity.
func (s *Service) resolveIdentity(ctx context.Context, caller Caller) Identity {
	if caller.SessionUserID != 0 {
		return Identity{UserID: caller.SessionUserID, Email: models.NormalizeEmail(caller.SessionEmail)}
	}

	email := models.NormalizeEmail(caller.SessionEmail)
	if email == "" {
		email = models.NormalizeEmail(caller.ClaimedEmail)
	}
	if email == "" {
		return Identity{}
	}

	id := Identity{Email: email}
	if s.identity == nil {
		return id
	}
	userID, err := s.identity.LookupUserIDByEmail(ctx, email)
	if err != nil {
		log.Warnf("[Billing] identity resolution failed for %s: %v", email, err)
		return id
	}
	id.UserID = userID
	return id
}
