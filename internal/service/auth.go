package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
)

const minPasswordLength = 6

// Login checks the credentials and returns the matching user. Legacy
// plaintext passwords are replaced by a hash on the first successful login.
func (s *Service) Login(ctx context.Context, email string, password string) (domain.User, error) {
	if s.passwords == nil {
		return domain.User{}, errors.New("password hashing is not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	match, legacy := s.passwords.CheckPassword(user.Password, password)
	if !match {
		return domain.User{}, ErrInvalidCredentials
	}
	if legacy {
		if hashed, err := s.passwords.HashPassword(password); err == nil {
			if err := s.repo.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
				log.Printf("[auth] WARN: failed to upgrade legacy password user=%s: %v", user.ID, err)
			}
		}
	}

	out := *user
	out.Password = ""
	return out, nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	actor, err := s.authorize(ctx, access.PasswordChange)
	if err != nil {
		return err
	}
	if s.passwords == nil {
		return errors.New("password hashing is not configured")
	}
	if len(req.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", store.ErrInvalidTransaction, minPasswordLength)
	}

	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if match, _ := s.passwords.CheckPassword(user.Password, req.OldPassword); !match {
		return fmt.Errorf("%w: current password is incorrect", store.ErrInvalidTransaction)
	}

	hashed, err := s.passwords.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.logAudit(ctx, user.LocationID, "password_change", "user", user.ID, "")
	return nil
}
