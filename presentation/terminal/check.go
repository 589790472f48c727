package terminal

import (
	"context"
	"errors"
	"fmt"

	"pom_automation/application/pages"
	"pom_automation/application/retry"
	"pom_automation/application/session"
	"pom_automation/domain/entities"
)

// ErrLoginRejected is returned by LoginCheck when the credentials were
// submitted but the dashboard never showed up.
var ErrLoginRejected = errors.New("login rejected")

// LoginCheck opens the login page, signs in and verifies the dashboard.
func LoginCheck(ctx context.Context, s *session.Session, policy retry.Policy, user, password string) error {
	if user == "" {
		return errors.New("login check: LOGIN_USER is not set")
	}

	page, err := s.Open(entities.PageLogin, nil)
	if err != nil {
		return fmt.Errorf("login check: %w", err)
	}
	login := page.(*pages.LoginPage)

	if err := Visit(ctx, login, policy); err != nil {
		return fmt.Errorf("login check: %w", err)
	}
	if err := login.Authenticate(ctx, user, password); err != nil {
		return fmt.Errorf("login check: %w", err)
	}

	ok, err := login.IsLoggedIn(ctx)
	if err != nil {
		return fmt.Errorf("login check: %w", err)
	}
	if !ok {
		msg, shown, err := login.ErrorMessage(ctx)
		if err != nil {
			return fmt.Errorf("login check: %w", err)
		}
		if shown {
			return fmt.Errorf("login check: %w: %s", ErrLoginRejected, msg)
		}
		return fmt.Errorf("login check: %w", ErrLoginRejected)
	}
	return nil
}
