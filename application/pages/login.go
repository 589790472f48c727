package pages

import (
	"context"
	"fmt"
	"strings"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
)

const (
	loginUsernameInput = "#username"
	loginPasswordInput = "#password"
	loginButton        = "#login-button"
	loginErrorMessage  = ".error-message"
	loginDashboard     = ".user-dashboard"
)

// LoginPage is the sign-in screen.
type LoginPage struct {
	*Base
}

// NewLoginPage builds the login page on driver.
func NewLoginPage(driver interfaces.Driver, opts Options) (*LoginPage, error) {
	base, err := NewBase(driver, entities.PageLogin, nil, opts)
	if err != nil {
		return nil, err
	}
	return &LoginPage{Base: base}, nil
}

// Authenticate fills the credentials and submits the form. It does not
// wait for the outcome; use IsLoggedIn or ErrorMessage for that.
func (p *LoginPage) Authenticate(ctx context.Context, username, password string) error {
	if err := p.Guard(); err != nil {
		return err
	}
	if err := p.Do(ctx, loginUsernameInput, entities.ActionFill, username); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := p.Do(ctx, loginPasswordInput, entities.ActionFill, password); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := p.Do(ctx, loginButton, entities.ActionClick); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	p.logger.WithField("user", username).Info("credentials submitted")
	return nil
}

// ErrorMessage returns the validation message, if one is shown.
func (p *LoginPage) ErrorMessage(ctx context.Context) (string, bool, error) {
	text, found, err := p.Text(ctx, loginErrorMessage)
	if err != nil || !found {
		return "", false, err
	}
	return strings.TrimSpace(text), true, nil
}

// IsLoggedIn reports whether the dashboard indicator is visible.
func (p *LoginPage) IsLoggedIn(ctx context.Context) (bool, error) {
	return p.Probe(ctx, loginDashboard)
}

var _ interfaces.Page = (*LoginPage)(nil)
