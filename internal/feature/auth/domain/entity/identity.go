package entity

import (
	"net/mail"
	"strings"

	"auth_backend/internal/feature/auth/domain"
)

// Identity is who a bearer credential speaks for.
type Identity struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// ProviderAssertion is a third-party identity claim whose authenticity has already been
// established by the provider exchange.
type ProviderAssertion struct {
	ProviderID string
	Email      string
	Name       string
	AvatarURL  string
}

// NewProviderAssertion trims and canonicalizes the loosely-typed provider fields and validates them.
// It returns a domain validation error when the subject or email is unusable.
func NewProviderAssertion(providerID, email, name, avatarURL string) (ProviderAssertion, error) {
	a := ProviderAssertion{
		ProviderID: providerID,
		Email:      email,
		Name:       name,
		AvatarURL:  avatarURL,
	}.Canonical()
	if err := a.Validate(); err != nil {
		return ProviderAssertion{}, err
	}
	return a, nil
}

// Canonical returns a copy with trimmed fields and the email in its unique-key form.
func (a ProviderAssertion) Canonical() ProviderAssertion {
	return ProviderAssertion{
		ProviderID: strings.TrimSpace(a.ProviderID),
		Email:      NormalizeEmail(a.Email),
		Name:       strings.TrimSpace(a.Name),
		AvatarURL:  strings.TrimSpace(a.AvatarURL),
	}
}

// Validate checks the fields the reconciler depends on.
func (a ProviderAssertion) Validate() error {
	if a.ProviderID == "" {
		return domain.New(domain.KindValidation, "provider identity is missing a subject")
	}
	if err := ValidateEmail(a.Email); err != nil {
		return err
	}
	return nil
}

// ValidateEmail validates email format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return domain.New(domain.KindValidation, "email is required")
	}
	// RFC 5321 limit
	if len(email) > 254 {
		return domain.New(domain.KindValidation, "email address is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.New(domain.KindValidation, "invalid email address format")
	}
	return nil
}
