package google

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

var errMissingEmail = errors.New("email not found in claims")

type Verifier struct {
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewVerifier() ports.TokenVerifier {
	return &Verifier{validate: idtoken.Validate}
}

// Verify checks the Google ID token against clientID. Accounts without a
// display name fall back to the email address.
func (v *Verifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := v.validate(ctx, token, clientID)
	if err != nil {
		return nil, err
	}
	email, ok := payload.Claims["email"].(string)
	if !ok || email == "" {
		return nil, errMissingEmail
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, errors.New("email not verified")
	}
	name, ok := payload.Claims["name"].(string)
	if !ok || name == "" {
		name = email
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
