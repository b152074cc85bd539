package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/anonto42/nano-community/backend/internal/services"
)

// IDTokenVerifier checks Firebase ID tokens for the account service.
type IDTokenVerifier struct {
	client *auth.Client
}

func NewIDTokenVerifier(client *auth.Client) *IDTokenVerifier {
	return &IDTokenVerifier{client: client}
}

func (v *IDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*services.IdentityToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	identity := &services.IdentityToken{UID: token.UID}
	identity.Email, _ = token.Claims["email"].(string)
	identity.Name, _ = token.Claims["name"].(string)
	return identity, nil
}
