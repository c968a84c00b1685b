package realtime

import (
	"context"

	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
)

// Authenticator resolves a connection credential to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, credential string) (string, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// JWTAuthenticator accepts access tokens issued by the jwt service; the token
// subject is the user id.
func JWTAuthenticator(svc *jwt.Service) Authenticator {
	return AuthenticatorFunc(func(_ context.Context, credential string) (string, error) {
		claims, err := svc.Parse(credential)
		if err != nil {
			return "", err
		}
		return claims.UserID(), nil
	})
}
