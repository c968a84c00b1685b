// Package jwt issues and verifies the HS256 access tokens used by the CRM
// frontends, and carries the verified claims through request contexts.
//
// Signing and verification are delegated to github.com/golang-jwt/jwt/v5.
// The subject of a token is the user id; the role and team ids are custom
// claims used for privileged endpoints and directory lookups.
//
// # Usage
//
//	svc, err := jwt.NewFromConfig(cfg)
//	token, err := svc.Generate("user-1", "advisor")
//	claims, err := svc.Parse(token)
//
//	r.Use(jwt.Middleware(svc))
//	claims, ok := jwt.GetClaims(r.Context())
//
// # Error Handling
//
// Parse returns ErrExpiredToken, ErrInvalidSignature, ErrUnexpectedSigningMethod
// or ErrMissingSubject for the common rejection reasons and wraps everything
// else with ErrInvalidToken.
package jwt
