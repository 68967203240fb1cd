// Package jwt verifies the HS256 tokens the identity service issues to
// property owners and operators.
//
// Billing does not authenticate users itself. It shares a signing key with
// the identity service, parses the bearer token of each request into a
// claims struct and trusts the subject as the user id.
//
//	tokens, err := jwt.NewFromString(cfg.JWTSecret)
//	extract := jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("token"))
//
//	raw, err := extract(r)
//	var claims struct {
//	    jwt.StandardClaims
//	    Role string `json:"role"`
//	}
//	err = tokens.Parse(raw, &claims)
//
// Generate exists for tests and local tooling.
package jwt
