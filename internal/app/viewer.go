package app

import (
	"net/http"

	"github.com/dmitrymomot/hostelkit/modules/billing"
	"github.com/dmitrymomot/hostelkit/pkg/jwt"
	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
	"github.com/dmitrymomot/hostelkit/svc/plan"
)

// ViewerClaims are issued by the identity service. The subject is the
// owner's user id.
type ViewerClaims struct {
	jwt.StandardClaims
	Role        plan.Role `json:"role,omitempty"`
	Email       string    `json:"email,omitempty"`
	PropertyIDs []string  `json:"property_ids,omitempty"`
}

// TokenViewer resolves the viewer from a bearer token. Event stream clients
// cannot set headers and pass the token as the "token" query parameter.
func TokenViewer(tokens *jwt.Service) billing.ViewerFunc {
	extract := jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("token"))
	return func(r *http.Request) (plan.Viewer, bool) {
		token, err := extract(r)
		if err != nil {
			return plan.Viewer{}, false
		}
		var c ViewerClaims
		if err := tokens.Parse(token, &c); err != nil || c.Subject == "" {
			return plan.Viewer{}, false
		}
		role := c.Role
		if role == "" {
			role = plan.RoleOwner
		}
		return plan.Viewer{
			UserID:      c.Subject,
			Role:        role,
			Email:       sanitizer.NormalizeEmail(c.Email),
			PropertyIDs: sanitizer.Deduplicate(sanitizer.CleanStringSlice(c.PropertyIDs)),
		}, true
	}
}
