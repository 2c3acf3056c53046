// Package auth is the authorization guard: it validates bearer tokens,
// resolves the caller to an identity record, and gates routes by role.
// Ownership checks (resource owner vs. caller) are a second layer applied
// inside each domain service; admins bypass ownership there, never role
// gating here.
package auth

import "context"

// Roles recognized across the service.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// Identity is the resolved caller attached to every authenticated request.
type Identity struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	FederatedSub   string `json:"federated_sub,omitempty"`

	// Fallback marks an identity synthesized for a federated login with no
	// local user record. It carries the default patient role and exists so
	// first-time federated logins can reach profile creation. Treat as
	// degraded trust.
	Fallback bool `json:"-"`
}

// IsAdmin reports whether the identity holds the admin role.
func (id *Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// Owns reports whether the identity owns a resource attributed to the given
// email. Admins own everything.
func (id *Identity) Owns(ownerEmail string) bool {
	return id.IsAdmin() || id.Email == ownerEmail
}

// ResolutionKind tags how a federated token was matched to an identity.
type ResolutionKind int

const (
	// Resolved means a local user record was found.
	Resolved ResolutionKind = iota
	// ResolvedFallback means no local record existed and a minimal
	// patient-role identity was synthesized.
	ResolvedFallback
)

// Resolution is the outcome of federated identity resolution.
type Resolution struct {
	Kind     ResolutionKind
	Identity *Identity
}

// UserDirectory looks up local user records during federated token
// resolution. Implementations return (nil, nil) when no record matches;
// errors are reserved for storage failures.
type UserDirectory interface {
	FindByFederatedSub(ctx context.Context, sub string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}

type contextKey string

const identityKey contextKey = "auth_identity"

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the resolved identity, or nil when the request
// was not authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
