package entity

// HydrationState is the outcome of resolving a session into an identity
type HydrationState string

const (
	HydrationBooting         HydrationState = "BOOTING"
	HydrationUnauthenticated HydrationState = "UNAUTHENTICATED"
	HydrationAuthenticated   HydrationState = "AUTHENTICATED"
)

// Identity is the unified view of who is signed in and where they work.
// Clinic is nil for admins and for staff whose clinic row is missing.
type Identity struct {
	User   AppUser `json:"user"`
	Clinic *Clinic `json:"clinic"`
}

// IdentityResult carries either a full identity or none at all. TokenID is
// the access token the identity was resolved from.
type IdentityResult struct {
	State    HydrationState `json:"state"`
	Identity *Identity      `json:"identity,omitempty"`
	TokenID  string         `json:"-"`
}

// Unauthenticated is the collapsed result used for every resolution failure
func Unauthenticated() IdentityResult {
	return IdentityResult{State: HydrationUnauthenticated}
}

// IsAuthenticated checks that the result carries an identity
func (r IdentityResult) IsAuthenticated() bool {
	return r.State == HydrationAuthenticated && r.Identity != nil
}
