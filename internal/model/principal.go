package model

// Principal is the authenticated user as described by the identity provider.
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	PhotoURL      string `json:"photoURL"`
	AccessToken   string `json:"-"`
}

// Label is the name shown next to records the principal creates.
func (p Principal) Label() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Email != "":
		return p.Email
	default:
		return "Anonymous"
	}
}
