package domain

const (
	MsgUsernameRequired   = "Username is required"
	MsgUsernameNotFound   = "Username not found"
	MsgPasswordRequired   = "Password required"
	MsgWrongCredentials   = "Wrong credentials"
	MsgInvalidCredentials = "Invalid credentials"
	MsgTooManyAttempts    = "Too many failed attempts, try again later"
	MsgLoginSuccessful    = "Login successful"
)

// LoginResult is the outcome of a login attempt. Token is non-empty only
// when authentication succeeded.
type LoginResult struct {
	Token   string      `json:"token"`
	User    *PublicUser `json:"user"`
	Message string      `json:"message"`
}

// Succeeded reports whether the login produced a token.
func (r *LoginResult) Succeeded() bool {
	return r != nil && r.Token != ""
}

// TokenClaims is the identity payload signed into a bearer token.
// Role holds the primary role (first assigned); Roles carries the full set.
type TokenClaims struct {
	UserID   string
	Username string
	Role     string
	Roles    []string
}
