package schema

// SessionData is the record kept between launches.
type SessionData struct {
	// Token is nil until a login succeeds.
	Token *string
}

// HasToken reports whether a session token is stored.
func (d SessionData) HasToken() bool {
	return d.Token != nil
}

// TokenValue returns the token and whether one is set.
func (d SessionData) TokenValue() (string, bool) {
	if d.Token == nil {
		return "", false
	}
	return *d.Token, true
}

// WithToken returns a copy of d holding token.
func (d SessionData) WithToken(token string) SessionData {
	d.Token = &token
	return d
}

// Clone returns a deep copy so callers never share the token pointer.
func (d SessionData) Clone() SessionData {
	if d.Token == nil {
		return SessionData{}
	}
	return d.WithToken(*d.Token)
}

// Equal compares two session records by value.
func (d SessionData) Equal(other SessionData) bool {
	a, aok := d.TokenValue()
	b, bok := other.TokenValue()
	return aok == bok && a == b
}

// LoginAttempt is the email/password pair typed into the login form.
type LoginAttempt struct {
	Email    string
	Password string
}

// FieldName identifies a login form field.
type FieldName string

const (
	// FieldEmail is the email input.
	FieldEmail FieldName = "email"
	// FieldPassword is the password input.
	FieldPassword FieldName = "password"
)

const (
	// ExitOK is the exit code for success and benign termination.
	ExitOK = 0
	// ExitFailure is the exit code for fatal faults.
	ExitFailure = 1
)
