package login

import "fmt"

// State is the login flow's current stage.
type State int

const (
	// StateForm shows the credential form, possibly with an error.
	StateForm State = iota
	// StateSubmitting waits for the login endpoint.
	StateSubmitting
	// StateCaptchaPending waits for the user to finish the browser challenge.
	StateCaptchaPending
	// StateSuccess holds a token.
	StateSuccess
	// StateAbandoned is terminal; the user closed the captcha window.
	StateAbandoned
	// StateFailed is terminal; a fatal fault stopped the flow.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateForm:
		return "form"
	case StateSubmitting:
		return "submitting"
	case StateCaptchaPending:
		return "captcha_pending"
	case StateSuccess:
		return "success"
	case StateAbandoned:
		return "abandoned"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateAbandoned || s == StateFailed
}

const (
	// LabelLoggingIn is shown while the credentials are being checked.
	LabelLoggingIn = "Logging in..."
	// LabelLoading is shown once a token is available.
	LabelLoading = "Loading..."
	// LabelCaptcha is shown while the browser challenge is open.
	LabelCaptcha = "Complete the captcha in the browser window..."
	// MsgIncorrectLogin is the form error for rejected credentials.
	MsgIncorrectLogin = "Incorrect login info"
)
