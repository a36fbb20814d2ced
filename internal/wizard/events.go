package wizard

import "github.com/ErlanBelekov/vsm-auth/internal/domain"

type EventKind int

const (
	EventShowLogin EventKind = iota
	EventShowRegister
	EventInput // Field, Value
	EventSubmitLogin
	EventSubmitRegister
	EventOtpInput     // Cell, Value
	EventOtpBackspace // Cell
	EventSubmitOtp
	EventResend
	EventChangeEmail
	EventCountdownTick // ID = countdown generation
	EventBannerExpired // Form, ID = banner id
	EventFocus         // Field
	EventNavigate      // Value = location
)

var eventNames = map[EventKind]string{
	EventShowLogin:      "show_login",
	EventShowRegister:   "show_register",
	EventInput:          "input",
	EventSubmitLogin:    "submit_login",
	EventSubmitRegister: "submit_register",
	EventOtpInput:       "otp_input",
	EventOtpBackspace:   "otp_backspace",
	EventSubmitOtp:      "submit_otp",
	EventResend:         "resend",
	EventChangeEmail:    "change_email",
	EventCountdownTick:  "countdown_tick",
	EventBannerExpired:  "banner_expired",
	EventFocus:          "focus",
	EventNavigate:       "navigate",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one message to the orchestrator. Only the fields named next to
// its Kind are read.
type Event struct {
	Kind  EventKind
	Field domain.Field
	Form  domain.Form
	Cell  int
	Value string
	ID    uint64

	// timer is set on events fired by a delayed action the orchestrator
	// still holds a cancel func for.
	timer uint64
}
