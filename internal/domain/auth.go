package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidOTP         = errors.New("otp must be exactly 4 digits")
	ErrResendLocked       = errors.New("resend is locked until the countdown expires")
	ErrNoPendingChallenge = errors.New("no otp challenge in progress")
)

// FlowMode records which submission produced the active OTP challenge.
type FlowMode int

const (
	FlowLogin FlowMode = iota
	FlowRegister
)

func (f FlowMode) String() string {
	switch f {
	case FlowLogin:
		return "login"
	case FlowRegister:
		return "register"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// Panel is one of the three mutually exclusive wizard views.
type Panel int

const (
	PanelLogin Panel = iota
	PanelRegister
	PanelOTP
)

func (p Panel) String() string {
	switch p {
	case PanelLogin:
		return "login"
	case PanelRegister:
		return "register"
	case PanelOTP:
		return "otp-verify"
	default:
		return fmt.Sprintf("panel(%d)", int(p))
	}
}

// Form names a form that can carry a banner.
type Form string

const (
	FormLogin    Form = "login"
	FormRegister Form = "register"
	FormOTP      Form = "otp"
	FormAdmin    Form = "admin"
)

// Field names an input that can carry a value, focus and an inline error.
type Field string

const (
	FieldLoginEmail     Field = "loginEmail"
	FieldRegisterName   Field = "registerName"
	FieldRegisterEmail  Field = "registerEmail"
	FieldRegisterMobile Field = "registerMobile"
	FieldAdminEmail     Field = "adminEmail"
	FieldAdminPassword  Field = "adminPassword"
)

// OTPLength is the number of digit cells on the verify panel.
const OTPLength = 4

// OTPCell returns the field name of cell i (0-based).
func OTPCell(i int) Field {
	return Field(fmt.Sprintf("otp%d", i+1))
}

// EmailField returns the email input of the form that starts flow f.
func EmailField(f FlowMode) Field {
	if f == FlowRegister {
		return FieldRegisterEmail
	}
	return FieldLoginEmail
}

// TokenKey is the storage key the auth token is persisted under.
const TokenKey = "authToken"
