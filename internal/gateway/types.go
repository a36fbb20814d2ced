package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTransport marks failures where no usable reply came back: the request
// could not be sent, or the body was not the expected JSON envelope.
var ErrTransport = errors.New("auth api unreachable")

// Endpoint is one call of the auth API. Name is the metrics label.
type Endpoint struct {
	Name string
	Path string
}

var (
	EndpointLoginOTP       = Endpoint{Name: "login_otp", Path: "/api/auth/login/otp"}
	EndpointRegisterOTP    = Endpoint{Name: "register_otp", Path: "/api/auth/register/otp"}
	EndpointLoginVerify    = Endpoint{Name: "login_verify", Path: "/api/auth/login/verify"}
	EndpointRegisterVerify = Endpoint{Name: "register_verify", Path: "/api/auth/register/verify"}
	EndpointResendOTP      = Endpoint{Name: "otp_resend", Path: "/api/auth/otp/resend"}
	EndpointAdminLogin     = Endpoint{Name: "admin_login", Path: "/auth/admin/login"}
)

// APIError is a business failure reported by the server ({"success": false}).
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected (status %d)", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s rejected: %s", e.Endpoint, e.Message)
}

// ServerMessage returns the message the server sent with err, if err is an
// *APIError carrying one.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type emailRequest struct {
	Email string `json:"email"`
}

type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type AdminLoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

// Reply is the decoded payload of a successful call.
type Reply struct {
	Message     string
	Token       string
	RedirectURL string
}

// tokenFromData accepts either a bare JSON string or an object carrying
// accessToken (or token). Anything else yields "".
func tokenFromData(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		AccessToken string `json:"accessToken"`
		Token       string `json:"token"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.AccessToken != "" {
			return obj.AccessToken
		}
		return obj.Token
	}
	return ""
}
