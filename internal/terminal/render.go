package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
)

// Render writes the visible panel of snap to w.
func Render(w io.Writer, snap wizard.Snapshot) error {
	var b strings.Builder

	b.WriteString(tabs(snap.ActiveTab))
	b.WriteByte('\n')

	switch snap.Panel {
	case domain.PanelLogin:
		b.WriteString("Sign in\n")
		field(&b, snap, "email", domain.FieldLoginEmail)
		banner(&b, snap, domain.FormLogin)
	case domain.PanelRegister:
		b.WriteString("Create account\n")
		field(&b, snap, "name", domain.FieldRegisterName)
		field(&b, snap, "email", domain.FieldRegisterEmail)
		field(&b, snap, "mobile", domain.FieldRegisterMobile)
		banner(&b, snap, domain.FormRegister)
	case domain.PanelOTP:
		renderOtp(&b, snap)
	}

	if snap.Location != "" {
		fmt.Fprintf(&b, "-> %s\n", snap.Location)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func tabs(active domain.FlowMode) string {
	login, register := " Login ", " Register "
	if active == domain.FlowRegister {
		register = "[Register]"
	} else {
		login = "[Login]"
	}
	return login + " " + register
}

func field(b *strings.Builder, snap wizard.Snapshot, label string, f domain.Field) {
	cursor := " "
	if snap.Focus == f {
		cursor = ">"
	}
	fmt.Fprintf(b, "%s %-7s %s\n", cursor, label+":", snap.Inputs[f])
	if msg, ok := snap.FieldErrors[f]; ok {
		fmt.Fprintf(b, "          ! %s\n", msg)
	}
}

func banner(b *strings.Builder, snap wizard.Snapshot, form domain.Form) {
	if bn, ok := snap.Banners[form]; ok {
		fmt.Fprintf(b, "[%s] %s\n", bn.Kind, bn.Text)
	}
}

func renderOtp(b *strings.Builder, snap wizard.Snapshot) {
	if snap.Completion != "" {
		fmt.Fprintf(b, "%s\n", snap.Completion)
		return
	}

	fmt.Fprintf(b, "Enter the code sent to %s\n", snap.EmailDisplay)
	for i, d := range snap.OTP {
		if d == "" {
			d = "_"
		}
		if snap.Focus == domain.OTPCell(i) {
			fmt.Fprintf(b, "[%s]", d)
		} else {
			fmt.Fprintf(b, " %s ", d)
		}
	}
	b.WriteByte('\n')

	b.WriteString(CountdownLine(snap))
	b.WriteByte('\n')
	banner(b, snap, domain.FormOTP)
}

// CountdownLine is the single line redrawn on every tick.
func CountdownLine(snap wizard.Snapshot) string {
	if snap.ResendEnabled {
		return "resend available"
	}
	return "resend in " + snap.CountdownLabel
}
