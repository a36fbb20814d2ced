// Package terminal turns typed lines into wizard events and draws wizard
// snapshots as text.
package terminal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/vsm-auth/internal/adminlogin"
	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
	ErrWrongPanel     = errors.New("not available on this panel")
)

// Action is what the caller should do with a parsed command.
type Action int

const (
	ActionEvents Action = iota // post Command.Events to the wizard
	ActionAdmin                // submit Command.Admin to the admin controller
	ActionLogout
	ActionHelp
	ActionQuit
	ActionNone // blank line
)

type Command struct {
	Action Action
	Events []wizard.Event
	Admin  adminlogin.Form
}

const Help = `commands:
  login | register           switch tabs
  set <field> <value>        fill an input (email, name, mobile)
  submit                     submit the visible form
  otp <digits>               type the code into the verify cells
  backspace                  erase at the focused verify cell
  resend                     request a new code once the timer runs out
  change-email               go back and edit the email
  admin <email> <password> [remember]
  logout | help | quit`

// fieldAliases maps the short names accepted by "set" to the input on each
// panel.
var fieldAliases = map[domain.Panel]map[string]domain.Field{
	domain.PanelLogin: {
		"email": domain.FieldLoginEmail,
	},
	domain.PanelRegister: {
		"name":   domain.FieldRegisterName,
		"email":  domain.FieldRegisterEmail,
		"mobile": domain.FieldRegisterMobile,
		"phone":  domain.FieldRegisterMobile,
	},
}

// Parse reads one input line against the snapshot currently on screen.
func Parse(line string, snap wizard.Snapshot) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Action: ActionNone}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "login":
		return events(wizard.Event{Kind: wizard.EventShowLogin}), nil
	case "register", "signup":
		return events(wizard.Event{Kind: wizard.EventShowRegister}), nil
	case "set":
		return parseSet(args, snap)
	case "submit":
		return parseSubmit(snap), nil
	case "otp", "code":
		return parseOtp(args, snap)
	case "backspace", "bs":
		if !snap.Visible(domain.PanelOTP) {
			return Command{}, fmt.Errorf("%s: %w", name, ErrWrongPanel)
		}
		return events(wizard.Event{Kind: wizard.EventOtpBackspace, Cell: focusedCell(snap)}), nil
	case "resend":
		return events(wizard.Event{Kind: wizard.EventResend}), nil
	case "change-email":
		return events(wizard.Event{Kind: wizard.EventChangeEmail}), nil
	case "admin":
		return parseAdmin(args)
	case "logout":
		return Command{Action: ActionLogout}, nil
	case "help", "?":
		return Command{Action: ActionHelp}, nil
	case "quit", "exit":
		return Command{Action: ActionQuit}, nil
	}
	return Command{}, fmt.Errorf("%q: %w", name, ErrUnknownCommand)
}

func events(evs ...wizard.Event) Command {
	return Command{Action: ActionEvents, Events: evs}
}

func parseSet(args []string, snap wizard.Snapshot) (Command, error) {
	if len(args) < 1 {
		return Command{}, fmt.Errorf("set <field> <value>: %w", ErrUsage)
	}
	field, ok := fieldAliases[snap.Panel][strings.ToLower(args[0])]
	if !ok {
		return Command{}, fmt.Errorf("set %s: %w", args[0], ErrWrongPanel)
	}
	value := strings.Join(args[1:], " ")
	return events(
		wizard.Event{Kind: wizard.EventFocus, Field: field},
		wizard.Event{Kind: wizard.EventInput, Field: field, Value: value},
	), nil
}

func parseSubmit(snap wizard.Snapshot) Command {
	switch snap.Panel {
	case domain.PanelRegister:
		return events(wizard.Event{Kind: wizard.EventSubmitRegister})
	case domain.PanelOTP:
		return events(wizard.Event{Kind: wizard.EventSubmitOtp})
	default:
		return events(wizard.Event{Kind: wizard.EventSubmitLogin})
	}
}

// parseOtp types each character into consecutive cells starting at the
// first one, the way the cells behave when a code is typed in one go.
func parseOtp(args []string, snap wizard.Snapshot) (Command, error) {
	if !snap.Visible(domain.PanelOTP) {
		return Command{}, fmt.Errorf("otp: %w", ErrWrongPanel)
	}
	code := strings.Join(args, "")
	if code == "" {
		return Command{}, fmt.Errorf("otp <digits>: %w", ErrUsage)
	}

	var evs []wizard.Event
	for i, r := range code {
		if i >= domain.OTPLength {
			break
		}
		evs = append(evs, wizard.Event{Kind: wizard.EventOtpInput, Cell: i, Value: string(r)})
	}
	return events(evs...), nil
}

func parseAdmin(args []string) (Command, error) {
	if len(args) < 2 || len(args) > 3 {
		return Command{}, fmt.Errorf("admin <email> <password> [remember]: %w", ErrUsage)
	}
	form := adminlogin.Form{Email: args[0], Password: args[1]}
	if len(args) == 3 {
		if !strings.EqualFold(args[2], "remember") {
			return Command{}, fmt.Errorf("admin: unexpected %q: %w", args[2], ErrUsage)
		}
		form.RememberMe = true
	}
	return Command{Action: ActionAdmin, Admin: form}, nil
}

// focusedCell is the index of the focused verify cell, or the first one.
func focusedCell(snap wizard.Snapshot) int {
	for i := range domain.OTPLength {
		if snap.Focus == domain.OTPCell(i) {
			return i
		}
	}
	return 0
}
