package wizard

import (
	"strings"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
)

// OtpDigits are the digit cells of the verify panel. A cell is either empty
// or holds exactly one ASCII digit.
type OtpDigits struct {
	cells [domain.OTPLength]string
}

// Input replaces cell i with the first digit of raw, dropping anything that
// is not a digit. It reports whether focus should move to the next cell.
func (d *OtpDigits) Input(i int, raw string) (advance bool) {
	if i < 0 || i >= domain.OTPLength {
		return false
	}

	d.cells[i] = ""
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			d.cells[i] = string(r)
			break
		}
	}
	return d.cells[i] != "" && i < domain.OTPLength-1
}

// Backspace clears cell i. On an already empty cell other than the first it
// reports that focus should move back instead.
func (d *OtpDigits) Backspace(i int) (retreat bool) {
	if i < 0 || i >= domain.OTPLength {
		return false
	}
	if d.cells[i] == "" {
		return i > 0
	}
	d.cells[i] = ""
	return false
}

func (d *OtpDigits) Code() string {
	return strings.Join(d.cells[:], "")
}

func (d *OtpDigits) Cells() [domain.OTPLength]string {
	return d.cells
}

func (d *OtpDigits) Reset() {
	d.cells = [domain.OTPLength]string{}
}
