package wizard_test

import (
	"testing"

	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
	"github.com/stretchr/testify/assert"
)

func TestOtpDigits_InputAdvances(t *testing.T) {
	var d wizard.OtpDigits
	assert.True(t, d.Input(0, "1"))
	assert.True(t, d.Input(1, "2"))
	assert.True(t, d.Input(2, "3"))
	assert.False(t, d.Input(3, "4"), "last cell never advances")
	assert.Equal(t, "1234", d.Code())
}

func TestOtpDigits_StripsNonDigits(t *testing.T) {
	var d wizard.OtpDigits
	assert.False(t, d.Input(0, "a"))
	assert.Equal(t, "", d.Cells()[0])

	assert.True(t, d.Input(0, "x7"))
	assert.Equal(t, "7", d.Cells()[0])

	assert.True(t, d.Input(1, "98"), "a cell keeps a single digit")
	assert.Equal(t, "9", d.Cells()[1])
}

func TestOtpDigits_Backspace(t *testing.T) {
	var d wizard.OtpDigits
	d.Input(0, "1")

	assert.False(t, d.Backspace(0), "first cell never retreats")
	assert.Equal(t, "", d.Cells()[0])
	assert.False(t, d.Backspace(0))

	d.Input(1, "2")
	assert.False(t, d.Backspace(1), "non-empty cell is cleared, focus stays")
	assert.True(t, d.Backspace(1), "empty cell retreats")
}

func TestOtpDigits_OutOfRange(t *testing.T) {
	var d wizard.OtpDigits
	assert.False(t, d.Input(4, "1"))
	assert.False(t, d.Input(-1, "1"))
	assert.False(t, d.Backspace(7))
	assert.Equal(t, "", d.Code())
}

func TestOtpDigits_Reset(t *testing.T) {
	var d wizard.OtpDigits
	d.Input(0, "1")
	d.Input(1, "2")
	d.Reset()
	assert.Equal(t, "", d.Code())
}
