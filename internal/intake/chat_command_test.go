package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHoldCommandAcceptsWellFormed(t *testing.T) {
	cmd, err := ParseHoldCommand("HOLD 42 3")
	assert.NoError(t, err)
	assert.Equal(t, HoldCommand{TripID: 42, SeatCount: 3}, cmd)
}

func TestParseHoldCommandIsCaseInsensitiveOnKeyword(t *testing.T) {
	cmd, err := ParseHoldCommand("hold 7 1")
	assert.NoError(t, err)
	assert.Equal(t, HoldCommand{TripID: 7, SeatCount: 1}, cmd)
}

func TestParseHoldCommandRejectsFreeformText(t *testing.T) {
	_, err := ParseHoldCommand("hey can I book 2 seats for tomorrow's trip?")
	assert.ErrorIs(t, err, ErrNotAHoldCommand)
}

func TestParseHoldCommandRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseHoldCommand("HOLD 42")
	assert.ErrorIs(t, err, ErrNotAHoldCommand)
}

func TestParseHoldCommandRejectsZeroSeatCount(t *testing.T) {
	_, err := ParseHoldCommand("HOLD 42 0")
	assert.ErrorIs(t, err, ErrNotAHoldCommand)
}

func TestParseHoldCommandRejectsNonNumericFields(t *testing.T) {
	_, err := ParseHoldCommand("HOLD abc 3")
	assert.ErrorIs(t, err, ErrNotAHoldCommand)
}
