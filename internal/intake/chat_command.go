package intake

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotAHoldCommand is returned when a text message isn't the fixed HOLD
// command grammar. It is not an error worth surfacing to the sender — a
// chat-driven hold request is one of several things a text message might
// be, free-form replies being the common case.
var ErrNotAHoldCommand = errors.New("intake: not a hold command")

// HoldCommand is a customer's structured request to hold seats on a trip,
// parsed from a fixed "HOLD <trip_id> <seat_count>" grammar. This is
// deliberately not natural-language understanding: the chat platform's
// quick-reply/template feature is expected to be what actually sends this
// exact shape, with free-form text falling through unrecognized.
type HoldCommand struct {
	TripID    uint64
	SeatCount uint32
}

// ParseHoldCommand recognizes the fixed "HOLD <trip_id> <seat_count>"
// command, case-insensitive on the keyword, tolerant of extra whitespace.
func ParseHoldCommand(text string) (HoldCommand, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 || !strings.EqualFold(fields[0], "HOLD") {
		return HoldCommand{}, ErrNotAHoldCommand
	}

	tripID, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil || tripID == 0 {
		return HoldCommand{}, ErrNotAHoldCommand
	}
	seatCount, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil || seatCount == 0 {
		return HoldCommand{}, ErrNotAHoldCommand
	}

	return HoldCommand{TripID: tripID, SeatCount: uint32(seatCount)}, nil
}
