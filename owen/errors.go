package owen

import (
	"errors"
	"fmt"
)

// Errors surfaced by the codec and the device layer. The polling loop keys
// its handling off ErrTimeout; everything else is logged and suppressed.
var (
	// ErrMisconfigured reports an invalid device address or address width.
	ErrMisconfigured = errors.New("device misconfigured")

	// ErrBadParameterLength reports a parameter ID that is not two bytes.
	ErrBadParameterLength = errors.New("bad parameter id length")

	// ErrUnsupportedParameter reports a parameter the device cannot read.
	ErrUnsupportedParameter = errors.New("unsupported parameter")

	// ErrBadHeader reports an ASCII packet that does not start with '#'.
	ErrBadHeader = errors.New("bad packet header")

	// ErrBadFooter reports an ASCII packet that does not end with '\r'.
	ErrBadFooter = errors.New("bad packet footer")

	// ErrBadLength reports a binary response too short to carry a payload.
	ErrBadLength = errors.New("bad packet length")

	// ErrBadBCD reports a payload nibble outside the decimal range.
	ErrBadBCD = errors.New("bad BCD value")

	// ErrBadTime reports a clock payload that cannot form a duration.
	ErrBadTime = errors.New("bad clock value")

	// ErrTimeout reports an empty serial read: the device did not answer
	// within the line's read deadline.
	ErrTimeout = errors.New("device did not answer")
)

// DecodeError reports a structurally broken or mismatched response packet.
// Reason distinguishes invalid characters, CRC mismatches, and address or
// parameter mismatches against the request.
type DecodeError struct {
	Reason string
	Packet []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode packet % X: %s", e.Packet, e.Reason)
}
