package owen

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// addrBitsChoices are the address widths the protocol supports. The two-byte
// wire address holds the configured address left-aligned in the high bits.
var addrBitsChoices = [...]int{8, 11}

// Transactor is one mutually exclusive request/response exchange on the
// serial line shared by every device on the bus. An implementation returns
// whatever bytes arrived before its read deadline, possibly none.
type Transactor interface {
	Transact(request []byte, expect int) ([]byte, error)
}

// Device is one addressed СИ8 counter on the bus.
type Device struct {
	addr     int
	addrBits int
	wire     [2]byte
}

// New validates the address against the chosen width and precomputes the
// two-byte wire address.
func New(addr, addrBits int) (*Device, error) {
	ok := false
	for _, n := range addrBitsChoices {
		if addrBits == n {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: address width %d, want one of %v", ErrMisconfigured, addrBits, addrBitsChoices)
	}
	maxAddr := 1<<addrBits - 1
	if addr < 0 || addr > maxAddr {
		return nil, fmt.Errorf("%w: address %d out of range 0-%d", ErrMisconfigured, addr, maxAddr)
	}
	d := &Device{addr: addr, addrBits: addrBits}
	binary.BigEndian.PutUint16(d.wire[:], uint16(addr<<(16-addrBits)))
	return d, nil
}

// Addr returns the configured bus address.
func (d *Device) Addr() int { return d.addr }

// CommandPacket builds the binary request frame for one parameter:
// wire address, parameter ID, request flag, CRC.
func (d *Device) CommandPacket(pid []byte) ([]byte, error) {
	if len(pid) != 2 {
		return nil, fmt.Errorf("%w: got %d bytes, want 2", ErrBadParameterLength, len(pid))
	}
	packet := make([]byte, 0, 6)
	packet = append(packet, d.wire[0], d.wire[1])
	packet = append(packet, pid...)
	packet[1] |= requestFlag
	return append(packet, Checksum(packet)...), nil
}

// checkPacket validates a decoded binary response against the request and
// returns its payload.
func (d *Device) checkPacket(data []byte, pid Parameter) ([]byte, error) {
	if len(data) < 6 {
		return nil, ErrBadLength
	}
	if !bytes.Equal(Checksum(data[:len(data)-2]), data[len(data)-2:]) {
		return nil, &DecodeError{Reason: "crc mismatch", Packet: data}
	}
	// The low five bits of the second address byte carry the payload length
	// nibble; only the address bits take part in the comparison.
	if data[0] != d.wire[0] || data[1]&0xE0 != d.wire[1] {
		return nil, &DecodeError{Reason: "addr mismatch", Packet: data}
	}
	if data[2] != pid[0] || data[3] != pid[1] {
		return nil, &DecodeError{Reason: "pid mismatch", Packet: data}
	}
	return data[4 : len(data)-2], nil
}

// ReadParameter performs one read transaction on the line and decodes the
// answer. An empty read maps to ErrTimeout; framing and payload errors
// propagate unchanged.
func (d *Device) ReadParameter(line Transactor, pid Parameter) (Value, error) {
	spec, ok := params[pid]
	if !ok {
		return nil, fmt.Errorf("%w: % X", ErrUnsupportedParameter, pid[:])
	}
	request, err := d.CommandPacket(pid[:])
	if err != nil {
		return nil, err
	}
	response, err := line.Transact(BinToASCII(request), spec.responseLen)
	if err != nil {
		return nil, err
	}
	if len(response) == 0 {
		return nil, ErrTimeout
	}
	bin, err := ASCIIToBin(response)
	if err != nil {
		return nil, err
	}
	payload, err := d.checkPacket(bin, pid)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrBadLength
	}
	return spec.convert(payload)
}
