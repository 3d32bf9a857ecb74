package utils

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Frame is a classical CAN frame as seen by the codec: the payload is always
// 8 bytes, zero padded past Length.
type Frame struct {
	ID       uint32
	Extended bool
	Remote   bool
	Error    bool
	Length   uint8
	Data     [8]byte
}

// FromEinrideFrame converts a frame received through SocketCAN.
func FromEinrideFrame(f can.Frame) Frame {
	return Frame{
		ID:       f.ID,
		Extended: f.IsExtended,
		Remote:   f.IsRemote,
		Length:   f.Length,
		Data:     [8]byte(f.Data),
	}
}

// FromErrorFrame rebuilds a SocketCAN error frame: the error class bits
// become the identifier and the detail bytes keep their can_frame positions.
func FromErrorFrame(ef socketcan.ErrorFrame) Frame {
	f := Frame{
		ID:     uint32(ef.ErrorClass) & EFFMask,
		Error:  true,
		Length: 8,
	}
	f.Data[0] = ef.LostArbitrationBit
	f.Data[1] = byte(ef.ControllerError)
	f.Data[2] = byte(ef.ProtocolError)
	f.Data[3] = byte(ef.ProtocolViolationErrorLocation)
	f.Data[4] = byte(ef.TransceiverError)
	copy(f.Data[5:], ef.ControllerSpecificInformation[:])
	return f
}

func (f Frame) Einride() can.Frame {
	return can.Frame{
		ID:         f.ID,
		Length:     f.Length,
		Data:       can.Data(f.Data),
		IsRemote:   f.Remote,
		IsExtended: f.Extended,
	}
}

// MarshalBinary encodes the frame in the Linux struct can_frame layout:
//
//	0..3  can_id with EFF/RTR/ERR flags (little endian)
//	4     can_dlc
//	5..7  padding
//	8..15 data
func (f Frame) MarshalBinary() ([]byte, error) {
	if f.Length > 8 {
		return nil, errors.Newf("frame 0x%X: invalid length %d", f.ID, f.Length)
	}
	id := f.ID
	switch {
	case f.Extended:
		id = (id & EFFMask) | EFFFlag
	case f.Error:
		// error class bits are not limited to 11 bits
		id &= EFFMask
	default:
		id &= SFFMask
	}
	if f.Remote {
		id |= RTRFlag
	}
	if f.Error {
		id |= ERRFlag
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Length
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// Payload returns the first Length data bytes.
func (f Frame) Payload() []byte {
	n := int(f.Length)
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// FormatHex renders bytes as lower case hex pairs separated by spaces.
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String()
}

// String renders the dump line: format tag, id and payload bytes.
func (f Frame) String() string {
	kind := "SFF"
	if f.Extended {
		kind = "EFF"
	}
	line := fmt.Sprintf("%s %08x %s", kind, f.ID, FormatHex(f.Payload()))
	if f.Remote {
		line += " RTR"
	}
	if f.Error {
		line += " ERR"
	}
	return line
}
