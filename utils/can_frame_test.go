package utils

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

func TestFrameString(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "standard",
			frame: Frame{ID: 0x123, Length: 3, Data: [8]byte{0xDE, 0xAD, 0x01}},
			want:  "SFF 00000123 de ad 01",
		},
		{
			name:  "extended",
			frame: Frame{ID: 0x18FEF100, Extended: true, Length: 8, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
			want:  "EFF 18fef100 01 02 03 04 05 06 07 08",
		},
		{
			name:  "remote",
			frame: Frame{ID: 0x10, Remote: true},
			want:  "SFF 00000010  RTR",
		},
		{
			name:  "error",
			frame: Frame{ID: 0x10, Error: true, Length: 1},
			want:  "SFF 00000010 00 ERR",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.frame.String())
		})
	}
}

func TestFrameMarshalBinary(t *testing.T) {
	f := Frame{ID: 0x400, Extended: true, Remote: true, Error: true, Length: 2, Data: [8]byte{0xAA, 0xBB}}
	buf, err := f.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, 16)
	assert.Equal(t, EFFFlag|RTRFlag|ERRFlag|0x400, binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, byte(2), buf[4])
	assert.Equal(t, []byte{0xAA, 0xBB, 0, 0, 0, 0, 0, 0}, buf[8:])

	// Standard ids are masked to 11 bits.
	buf, err = Frame{ID: 0xFFFF, Length: 0}.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, SFFMask, binary.LittleEndian.Uint32(buf[0:4]))

	_, err = Frame{ID: 1, Length: 9}.MarshalBinary()
	assert.Error(t, err)
}

func TestFrameEinrideConversion(t *testing.T) {
	in := can.Frame{ID: 0x1ABCDE, Length: 4, IsExtended: true, Data: can.Data{1, 2, 3, 4}}
	f := FromEinrideFrame(in)
	assert.Equal(t, uint32(0x1ABCDE), f.ID)
	assert.True(t, f.Extended)
	assert.False(t, f.Remote)
	assert.Equal(t, []byte{1, 2, 3, 4}, f.Payload())
	assert.Equal(t, in, f.Einride())
}

func TestFromErrorFrame(t *testing.T) {
	ef := socketcan.ErrorFrame{
		ErrorClass:                     socketcan.ErrorClassController | socketcan.ErrorClassBusError,
		LostArbitrationBit:             3,
		ControllerError:                socketcan.ControllerError(0x04),
		ProtocolError:                  socketcan.ProtocolViolationError(0x08),
		ProtocolViolationErrorLocation: socketcan.ProtocolViolationErrorLocation(0x0A),
		TransceiverError:               socketcan.TransceiverError(0x07),
		ControllerSpecificInformation:  [3]byte{0xAA, 0xBB, 0xCC},
	}
	f := FromErrorFrame(ef)
	assert.True(t, f.Error)
	assert.False(t, f.Extended)
	assert.Equal(t, uint32(0x84), f.ID)
	assert.Equal(t, uint8(8), f.Length)
	assert.Equal(t, [8]byte{3, 0x04, 0x08, 0x0A, 0x07, 0xAA, 0xBB, 0xCC}, f.Data)
	assert.Equal(t, "SFF 00000084 03 04 08 0a 07 aa bb cc ERR", f.String())

	buf, err := f.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, ERRFlag|0x84, binary.LittleEndian.Uint32(buf[0:4]))

	// Classes above the 11-bit range survive marshalling.
	buf, err = FromErrorFrame(socketcan.ErrorFrame{ErrorClass: 0x800}).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, ERRFlag|0x800, binary.LittleEndian.Uint32(buf[0:4]))
}

func TestFormatHex(t *testing.T) {
	assert.Equal(t, "", FormatHex(nil))
	assert.Equal(t, "00 0f ff", FormatHex([]byte{0x00, 0x0F, 0xFF}))
}
