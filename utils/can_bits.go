package utils

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// ByteOrder selects how the 8 payload bytes are assembled into one 64-bit word.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

func bitMask(bitLen int) uint64 {
	if bitLen >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bitLen) - 1
}

func checkField(startBit, bitLen int) error {
	if startBit < 0 || bitLen < 1 || bitLen > 64 || startBit+bitLen > 64 {
		return errors.Wrapf(ErrLayoutViolation, "field start=%d len=%d outside 64-bit payload", startBit, bitLen)
	}
	return nil
}

func payloadWord(data [8]byte, order ByteOrder) uint64 {
	if order == BigEndian {
		return binary.BigEndian.Uint64(data[:])
	}
	return binary.LittleEndian.Uint64(data[:])
}

func putPayloadWord(word uint64, order ByteOrder) [8]byte {
	var out [8]byte
	if order == BigEndian {
		binary.BigEndian.PutUint64(out[:], word)
	} else {
		binary.LittleEndian.PutUint64(out[:], word)
	}
	return out
}

// ExtractBits returns the bitLen-wide unsigned field found startBit bits above
// the least significant bit of the payload word.
func ExtractBits(data [8]byte, startBit, bitLen int, order ByteOrder) (uint64, error) {
	if err := checkField(startBit, bitLen); err != nil {
		return 0, err
	}
	return getBits(payloadWord(data, order), startBit, bitLen), nil
}

// InjectBits writes value into the field and leaves every other bit untouched.
func InjectBits(data [8]byte, startBit, bitLen int, order ByteOrder, value uint64) ([8]byte, error) {
	if err := checkField(startBit, bitLen); err != nil {
		return data, err
	}
	word := setBits(payloadWord(data, order), startBit, bitLen, value)
	return putPayloadWord(word, order), nil
}

func getBits(payload uint64, startBit, bitLen int) uint64 {
	return (payload >> startBit) & bitMask(bitLen)
}

func setBits(payload uint64, startBit, bitLen int, value uint64) uint64 {
	mask := bitMask(bitLen)
	payload &^= mask << startBit
	payload |= (value & mask) << startBit
	return payload
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
