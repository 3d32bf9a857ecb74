package utils

import (
	"github.com/cockroachdb/errors"
)

// DecodedSignal is one signal recovered from a received frame.
type DecodedSignal struct {
	Name     string  `msgpack:"name"`
	Raw      uint64  `msgpack:"raw"`
	Physical float64 `msgpack:"physical"`
	Unit     string  `msgpack:"unit,omitempty"`
	InRange  bool    `msgpack:"in_range"`
}

// DecodedMessage holds the signals of a frame in declaration order.
type DecodedMessage struct {
	Name    string          `msgpack:"name"`
	ID      uint32          `msgpack:"id"`
	Data    []byte          `msgpack:"data"`
	Signals []DecodedSignal `msgpack:"signals"`
}

func (m *CANMap) FrameByName(name string) (*FrameDef, error) {
	fd, ok := m.byName[name]
	if !ok {
		return nil, errors.Newf("unknown frame %q (available: %v)", name, m.FrameNames())
	}
	return fd, nil
}

// FrameByID looks up a frame by identifier; the extended flag bit is ignored.
func (m *CANMap) FrameByID(id uint32) (*FrameDef, error) {
	fd, ok := m.byID.Get(id &^ EFFFlag)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMessageID, "0x%X", id&^EFFFlag)
	}
	return fd, nil
}

// DecodeFrame extracts the physical value of every signal of the frame's
// message. Values outside [Min, Max] are reported as-is.
func (m *CANMap) DecodeFrame(frame Frame) (*DecodedMessage, error) {
	fd, err := m.FrameByID(frame.ID)
	if err != nil {
		return nil, err
	}

	out := &DecodedMessage{
		Name:    fd.Name,
		ID:      fd.MaskedID(),
		Data:    append([]byte(nil), frame.Payload()...),
		Signals: make([]DecodedSignal, 0, len(fd.Signals)),
	}
	for _, s := range fd.Signals {
		raw, err := ExtractBits(frame.Data, s.StartBit, s.BitLength, s.ByteOrder)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %s signal %s", fd.Name, s.Name)
		}
		phys := ToPhysical(raw, s.Factor, s.Offset)
		out.Signals = append(out.Signals, DecodedSignal{
			Name:     s.Name,
			Raw:      raw,
			Physical: phys,
			Unit:     s.Unit,
			InRange:  phys >= s.Min && phys <= s.Max,
		})
	}
	return out, nil
}

// EncodeFrame builds a frame from explicit physical values. Signals missing
// from values take their minimum; values are clamped to [Min, Max].
func (m *CANMap) EncodeFrame(frameName string, values map[string]float64) (Frame, error) {
	fd, err := m.FrameByName(frameName)
	if err != nil {
		return Frame{}, err
	}
	if fd.DLC > 8 {
		return Frame{}, errors.Wrapf(ErrUnsupportedMessageSize, "frame %s has dlc %d", fd.Name, fd.DLC)
	}

	var data [8]byte
	for _, s := range fd.Signals {
		v, ok := values[s.Name]
		if !ok {
			v = s.Min
		}
		v = clamp(v, s.Min, s.Max)

		data, err = InjectBits(data, s.StartBit, s.BitLength, s.ByteOrder, ToRaw(v, s.Factor, s.Offset))
		if err != nil {
			return Frame{}, errors.Wrapf(err, "frame %s signal %s", fd.Name, s.Name)
		}
	}

	return Frame{
		ID:       fd.ID & EFFMask,
		Extended: fd.IsExtended(),
		Length:   uint8(fd.DLC),
		Data:     data,
	}, nil
}
