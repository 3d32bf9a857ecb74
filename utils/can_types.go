package utils

import (
	"fmt"
	"slices"
	"sort"

	"github.com/elliotchance/orderedmap/v3"
)

const (
	EFFFlag uint32 = 0x80000000 // extended frame format
	RTRFlag uint32 = 0x40000000 // remote transmission request
	ERRFlag uint32 = 0x20000000 // error frame
	SFFMask uint32 = 0x000007FF
	EFFMask uint32 = 0x1FFFFFFF
)

type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	ByteOrder ByteOrder
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Unit      string
	Comment   string
}

// Validate rejects signals the codec cannot address.
func (s SignalDef) Validate(frame string) error {
	if s.BitLength < 1 || s.BitLength > 64 {
		return NewLayoutError(frame, s.Name, fmt.Sprintf("invalid bit_length %d", s.BitLength))
	}
	if s.StartBit < 0 || s.StartBit+s.BitLength > 64 {
		return NewLayoutError(frame, s.Name,
			fmt.Sprintf("start_bit %d + bit_length %d exceeds 64 bits", s.StartBit, s.BitLength))
	}
	if s.Min > s.Max {
		return NewLayoutError(frame, s.Name, fmt.Sprintf("min %g > max %g", s.Min, s.Max))
	}
	if s.Factor == 0 {
		return NewLayoutError(frame, s.Name, "factor must not be zero")
	}
	return nil
}

type FrameDef struct {
	ID          uint32 // bit 31 set for extended identifiers
	Name        string
	DLC         int
	Transmitter string
	CycleMS     int
	Signals     []SignalDef
}

func (fd *FrameDef) MaskedID() uint32 { return fd.ID &^ EFFFlag }

func (fd *FrameDef) IsExtended() bool {
	return fd.ID&EFFFlag != 0 || fd.MaskedID() > SFFMask
}

func (fd *FrameDef) Validate() error {
	if fd.DLC < 0 {
		return NewLayoutError(fd.Name, "", fmt.Sprintf("invalid dlc %d", fd.DLC))
	}
	for _, s := range fd.Signals {
		if err := s.Validate(fd.Name); err != nil {
			return err
		}
	}
	return nil
}

// CANMap is the loaded layout collection. Frames keep their load order.
type CANMap struct {
	byID   *orderedmap.OrderedMap[uint32, *FrameDef]
	byName map[string]*FrameDef
}

func NewCANMap() *CANMap {
	return &CANMap{
		byID:   orderedmap.NewOrderedMap[uint32, *FrameDef](),
		byName: map[string]*FrameDef{},
	}
}

// Add validates fd and indexes it by masked id and name.
func (m *CANMap) Add(fd *FrameDef) error {
	if err := fd.Validate(); err != nil {
		return err
	}
	id := fd.MaskedID()
	if m.byID.Has(id) {
		return NewLayoutError(fd.Name, "", fmt.Sprintf("duplicate frame id 0x%X", id))
	}
	m.byID.Set(id, fd)
	m.byName[fd.Name] = fd
	return nil
}

func (m *CANMap) Len() int { return m.byID.Len() }

func (m *CANMap) Frames() []*FrameDef {
	return slices.Collect(m.byID.Values())
}

// ByTransmitter returns the frames sent by the named node, in load order.
// An empty name returns every frame.
func (m *CANMap) ByTransmitter(name string) []*FrameDef {
	out := []*FrameDef{}
	for fd := range m.byID.Values() {
		if name == "" || fd.Transmitter == name {
			out = append(out, fd)
		}
	}
	return out
}

func (m *CANMap) FrameNames() []string {
	out := make([]string, 0, len(m.byName))
	for k := range m.byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
