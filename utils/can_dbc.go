package utils

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can/pkg/dbc"
)

const cycleTimeAttribute = "GenMsgCycleTime"

// LoadDBC parses a DBC file and converts its messages into a CANMap.
func LoadDBC(path string) (*CANMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadDBC(path, data)
}

func ReadDBC(sourceFile string, data []byte) (*CANMap, error) {
	p := dbc.NewParser(sourceFile, data)
	if err := p.Parse(); err != nil {
		return nil, errors.Wrapf(err, "parse %s", sourceFile)
	}
	m, err := FromDefs(p.Defs())
	if err != nil {
		return nil, errors.Wrapf(err, "dbc %s", sourceFile)
	}
	return m, nil
}

type signalKey struct {
	id     dbc.MessageID
	signal dbc.Identifier
}

// FromDefs converts parsed DBC definitions. Frames keep file order; signal
// comments and GenMsgCycleTime attributes are attached when present.
func FromDefs(defs []dbc.Def) (*CANMap, error) {
	comments := map[signalKey]string{}
	cycles := map[dbc.MessageID]int{}
	messages := []*dbc.MessageDef{}

	for _, def := range defs {
		switch d := def.(type) {
		case *dbc.MessageDef:
			if dbc.IsIndependentSignalsMessage(d) {
				continue
			}
			messages = append(messages, d)
		case *dbc.CommentDef:
			if d.ObjectType == dbc.ObjectTypeSignal {
				comments[signalKey{d.MessageID, d.SignalName}] = d.Comment
			}
		case *dbc.AttributeValueForObjectDef:
			if d.ObjectType == dbc.ObjectTypeMessage && d.AttributeName == cycleTimeAttribute {
				cycles[d.MessageID] = int(d.IntValue)
			}
		}
	}

	m := NewCANMap()
	for _, msg := range messages {
		id := msg.MessageID.ToCAN()
		if msg.MessageID.IsExtended() {
			id |= EFFFlag
		}
		fd := &FrameDef{
			ID:          id,
			Name:        string(msg.Name),
			DLC:         int(msg.Size),
			Transmitter: string(msg.Transmitter),
			CycleMS:     cycles[msg.MessageID],
			Signals:     make([]SignalDef, 0, len(msg.Signals)),
		}
		for _, s := range msg.Signals {
			order := LittleEndian
			start := int(s.StartBit)
			if s.IsBigEndian {
				order = BigEndian
				start = motorolaStartBit(start, int(s.Size))
			}
			fd.Signals = append(fd.Signals, SignalDef{
				Name:      string(s.Name),
				StartBit:  start,
				BitLength: int(s.Size),
				ByteOrder: order,
				Factor:    s.Factor,
				Offset:    s.Offset,
				Min:       s.Minimum,
				Max:       s.Maximum,
				Unit:      s.Unit,
				Comment:   comments[signalKey{msg.MessageID, s.Name}],
			})
		}
		if err := m.Add(fd); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// motorolaStartBit turns a DBC big endian start bit (the MSB, numbered
// byte by byte from bit 7 of byte 0) into the LSB offset inside the big
// endian assembled payload word.
func motorolaStartBit(start, size int) int {
	msb := 56 - 8*(start/8) + start%8
	return msb - (size - 1)
}
