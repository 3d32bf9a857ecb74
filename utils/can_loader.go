package utils

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// LoadLayout picks the loader from the file extension: .dbc files go through
// the DBC compiler, everything else is read as a CSV signal table.
func LoadLayout(path string) (*CANMap, error) {
	if strings.EqualFold(filepath.Ext(path), ".dbc") {
		return LoadDBC(path)
	}
	return LoadCANMap(path)
}

func LoadCANMap(csvPath string) (*CANMap, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadCANMap(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", csvPath)
	}
	return m, nil
}

// ReadCANMap reads a CSV table with one row per signal. Rows of the same
// frame must agree on frame_name, dlc and transmitter.
func ReadCANMap(in io.Reader) (*CANMap, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	req := []string{
		"frame_id", "frame_name", "dlc",
		"signal_name", "start_bit", "bit_length",
		"factor", "offset", "min", "max",
	}
	for _, k := range req {
		if _, ok := idx[k]; !ok {
			return nil, errors.Newf("can map missing required column: %q", k)
		}
	}
	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	frames := []*FrameDef{}
	byID := map[uint32]*FrameDef{}

	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		frameID, err := parseHexOrDecUint32(col(rec, "frame_id"))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid frame_id %q", line, col(rec, "frame_id"))
		}
		frameName := col(rec, "frame_name")
		dlc, err := parseInt(col(rec, "dlc"))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid dlc", line)
		}
		cycleMS, err := parseIntDefault(col(rec, "cycle_ms"), 0)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid cycle_ms", line)
		}

		sig, err := parseSignalRow(rec, col)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: frame %s", line, frameName)
		}

		fd, ok := byID[frameID]
		if !ok {
			fd = &FrameDef{
				ID:          frameID,
				Name:        frameName,
				DLC:         dlc,
				Transmitter: col(rec, "transmitter"),
				CycleMS:     cycleMS,
				Signals:     []SignalDef{},
			}
			byID[frameID] = fd
			frames = append(frames, fd)
		}
		if fd.DLC != dlc {
			return nil, errors.Newf("frame %s (0x%X) has inconsistent DLC (%d vs %d)", frameName, frameID, fd.DLC, dlc)
		}
		fd.Signals = append(fd.Signals, sig)
	}

	m := NewCANMap()
	for _, fd := range frames {
		if err := m.Add(fd); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseSignalRow(rec []string, col func([]string, string) string) (SignalDef, error) {
	var err error
	sig := SignalDef{
		Name:    col(rec, "signal_name"),
		Unit:    col(rec, "unit"),
		Comment: col(rec, "comment"),
	}
	if sig.StartBit, err = parseInt(col(rec, "start_bit")); err != nil {
		return sig, errors.Wrap(err, "start_bit")
	}
	if sig.BitLength, err = parseInt(col(rec, "bit_length")); err != nil {
		return sig, errors.Wrap(err, "bit_length")
	}
	if sig.ByteOrder, err = parseByteOrder(col(rec, "byte_order")); err != nil {
		return sig, err
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"factor", &sig.Factor},
		{"offset", &sig.Offset},
		{"min", &sig.Min},
		{"max", &sig.Max},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(col(rec, f.name), 64); err != nil {
			return sig, errors.Wrapf(err, "signal %s: %s", sig.Name, f.name)
		}
	}
	return sig, nil
}

func parseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "little", "intel", "1":
		return LittleEndian, nil
	case "big", "motorola", "0":
		return BigEndian, nil
	}
	return LittleEndian, errors.Newf("unsupported byte_order %q", s)
}

func parseHexOrDecUint32(s string) (uint32, error) {
	ss := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(ss, "0x") || strings.HasPrefix(ss, "0X") {
		base = 16
		ss = ss[2:]
	}
	u, err := strconv.ParseUint(ss, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseIntDefault(s string, def int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return parseInt(s)
}
