package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayoutCSV = `# engine bus
frame_id,frame_name,dlc,transmitter,cycle_ms,signal_name,start_bit,bit_length,byte_order,factor,offset,min,max,unit,comment
0x100,ENGINE,8,ECU1,10,RPM,0,16,little,0.25,0,0,16383.75,rpm,engine speed
0x100,ENGINE,8,ECU1,10,TEMP,16,8,intel,1,-40,-40,215,degC,
0x80000400,DIAG,8,ECU2,,CODE,8,12,motorola,1,0,0,4095,,
`

func TestReadCANMap(t *testing.T) {
	m, err := ReadCANMap(strings.NewReader(testLayoutCSV))
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	frames := m.Frames()
	assert.Equal(t, "ENGINE", frames[0].Name)
	assert.Equal(t, "DIAG", frames[1].Name)

	engine, err := m.FrameByName("ENGINE")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), engine.ID)
	assert.Equal(t, 8, engine.DLC)
	assert.Equal(t, "ECU1", engine.Transmitter)
	assert.Equal(t, 10, engine.CycleMS)
	require.Len(t, engine.Signals, 2)
	assert.Equal(t, SignalDef{
		Name: "RPM", StartBit: 0, BitLength: 16, ByteOrder: LittleEndian,
		Factor: 0.25, Offset: 0, Min: 0, Max: 16383.75, Unit: "rpm", Comment: "engine speed",
	}, engine.Signals[0])
	assert.Equal(t, -40.0, engine.Signals[1].Offset)

	diag, err := m.FrameByID(0x400)
	require.NoError(t, err)
	assert.True(t, diag.IsExtended())
	assert.Equal(t, BigEndian, diag.Signals[0].ByteOrder)
	assert.Equal(t, 0, diag.CycleMS)

	assert.Equal(t, []string{"DIAG", "ENGINE"}, m.FrameNames())
}

func TestReadCANMapErrors(t *testing.T) {
	const header = "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,factor,offset,min,max\n"
	tests := []struct {
		name    string
		input   string
		layout  bool
		errText string
	}{
		{
			name:    "missing column",
			input:   "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,factor,offset,min\n",
			errText: `missing required column: "max"`,
		},
		{
			name:   "past the payload window",
			input:  header + "0x10,A,8,S,60,8,1,0,0,255\n",
			layout: true,
		},
		{
			name:   "zero factor",
			input:  header + "0x10,A,8,S,0,8,0,0,0,255\n",
			layout: true,
		},
		{
			name:   "min above max",
			input:  header + "0x10,A,8,S,0,8,1,0,10,1\n",
			layout: true,
		},
		{
			name:    "inconsistent dlc",
			input:   header + "0x10,A,8,S,0,8,1,0,0,255\n0x10,A,4,T,8,8,1,0,0,255\n",
			errText: "inconsistent DLC",
		},
		{
			name:    "bad frame id",
			input:   header + "zz,A,8,S,0,8,1,0,0,255\n",
			errText: "invalid frame_id",
		},
		{
			name:    "bad byte order",
			input:   "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,byte_order,factor,offset,min,max\n0x10,A,8,S,0,8,sideways,1,0,0,255\n",
			errText: "unsupported byte_order",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCANMap(strings.NewReader(tc.input))
			require.Error(t, err)
			if tc.layout {
				assert.ErrorIs(t, err, ErrLayoutViolation)
			}
			if tc.errText != "" {
				assert.Contains(t, err.Error(), tc.errText)
			}
		})
	}
}

func TestLoadLayoutPicksLoaderByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "layout.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testLayoutCSV), 0o644))
	m, err := LoadLayout(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	dbcPath := filepath.Join(dir, "layout.DBC")
	require.NoError(t, os.WriteFile(dbcPath, []byte(testDBC), 0o644))
	m, err = LoadLayout(dbcPath)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	_, err = LoadLayout(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

const testDBC = `VERSION ""

NS_ :

BS_:

BU_: ECU1 ECU2

BO_ 256 ENGINE: 8 ECU1
 SG_ RPM : 0|16@1+ (0.25,0) [0|16383.75] "rpm" ECU2
 SG_ TEMP : 16|8@1+ (1,-40) [-40|215] "degC" ECU2

BO_ 2147484672 EXT_MSG: 8 ECU2
 SG_ CODE : 0|12@1+ (1,0) [0|4095] "" ECU1

BO_ 768 MOTO: 8 ECU1
 SG_ Head : 7|8@0+ (1,0) [0|255] "" ECU2
 SG_ Mid : 19|12@0+ (1,0) [0|4095] "" ECU2
 SG_ Tail : 55|16@0+ (0.5,0) [0|32767.5] "" ECU2

CM_ SG_ 256 RPM "engine speed";
BA_DEF_ BO_  "GenMsgCycleTime" INT 0 10000;
BA_ "GenMsgCycleTime" BO_ 256 10;
`

func TestReadDBC(t *testing.T) {
	m, err := ReadDBC("test.dbc", []byte(testDBC))
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	engine, err := m.FrameByID(0x100)
	require.NoError(t, err)
	assert.Equal(t, "ENGINE", engine.Name)
	assert.Equal(t, "ECU1", engine.Transmitter)
	assert.Equal(t, 8, engine.DLC)
	assert.Equal(t, 10, engine.CycleMS)
	assert.False(t, engine.IsExtended())
	require.Len(t, engine.Signals, 2)
	assert.Equal(t, "RPM", engine.Signals[0].Name)
	assert.Equal(t, "engine speed", engine.Signals[0].Comment)
	assert.Equal(t, 0.25, engine.Signals[0].Factor)
	assert.Equal(t, 16383.75, engine.Signals[0].Max)
	assert.Equal(t, LittleEndian, engine.Signals[0].ByteOrder)
	assert.Equal(t, -40.0, engine.Signals[1].Offset)
	assert.Equal(t, "degC", engine.Signals[1].Unit)

	ext, err := m.FrameByID(0x400)
	require.NoError(t, err)
	assert.Equal(t, "EXT_MSG", ext.Name)
	assert.True(t, ext.IsExtended())
	assert.Equal(t, 0, ext.CycleMS)
	assert.Equal(t, []*FrameDef{ext}, m.ByTransmitter("ECU2"))

	msg, err := m.DecodeFrame(Frame{ID: 0x100, Length: 8, Data: [8]byte{0x10, 0x27, 0x5A}})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, msg.Signals[0].Physical)
	assert.Equal(t, 50.0, msg.Signals[1].Physical)
}

func TestReadDBCMotorolaSignals(t *testing.T) {
	m, err := ReadDBC("test.dbc", []byte(testDBC))
	require.NoError(t, err)

	moto, err := m.FrameByName("MOTO")
	require.NoError(t, err)
	require.Len(t, moto.Signals, 3)
	for _, s := range moto.Signals {
		assert.Equal(t, BigEndian, s.ByteOrder, s.Name)
	}
	assert.Equal(t, 56, moto.Signals[0].StartBit)
	assert.Equal(t, 32, moto.Signals[1].StartBit)
	assert.Equal(t, 0, moto.Signals[2].StartBit)

	// Head is byte 0, Mid starts at bit 3 of byte 2 and runs into byte 3,
	// Tail is bytes 6 and 7 with byte 6 most significant.
	frame := Frame{ID: 0x300, Length: 8, Data: [8]byte{0x2A, 0, 0x0A, 0xBC, 0, 0, 0x01, 0x02}}
	msg, err := m.DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, 42.0, msg.Signals[0].Physical)
	assert.Equal(t, float64(0xABC), msg.Signals[1].Physical)
	assert.Equal(t, float64(0x0102)*0.5, msg.Signals[2].Physical)

	out, err := m.EncodeFrame("MOTO", map[string]float64{"Head": 42, "Mid": 0xABC, "Tail": 129})
	require.NoError(t, err)
	assert.Equal(t, frame.Data, out.Data)
}

func TestMotorolaStartBit(t *testing.T) {
	tests := []struct {
		start, size, want int
	}{
		{start: 7, size: 8, want: 56},
		{start: 55, size: 16, want: 0},
		{start: 0, size: 1, want: 56},
		{start: 63, size: 1, want: 7},
		{start: 7, size: 64, want: 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, motorolaStartBit(tc.start, tc.size), "%d|%d", tc.start, tc.size)
	}
}

func TestReadDBCInvalid(t *testing.T) {
	_, err := ReadDBC("broken.dbc", []byte("BO_ nonsense"))
	assert.Error(t, err)
}
