package utils

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

// RandomSource is the randomness the generator draws from.
type RandomSource interface {
	Intn(n int) int                      // uniform in [0, n)
	Float64Range(lo, hi float64) float64 // uniform in [lo, hi]
	Bool() bool
}

type mathRandSource struct {
	r *rand.Rand
}

// NewRandomSource returns a PCG backed source. The same seed yields the same
// sequence of frames.
func NewRandomSource(seed uint64) RandomSource {
	return &mathRandSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *mathRandSource) Intn(n int) int { return s.r.IntN(n) }

func (s *mathRandSource) Float64Range(lo, hi float64) float64 {
	// 2^53+1 evenly spaced points so both ends are reachable. Interpolating
	// instead of scaling hi-lo keeps spans wider than MaxFloat64 finite.
	const steps = 1 << 53
	u := float64(s.r.Uint64N(steps+1)) / steps
	return clamp(lo*(1-u)+hi*u, lo, hi)
}

func (s *mathRandSource) Bool() bool { return s.r.IntN(2) == 1 }

type GeneratorKind int

const (
	GenSignalRange GeneratorKind = iota
	GenRandomPayload
)

func (k GeneratorKind) String() string {
	if k == GenRandomPayload {
		return "random-payload"
	}
	return "signal-range"
}

type GeneratorConfig struct {
	RandomPayload     bool
	AllowRemoteFrames bool
	AllowErrorFrames  bool
	Transmitter       string
}

type GeneratedSignal struct {
	Name       string
	Min        float64
	Max        float64
	Physical   float64
	Raw        uint64
	Degenerate bool // Min == Max, no randomness applied
}

// Generated is the outcome of one generation tick. The generator never
// prints; callers report from this record.
type Generated struct {
	Frame       Frame
	Message     *FrameDef
	Kind        GeneratorKind
	Unsupported bool // DLC > 8, payload left zero
	Signals     []GeneratedSignal
}

type Generator struct {
	kind       GeneratorKind
	cfg        GeneratorConfig
	candidates []*FrameDef
	rnd        RandomSource
}

func NewGenerator(cmap *CANMap, cfg GeneratorConfig, rnd RandomSource) (*Generator, error) {
	candidates := cmap.ByTransmitter(cfg.Transmitter)
	if len(candidates) == 0 {
		if cfg.Transmitter != "" {
			return nil, errors.Wrapf(ErrNoMessages, "transmitter %q", cfg.Transmitter)
		}
		return nil, ErrNoMessages
	}
	kind := GenSignalRange
	if cfg.RandomPayload {
		kind = GenRandomPayload
	}
	return &Generator{kind: kind, cfg: cfg, candidates: candidates, rnd: rnd}, nil
}

func (g *Generator) Kind() GeneratorKind { return g.kind }

func (g *Generator) Candidates() []*FrameDef { return g.candidates }

// Generate picks a message at random and builds one frame for it.
func (g *Generator) Generate() (*Generated, error) {
	fd := g.candidates[g.rnd.Intn(len(g.candidates))]

	out := &Generated{Message: fd, Kind: g.kind}
	out.Frame = Frame{
		ID:       fd.ID & EFFMask,
		Extended: fd.IsExtended(),
		Length:   8,
	}
	if g.cfg.AllowRemoteFrames {
		out.Frame.Remote = g.rnd.Bool()
	}
	if g.cfg.AllowErrorFrames {
		out.Frame.Error = g.rnd.Bool()
	}

	switch g.kind {
	case GenRandomPayload:
		for i := range out.Frame.Data {
			out.Frame.Data[i] = byte(g.rnd.Intn(256))
		}
	case GenSignalRange:
		if fd.DLC > 8 {
			out.Unsupported = true
			return out, nil
		}
		data, signals, err := g.signalRangePayload(fd)
		if err != nil {
			return nil, err
		}
		out.Frame.Data = data
		out.Signals = signals
	}
	return out, nil
}

func (g *Generator) signalRangePayload(fd *FrameDef) ([8]byte, []GeneratedSignal, error) {
	var data [8]byte
	signals := make([]GeneratedSignal, 0, len(fd.Signals))

	for _, s := range fd.Signals {
		gs := GeneratedSignal{Name: s.Name, Min: s.Min, Max: s.Max}
		if s.Min == s.Max {
			gs.Physical = s.Min
			gs.Degenerate = true
		} else {
			gs.Physical = g.rnd.Float64Range(s.Min, s.Max)
		}
		gs.Raw = ToRaw(gs.Physical, s.Factor, s.Offset)

		var err error
		data, err = InjectBits(data, s.StartBit, s.BitLength, s.ByteOrder, gs.Raw)
		if err != nil {
			return data, nil, errors.Wrapf(err, "frame %s signal %s", fd.Name, s.Name)
		}
		signals = append(signals, gs)
	}
	return data, signals, nil
}
