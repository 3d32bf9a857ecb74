package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/cockroachdb/errors"

	"canrainbow/utils"
)

type StatsRunner struct {
	log    *utils.Logger
	reader utils.CANReader
	stats  *utils.FrameStats
	out    io.Writer
}

func NewStatsRunner(ctx context.Context, cfg Config, log *utils.Logger, out io.Writer) (*StatsRunner, error) {
	reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	return newStatsRunner(log, reader, out), nil
}

func newStatsRunner(log *utils.Logger, reader utils.CANReader, out io.Writer) *StatsRunner {
	return &StatsRunner{log: log, reader: reader, stats: utils.NewFrameStats(), out: out}
}

func (r *StatsRunner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
}

// Run prints the running statistics after every received frame.
func (r *StatsRunner) Run(ctx context.Context) error {
	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Error("RX error: %v", err)
			return err
		}
		r.stats.Add(frame)
		fmt.Fprintln(r.out, r.stats.String())
	}
}
