package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/cockroachdb/errors"

	"canrainbow/utils"
)

type DumpRunner struct {
	cfg    Config
	log    *utils.Logger
	cmap   *utils.CANMap // nil when no layout was given
	reader utils.CANReader
	sink   utils.Sink // optional
	out    io.Writer
}

func NewDumpRunner(ctx context.Context, cfg Config, log *utils.Logger, out io.Writer) (*DumpRunner, error) {
	var cmap *utils.CANMap
	if cfg.Layout != "" {
		var err error
		cmap, err = utils.LoadLayout(cfg.Layout)
		if err != nil {
			return nil, errors.Wrap(err, "load layout")
		}
	}

	var sink utils.Sink
	if cfg.Dump.RedisURL != "" {
		rs, err := utils.NewRedisSink(ctx, cfg.Dump.RedisURL, cfg.Dump.RedisKey)
		if err != nil {
			return nil, err
		}
		sink = rs
	}

	reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return nil, err
	}
	return newDumpRunner(cfg, log, cmap, reader, sink, out), nil
}

func newDumpRunner(cfg Config, log *utils.Logger, cmap *utils.CANMap, reader utils.CANReader, sink utils.Sink, out io.Writer) *DumpRunner {
	return &DumpRunner{cfg: cfg, log: log, cmap: cmap, reader: reader, sink: sink, out: out}
}

func (r *DumpRunner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	if r.sink != nil {
		_ = r.sink.Close()
	}
}

// Run handles frames strictly in arrival order until ctx is done or the
// transport closes. A frame that fails to decode never stops the loop.
func (r *DumpRunner) Run(ctx context.Context) error {
	r.log.Debug("RX loop started: iface=%s", r.cfg.Interface)
	defer r.log.Debug("RX loop stopped")

	var received uint64
	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				r.log.Info("Transport closed. frames_received=%d", received)
				return nil
			}
			r.log.Error("RX error: %v", err)
			return err
		}
		received++
		r.handle(ctx, frame)
	}
}

func (r *DumpRunner) handle(ctx context.Context, frame utils.Frame) {
	if r.cmap != nil && !frame.Error && !frame.Remote {
		decoded, err := r.cmap.DecodeFrame(frame)
		switch {
		case errors.Is(err, utils.ErrUnknownMessageID):
			r.log.Warn("No layout for frame: %v", err)
		case err != nil:
			r.log.Error("Decode failed: %v", err)
		default:
			r.printDecoded(decoded)
			r.publish(ctx, decoded)
		}
	}
	fmt.Fprintln(r.out, frame.String())
}

func (r *DumpRunner) printDecoded(msg *utils.DecodedMessage) {
	fmt.Fprintf(r.out, "\n%s\n", msg.Name)
	for _, s := range msg.Signals {
		line := fmt.Sprintf("%s → value %6.4f", s.Name, s.Physical)
		if s.Unit != "" {
			line += " " + s.Unit
		}
		if !s.InRange {
			line += " (out of range)"
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *DumpRunner) publish(ctx context.Context, msg *utils.DecodedMessage) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(ctx, msg); err != nil {
		r.log.Error("Publish %s failed: %v", msg.Name, err)
	}
}
