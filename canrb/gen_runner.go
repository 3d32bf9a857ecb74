package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"canrainbow/utils"
)

type GenRunner struct {
	cfg    Config
	log    *utils.Logger
	gen    *utils.Generator
	writer utils.CANWriter
}

func NewGenRunner(ctx context.Context, cfg Config, log *utils.Logger) (*GenRunner, error) {
	if cfg.Layout == "" {
		return nil, errors.New("gen requires a layout file (--input)")
	}
	cmap, err := utils.LoadLayout(cfg.Layout)
	if err != nil {
		return nil, errors.Wrap(err, "load layout")
	}

	seed := cfg.Gen.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen, err := utils.NewGenerator(cmap, generatorConfig(cfg), utils.NewRandomSource(seed))
	if err != nil {
		return nil, errors.Wrap(err, "generator")
	}

	writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	return newGenRunner(cfg, log, gen, writer), nil
}

func newGenRunner(cfg Config, log *utils.Logger, gen *utils.Generator, writer utils.CANWriter) *GenRunner {
	return &GenRunner{cfg: cfg, log: log, gen: gen, writer: writer}
}

func generatorConfig(cfg Config) utils.GeneratorConfig {
	return utils.GeneratorConfig{
		RandomPayload:     cfg.Gen.RandomPayload,
		AllowRemoteFrames: cfg.Gen.RTR,
		AllowErrorFrames:  cfg.Gen.Err,
		Transmitter:       cfg.Gen.Transmitter,
	}
}

func (r *GenRunner) Close() {
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

// Run generates and transmits one frame per tick. A slow write delays the
// next tick; frames are never queued.
func (r *GenRunner) Run(ctx context.Context) error {
	r.log.Info("Starting TX: iface=%s strategy=%s messages=%d period=%s",
		r.cfg.Interface, r.gen.Kind(), len(r.gen.Candidates()), r.cfg.Period())

	start := time.Now()
	ticker := time.NewTicker(r.cfg.Period())
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Completed TX. frames_sent=%d", sent)
			return ctx.Err()

		case <-ticker.C:
			g, err := r.gen.Generate()
			if err != nil {
				r.log.Error("Generate failed: %v", err)
				continue
			}
			r.report(g)

			if err := r.writer.WriteFrame(ctx, g.Frame); err != nil {
				if ctx.Err() != nil {
					r.log.Info("Completed TX. frames_sent=%d", sent)
					return ctx.Err()
				}
				r.log.Critical("Transmit failed: %v", err)
				return err
			}
			sent++

			elapsed := time.Since(start)
			r.log.Info("✉ #%d  ✉ %.2fmsgs/s  ⧖ %dms",
				sent, float64(sent)/elapsed.Seconds(), elapsed.Milliseconds())

			if r.cfg.Gen.Count > 0 && sent >= r.cfg.Gen.Count {
				r.log.Info("Completed TX. frames_sent=%d", sent)
				return nil
			}
		}
	}
}

func (r *GenRunner) report(g *utils.Generated) {
	msg := g.Message
	ev := r.log.WithFields(logrus.Fields{"message": msg.Name, "id": fmt.Sprintf("0x%X", msg.MaskedID())})

	if g.Unsupported {
		ev.Warnf("Non random message body due to currently unsupported size `%s` - id: `%x`. Size %d > 8",
			msg.Name, msg.MaskedID(), msg.DLC)
	}
	for _, s := range g.Signals {
		if s.Degenerate {
			ev.Infof("Min and max value `%g = %g` match for signal %s, can not create random value.",
				s.Min, s.Max, s.Name)
			continue
		}
		ev.Debugf("%-10.10s min %6.4f max %6.4f → value %6.4f", s.Name, s.Min, s.Max, s.Physical)
	}
	ev.Infof("→ ERR: %v RTR: %v Data: %s", g.Frame.Error, g.Frame.Remote, utils.FormatHex(g.Frame.Data[:]))
}
