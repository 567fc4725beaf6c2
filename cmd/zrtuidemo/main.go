// Command zrtuidemo wires the drawlist builder, the main/worker protocol,
// and an engine together end to end: it builds one ZRDL frame per tick,
// sends it to a worker goroutine over the protocol channels, and logs
// whatever the worker reports back. It is not a rendering application; use
// it to exercise the wire formats and tick loop, not to watch output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"zireael.local/zrtui/internal/drawlist"
	"zireael.local/zrtui/internal/engine"
	"zireael.local/zrtui/internal/protocol"
	"zireael.local/zrtui/internal/style"
	"zireael.local/zrtui/internal/worker"
)

func main() {
	var (
		flagBenchSec = flag.Int("bench-seconds", 2, "run for N seconds then exit")
		flagFPSCap   = flag.Uint("fps-cap", 60, "frame submission rate (worker tick interval is clamped separately)")
		flagCols     = flag.Int("cols", 80, "viewport columns for the synthetic frame")
		flagRows     = flag.Int("rows", 24, "viewport rows for the synthetic frame")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg := engine.DefaultConfig()
	cfg.FPSCap = uint32(*flagFPSCap)

	factory := engine.FakeFactory(engine.TerminalCaps{ColorMode: engine.ColorRGB, Mouse: true})

	in := make(chan any, 8)
	out := make(chan any, 64)
	w := worker.New(factory, in, out, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	go drainOutbound(log, in, out)

	in <- protocol.Init{Config: cfg}

	deadline := time.Now().Add(time.Duration(*flagBenchSec) * time.Second)
	seq := int64(0)
	tick := time.NewTicker(time.Second / time.Duration(*flagFPSCap))
	defer tick.Stop()

runLoop:
	for {
		select {
		case <-sigc:
			break runLoop
		case err := <-done:
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case now := <-tick.C:
			if now.After(deadline) {
				break runLoop
			}
			seq++
			frame, err := buildFrame(seq, *flagCols, *flagRows)
			if err != nil {
				log.Error().Err(err).Msg("build frame")
				continue
			}
			in <- protocol.Frame{FrameSeq: seq, Transport: protocol.TransportTransfer, Bytes: frame, ByteLen: len(frame)}
		}
	}

	in <- protocol.Shutdown{}
	<-done
	log.Info().Int64("frames_sent", seq).Msg("shutdown complete")
}

func buildFrame(seq int64, cols, rows int) ([]byte, error) {
	b := drawlist.NewBuilder(drawlist.V1, drawlist.DefaultCaps())
	fg := style.Color{R: 0xd0, G: 0xd0, B: 0xd8}
	bg := style.Color{R: 0x10, G: 0x10, B: 0x18}
	st := &style.Style{FG: &fg, BG: &bg}
	if err := b.ClearTo(int32(cols), int32(rows), st); err != nil {
		return nil, err
	}
	if err := b.DrawText(2, 1, fmt.Sprintf("frame %d", seq), st); err != nil {
		return nil, err
	}
	return b.Build()
}

func drainOutbound(log zerolog.Logger, in chan<- any, out <-chan any) {
	for msg := range out {
		switch m := msg.(type) {
		case protocol.Ready:
			log.Info().Str("engine_id", m.EngineID).Msg("ready")
		case protocol.Events:
			log.Debug().Int("buffer_id", m.BufferID).Int("bytes", m.ByteLen).Uint64("dropped", m.DroppedSinceLast).Msg("events")
			in <- protocol.EventsAck{BufferID: m.BufferID}
		case protocol.FrameStatus:
			if m.CompletedSeq != nil {
				log.Debug().Int64("seq", *m.CompletedSeq).Msg("frame completed")
			}
		case protocol.Fatal:
			log.Error().Str("where", m.Where).Int32("code", m.Code).Str("detail", m.Detail).Msg("worker fatal")
		case protocol.ShutdownComplete:
			return
		}
	}
}
