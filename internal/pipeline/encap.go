package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nshsfc/sfcproxy/internal/metrics"
	"github.com/nshsfc/sfcproxy/internal/rawsock"
	"github.com/nshsfc/sfcproxy/internal/session"
	"github.com/nshsfc/sfcproxy/internal/wire"
)

// Encap reads bare frames from the unencap-in interface (the service
// function's forward-direction output), looks up the stored outer state
// by the inner flow tuple, and replays the encapsulated frame toward the
// encap interface (spec.md §4.4).
type Encap struct {
	UnencapIn rawsock.Socket
	EncapOut  rawsock.Socket
	Table     *session.Table
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	bufSize int
}

// NewEncap constructs an Encap pipeline with the given receive buffer size.
func NewEncap(unencapIn, encapOut rawsock.Socket, table *session.Table, coll *metrics.Collector, logger *slog.Logger, bufSize int) *Encap {
	return &Encap{
		UnencapIn: unencapIn,
		EncapOut:  encapOut,
		Table:     table,
		Metrics:   coll,
		Logger:    logger.With(slog.String("component", "pipeline.encap")),
		bufSize:   bufSize,
	}
}

// Run reads and processes frames until ctx is cancelled or the socket
// fails.
func (e *Encap) Run(ctx context.Context) error {
	buf := make([]byte, e.bufSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := e.UnencapIn.ReadFrame(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, rawsock.ErrClosed) {
				return nil
			}
			return fmt.Errorf("encap: read: %w", err)
		}

		e.Metrics.IncFrames("unencap_in", "rx")

		if err := e.processOne(buf[:n]); err != nil {
			e.Logger.Debug("frame dropped", slog.String("error", err.Error()))
		}
	}
}

func (e *Encap) processOne(frame []byte) error {
	bare, err := wire.ParseBare(frame)
	if err != nil {
		e.Metrics.IncDropped("unencap_in", "parse-mismatch")
		return err
	}

	k := session.KeyFromInner(bare.Eth, bare.IP, bare.TCP)

	bundle, ok := e.Table.LookupForward(k)
	if !ok {
		e.Metrics.IncDropped("unencap_in", "session-miss")
		return fmt.Errorf("encap: no forward session for flow")
	}

	out, err := rebuildForward(bundle, frame)
	if err != nil {
		reason := "rebuild-error"
		if errors.Is(err, wire.ErrNSHSIUnderflow) {
			e.Metrics.IncSIUnderflow()
			reason = "si-underflow"
		}
		e.Metrics.IncDropped("unencap_in", reason)
		return fmt.Errorf("encap: rebuild: %w", err)
	}

	if err := e.EncapOut.WriteFrame(out); err != nil {
		e.Metrics.IncDropped("encap", "write-error")
		return fmt.Errorf("encap: emit: %w", err)
	}

	e.Metrics.IncFrames("encap", "tx")
	return nil
}
