// Package pipeline implements the three worker loops bound to the proxy's
// raw sockets (spec.md §5, §4.3-§4.5): Decap, Encap, and Reverse-encap.
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

// Decap reads encapsulated frames from the encap interface, parses the
// full header stack, records outer state keyed by the inner flow tuple,
// and emits the de-encapsulated frame toward the service function
// (spec.md §4.3).
type Decap struct {
	Encap      rawsock.Socket
	UnencapIn  rawsock.Socket
	UnencapOut rawsock.Socket
	Table      *session.Table
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	bufSize int
}

// NewDecap constructs a Decap pipeline with the given receive buffer size.
func NewDecap(encap, unencapIn, unencapOut rawsock.Socket, table *session.Table, coll *metrics.Collector, logger *slog.Logger, bufSize int) *Decap {
	return &Decap{
		Encap:      encap,
		UnencapIn:  unencapIn,
		UnencapOut: unencapOut,
		Table:      table,
		Metrics:    coll,
		Logger:     logger.With(slog.String("component", "pipeline.decap")),
		bufSize:    bufSize,
	}
}

// Run reads and processes frames until ctx is cancelled or the socket
// fails. There is no drained-shutdown protocol (spec.md §5): closing the
// socket elsewhere is what unblocks the pending read.
func (d *Decap) Run(ctx context.Context) error {
	buf := make([]byte, d.bufSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := d.Encap.ReadFrame(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, rawsock.ErrClosed) {
				return nil
			}
			return fmt.Errorf("decap: read: %w", err)
		}

		d.Metrics.IncFrames("encap", "rx")

		if err := d.processOne(buf[:n]); err != nil {
			d.Logger.Debug("frame dropped", slog.String("error", err.Error()))
		}
	}
}

func (d *Decap) processOne(frame []byte) error {
	ef, err := wire.ParseStack(frame)
	if err != nil {
		d.Metrics.IncDropped("encap", "parse-mismatch")
		return err
	}

	k := session.KeyFromInner(ef.InnerEth, ef.InnerIP, ef.TCP)
	bundle := session.NewBundle(ef)
	isReply := d.Table.Observe(k, bundle)

	fwdSize, revSize := d.Table.Sizes()
	d.Metrics.SetTableSize("fwd", fwdSize)
	d.Metrics.SetTableSize("rev", revSize)

	dst := d.UnencapOut
	dstName := "unencap_out"
	if isReply {
		dst = d.UnencapIn
		dstName = "unencap_in"
	}

	if err := dst.WriteFrame(ef.Inner); err != nil {
		d.Metrics.IncDropped(dstName, "write-error")
		return fmt.Errorf("decap: emit on %s: %w", dstName, err)
	}

	d.Metrics.IncFrames(dstName, "tx")
	return nil
}
