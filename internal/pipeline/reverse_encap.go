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

// ReverseEncap reads bare reply frames from the unencap-out interface
// (the service function's reply-direction output), looks up the stored
// reply outer state under the swapped inner flow tuple, and replays the
// encapsulated reply toward the encap interface (spec.md §4.5).
type ReverseEncap struct {
	UnencapOut rawsock.Socket
	EncapOut   rawsock.Socket
	Table      *session.Table
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	bufSize int
}

// NewReverseEncap constructs a ReverseEncap pipeline with the given
// receive buffer size.
func NewReverseEncap(unencapOut, encapOut rawsock.Socket, table *session.Table, coll *metrics.Collector, logger *slog.Logger, bufSize int) *ReverseEncap {
	return &ReverseEncap{
		UnencapOut: unencapOut,
		EncapOut:   encapOut,
		Table:      table,
		Metrics:    coll,
		Logger:     logger.With(slog.String("component", "pipeline.reverse_encap")),
		bufSize:    bufSize,
	}
}

// Run reads and processes frames until ctx is cancelled or the socket
// fails.
func (r *ReverseEncap) Run(ctx context.Context) error {
	buf := make([]byte, r.bufSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := r.UnencapOut.ReadFrame(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, rawsock.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reverse-encap: read: %w", err)
		}

		r.Metrics.IncFrames("unencap_out", "rx")

		if err := r.processOne(buf[:n]); err != nil {
			r.Logger.Debug("frame dropped", slog.String("error", err.Error()))
		}
	}
}

func (r *ReverseEncap) processOne(frame []byte) error {
	bare, err := wire.ParseBare(frame)
	if err != nil {
		r.Metrics.IncDropped("unencap_out", "parse-mismatch")
		return err
	}

	k := session.KeyFromInner(bare.Eth, bare.IP, bare.TCP)
	swapped := k.Swap()

	bundle, ok := r.Table.LookupReply(swapped)
	if !ok {
		r.Metrics.IncDropped("unencap_out", "session-miss")
		return fmt.Errorf("reverse-encap: no reply session for flow")
	}

	out, err := rebuildReverse(bundle, frame)
	if err != nil {
		reason := "rebuild-error"
		if errors.Is(err, wire.ErrNSHSIUnderflow) {
			r.Metrics.IncSIUnderflow()
			reason = "si-underflow"
		}
		r.Metrics.IncDropped("unencap_out", reason)
		return fmt.Errorf("reverse-encap: rebuild: %w", err)
	}

	if err := r.EncapOut.WriteFrame(out); err != nil {
		r.Metrics.IncDropped("encap", "write-error")
		return fmt.Errorf("reverse-encap: emit: %w", err)
	}

	r.Metrics.IncFrames("encap", "tx")
	return nil
}
