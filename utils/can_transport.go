package utils

import (
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can/pkg/socketcan"
)

type CANWriter interface {
	WriteFrame(ctx context.Context, frame Frame) error
	Close() error
}

type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

// WriteFrame transmits a data or remote frame through the einride transmitter.
// The einride frame has no error flag, so error frames are written as a raw
// struct can_frame on the same socket.
func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame Frame) error {
	if !frame.Error {
		return w.tx.TransmitFrame(ctx, frame.Einride())
	}
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := w.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer func() { _ = w.conn.SetWriteDeadline(time.Time{}) }()
	}
	if _, err := w.conn.Write(buf); err != nil {
		return errors.Wrap(err, "socketcan write error frame")
	}
	return nil
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
