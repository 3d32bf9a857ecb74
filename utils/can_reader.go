package utils

import (
	"context"
	"net"
	"sync"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can/pkg/socketcan"
)

// CANReader defines the interface for reading CAN frames
type CANReader interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

type readResult struct {
	frame Frame
	err   error
}

// SocketCANReader implements CANReader using Einride's socketcan
type SocketCANReader struct {
	conn net.Conn
	recv *socketcan.Receiver

	once    sync.Once
	results chan readResult
	done    chan struct{}
	closed  sync.Once
}

// NewSocketCANReader creates a new SocketCAN reader
func NewSocketCANReader(ctx context.Context, ifname string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", ifname)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}

	return &SocketCANReader{
		conn:    conn,
		recv:    socketcan.NewReceiver(conn),
		results: make(chan readResult),
		done:    make(chan struct{}),
	}, nil
}

// pump is the only goroutine touching the receiver, so frames are handed
// out strictly in arrival order.
func (r *SocketCANReader) pump() {
	defer close(r.results)
	for r.recv.Receive() {
		var res readResult
		if r.recv.HasErrorFrame() {
			res.frame = FromErrorFrame(r.recv.ErrorFrame())
		} else {
			res.frame = FromEinrideFrame(r.recv.Frame())
		}
		if !r.send(res) {
			return
		}
	}
	err := r.recv.Err()
	if err == nil {
		err = net.ErrClosed
	}
	r.send(readResult{err: errors.Wrap(err, "socketcan receive")})
}

func (r *SocketCANReader) send(res readResult) bool {
	select {
	case r.results <- res:
		return true
	case <-r.done:
		return false
	}
}

// ReadFrame blocks until the next frame arrives or ctx is done.
func (r *SocketCANReader) ReadFrame(ctx context.Context) (Frame, error) {
	r.once.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case res, ok := <-r.results:
		if !ok {
			return Frame{}, net.ErrClosed
		}
		return res.frame, res.err
	}
}

// Close closes the CAN socket
func (r *SocketCANReader) Close() error {
	var err error
	r.closed.Do(func() {
		close(r.done)
		if r.conn != nil {
			err = r.conn.Close()
		}
	})
	return err
}
