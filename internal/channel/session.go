package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// Listener is the supervisor-owned endpoint of one channel session.
// It accepts exactly one worker connection.
type Listener struct {
	ln   *net.UnixListener
	path string
}

// Listen creates the endpoint at path.
func Listen(ctx context.Context, path string) (*Listener, error) {
	ln, err := ListenUnix(ctx, path)
	if err != nil {
		return nil, err
	}

	return &Listener{ln: ln, path: path}, nil
}

// Path returns the socket path workers connect to.
func (l *Listener) Path() string {
	return l.path
}

// Accept waits for the worker to connect. The wait ends with
// ErrConnectTimeout at the ctx deadline, or ctx's error on cancellation.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := l.ln.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set accept deadline: %w", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.ErrConnectTimeout
			}

			return nil, ctx.Err()
		}

		if ne, ok := stderrors.AsType[net.Error](err); ok && ne.Timeout() {
			return nil, errors.ErrConnectTimeout
		}

		return nil, fmt.Errorf("accept worker connection: %w", err)
	}

	return NewSession(conn), nil
}

// Close releases the endpoint and removes the socket file.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Session is a live, framed connection between supervisor and worker.
type Session struct {
	conn      net.Conn
	enc       *protocol.Encoder
	dec       *protocol.Decoder
	closeOnce sync.Once
	closeErr  error
}

// NewSession frames conn.
func NewSession(conn net.Conn) *Session {
	return &Session{
		conn: conn,
		enc:  protocol.NewEncoder(conn),
		dec:  protocol.NewDecoder(conn),
	}
}

// WriteRequest sends one request.
func (s *Session) WriteRequest(req protocol.Request) error {
	if err := s.enc.Encode(req); err != nil {
		return &errors.TransportError{Op: "send", Err: err}
	}

	return nil
}

// SendRequest writes req, giving up when ctx ends. A write cut short by ctx
// returns ctx's error.
func (s *Session) SendRequest(ctx context.Context, req protocol.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return &errors.TransportError{Op: "send", Err: err}
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetWriteDeadline(time.Now())
	})

	err := s.WriteRequest(req)

	if stop() {
		_ = s.conn.SetWriteDeadline(time.Time{})
	}

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// WriteResponse sends one response or hello.
func (s *Session) WriteResponse(resp protocol.Response) error {
	if err := s.enc.Encode(resp); err != nil {
		return &errors.TransportError{Op: "send", Err: err}
	}

	return nil
}

// ReadRequest blocks for the next request. io.EOF means the peer closed the
// session cleanly.
func (s *Session) ReadRequest() (protocol.Request, error) {
	return s.dec.ReadRequest()
}

// ReadResponse blocks for the next response. io.EOF means the peer closed the
// session cleanly.
func (s *Session) ReadResponse() (protocol.Response, error) {
	return s.dec.ReadResponse()
}

// Close closes the connection, unblocking any pending read. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}
