package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

// maxLineSize is the maximum size of one framed message.
const maxLineSize = 1024 * 1024 // 1MB

// Encoder writes newline-delimited JSON messages.
// JSON string escaping guarantees no message contains a raw newline, so an
// argument may hold any text, including spaces and line breaks.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as one line. Safe for concurrent use.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(data); err != nil {
		return err
	}

	return nil
}

// Decoder reads newline-delimited JSON messages.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	return &Decoder{scanner: scanner}
}

// next returns the next non-empty line, or io.EOF once the peer closed.
func (d *Decoder) next() ([]byte, error) {
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		return line, nil
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// ReadRequest reads one request.
func (d *Decoder) ReadRequest() (Request, error) {
	line, err := d.next()
	if err != nil {
		return Request{}, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, &errors.FrameDecodeError{RawData: string(line), Err: err}
	}

	if req.Type != TypeRequest {
		return Request{}, &errors.FrameDecodeError{
			RawData: string(line),
			Err:     fmt.Errorf("unexpected message type %q", req.Type),
		}
	}

	return req, nil
}

// ReadResponse reads one response or hello.
func (d *Decoder) ReadResponse() (Response, error) {
	line, err := d.next()
	if err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, &errors.FrameDecodeError{RawData: string(line), Err: err}
	}

	switch resp.Type {
	case TypeResponse, TypeHello:
		return resp, nil
	default:
		return Response{}, &errors.FrameDecodeError{
			RawData: string(line),
			Err:     fmt.Errorf("unexpected message type %q", resp.Type),
		}
	}
}
