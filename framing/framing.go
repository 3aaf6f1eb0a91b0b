// Package framing provides a length-prefixed frame delimiter for
// byte-stream Channels (raw TCP, serial links) that don't already
// delimit message boundaries. It is adapted from the chunked-framing
// codec in github.com/damianoneill/net's netconf/rfc6242 package,
// generalized away from NETCONF's chunk grammar into a single
// "<decimal length>\n<payload>" header reusable by any stream-oriented
// Channel implementation in the transport subpackage.
package framing

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ErrInvalidHeader is returned when a frame's length header cannot be
// parsed as a non-negative decimal integer.
var ErrInvalidHeader = errors.New("framing: invalid length header")

// DefaultMaxFrameSize bounds a single frame's payload, guarding against an
// unbounded read buffer on a misbehaving peer.
const DefaultMaxFrameSize = 1 << 20 // 1 MiB

// Encoder writes length-prefixed frames to an underlying io.Writer.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// WriteFrame writes one length-prefixed frame containing b.
func (e *Encoder) WriteFrame(b []byte) error {
	header := strconv.Itoa(len(b)) + "\n"
	if _, err := e.w.Write([]byte(header)); err != nil {
		return errors.Wrap(err, "write frame header")
	}
	if _, err := e.w.Write(b); err != nil {
		return errors.Wrap(err, "write frame body")
	}
	return nil
}

// Decoder reads length-prefixed frames from an underlying io.Reader using
// a bufio.Scanner with a custom split function, the same shape as
// rfc6242.Decoder's use of bufio.Scanner.Split.
type Decoder struct {
	s *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r. maxFrameSize bounds both
// the scanner buffer and the largest frame payload accepted; 0 selects
// DefaultMaxFrameSize.
func NewDecoder(r io.Reader, maxFrameSize int) *Decoder {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	initial := 4096
	if initial > maxFrameSize {
		initial = maxFrameSize
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initial), maxFrameSize)
	s.Split(splitLengthPrefixed)
	return &Decoder{s: s}
}

// ReadFrame returns the next frame's payload, or io.EOF once the
// underlying reader is exhausted.
func (d *Decoder) ReadFrame() ([]byte, error) {
	if !d.s.Scan() {
		if err := d.s.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	token := d.s.Bytes()
	frame := make([]byte, len(token))
	copy(frame, token)
	return frame, nil
}

func splitLengthPrefixed(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		if atEOF {
			return 0, nil, nil
		}
		return 0, nil, nil
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		if atEOF {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	}
	n, convErr := strconv.Atoi(string(data[:nl]))
	if convErr != nil || n < 0 {
		return 0, nil, ErrInvalidHeader
	}
	total := nl + 1 + n
	if len(data) < total {
		if atEOF {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	}
	return total, data[nl+1 : total], nil
}
