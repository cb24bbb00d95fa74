// Package capture redirects an output channel such as the process's
// standard output into a bounded in-memory buffer while a procedure runs,
// then compares what was written against an expected text.
//
// Both the captured and the expected text end at their first zero byte,
// so text containing an embedded NUL compares as if it ended there.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

const blockSize = 8192

var (
	ErrNilChannel = errors.New("capture: invalid channel")
	ErrNilProc    = errors.New("capture: nil procedure")
	ErrBusy       = errors.New("capture: channel is already being captured")
)

// Channel is a handle on a process-wide *os.File variable. Captures swap
// the variable's value, so writers must look it up at write time (fmt.Print
// does, a logger built around the old value does not).
type Channel struct {
	name string
	file **os.File
	busy atomic.Bool
}

var (
	Stdout = NewChannel("stdout", &os.Stdout)
	Stderr = NewChannel("stderr", &os.Stderr)
)

func NewChannel(name string, file **os.File) *Channel {
	return &Channel{name: name, file: file}
}

func (c *Channel) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *Channel) valid() bool {
	return c != nil && c.file != nil && *c.file != nil
}

// Result describes one channel of a finished check.
type Result struct {
	Channel    string
	Expected   string
	Captured   string // text before the first zero byte
	Written    int64  // bytes written, including any discarded surplus
	BufferSize int
	Overflow   bool // no room was left for a terminator
	Match      bool
}

// BufferSize returns the capture buffer size used for an expected text of
// n bytes: the multiple of 8192 strictly above 2n rounded down to 8192.
func BufferSize(n int) int {
	if n <= 0 {
		n = 1
	}
	return ((2 * n >> 13) + 1) << 13
}

// CheckStream reports whether everything proc writes to ch equals expected.
// An empty expected text means proc must write nothing.
func CheckStream(ch *Channel, proc func(), expected string) bool {
	res, err := Check(ch, proc, expected)
	return err == nil && res.Match
}

// CheckStdStreams runs proc once and reports whether its standard output
// equals expectedOut and its standard error equals expectedErr.
func CheckStdStreams(proc func(), expectedOut, expectedErr string) bool {
	out, errRes, err := CheckStd(proc, expectedOut, expectedErr)
	return err == nil && out.Match && errRes.Match
}

func Check(ch *Channel, proc func(), expected string) (Result, error) {
	if err := validate(proc, ch); err != nil {
		return Result{}, err
	}
	results, err := checkAll(proc, []*Channel{ch}, []string{expected})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

func CheckStd(proc func(), expectedOut, expectedErr string) (stdout, stderr Result, err error) {
	if err := validate(proc, Stdout, Stderr); err != nil {
		return Result{}, Result{}, err
	}
	results, err := checkAll(proc, []*Channel{Stdout, Stderr}, []string{expectedOut, expectedErr})
	if err != nil {
		return Result{}, Result{}, err
	}
	return results[0], results[1], nil
}

// validate rejects bad arguments before anything is allocated or attached.
func validate(proc func(), channels ...*Channel) error {
	if proc == nil {
		return ErrNilProc
	}
	for _, ch := range channels {
		if !ch.valid() {
			return ErrNilChannel
		}
	}
	return nil
}

// checkAll attaches every channel, runs proc once and restores the
// channels in reverse order, whatever proc does.
func checkAll(proc func(), channels []*Channel, expected []string) (_ []Result, err error) {
	if err := validate(proc, channels...); err != nil {
		return nil, err
	}

	sessions := make([]*session, 0, len(channels))
	defer func() {
		for i := len(sessions) - 1; i >= 0; i-- {
			if detachErr := sessions[i].detach(); detachErr != nil && err == nil {
				err = detachErr
			}
		}
	}()

	for i, ch := range channels {
		s, attachErr := attach(ch, expected[i])
		if attachErr != nil {
			return nil, attachErr
		}
		sessions = append(sessions, s)
	}

	proc()

	// Restore before comparing so nothing proc left running can still
	// write into the buffers.
	results := make([]Result, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		if detachErr := s.detach(); detachErr != nil {
			return nil, detachErr
		}
		results[i] = s.result
	}
	return results, nil
}

type session struct {
	ch       *Channel
	orig     *os.File
	r, w     *os.File
	buf      []byte
	n        int
	written  int64
	expected string
	done     chan error
	detached bool
	result   Result
}

func attach(ch *Channel, expected string) (*session, error) {
	if !ch.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, ch.name)
	}
	// Expected text ends at its first zero byte, like the captured text.
	if i := strings.IndexByte(expected, 0); i >= 0 {
		expected = expected[:i]
	}
	orig := *ch.file
	// Terminals and pipes reject Sync; there is nothing pending on them.
	_ = orig.Sync()

	r, w, err := os.Pipe()
	if err != nil {
		ch.busy.Store(false)
		return nil, fmt.Errorf("capturing %s: %w", ch.name, err)
	}
	s := &session{
		ch:       ch,
		orig:     orig,
		r:        r,
		w:        w,
		buf:      make([]byte, BufferSize(len(expected))),
		expected: expected,
		done:     make(chan error, 1),
	}
	*ch.file = w
	go s.drain()
	return s, nil
}

// drain fills the buffer from offset 0 and never past its capacity;
// surplus bytes are read and counted so the writer cannot block.
func (s *session) drain() {
	var scratch [4096]byte
	for {
		p := scratch[:]
		if s.n < len(s.buf) {
			p = s.buf[s.n:]
		}
		k, err := s.r.Read(p)
		if s.n < len(s.buf) {
			s.n += k
		}
		s.written += int64(k)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			s.done <- err
			return
		}
	}
}

func (s *session) detach() error {
	if s.detached {
		return nil
	}
	s.detached = true

	*s.ch.file = s.orig
	closeErr := s.w.Close()
	readErr := <-s.done
	_ = s.r.Close()

	s.result = compare(s.ch.name, s.expected, s.buf, s.n, s.written)
	clear(s.buf)
	s.buf = nil
	s.ch.busy.Store(false)

	if closeErr != nil {
		return fmt.Errorf("restoring %s: %w", s.ch.name, closeErr)
	}
	if readErr != nil {
		return fmt.Errorf("reading captured %s: %w", s.ch.name, readErr)
	}
	return nil
}

func compare(name, expected string, buf []byte, n int, written int64) Result {
	captured := buf[:n]
	if i := bytes.IndexByte(captured, 0); i >= 0 {
		captured = captured[:i]
	}
	res := Result{
		Channel:    name,
		Expected:   expected,
		Captured:   string(captured),
		Written:    written,
		BufferSize: len(buf),
		Overflow:   n >= len(buf),
	}
	if res.Overflow {
		return res
	}
	if expected == "" {
		res.Match = len(captured) == 0
	} else {
		res.Match = res.Captured == expected
	}
	return res
}
