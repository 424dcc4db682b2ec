package controller

import (
	"io"
	"sync"

	"github.com/calvinmclean/jogpanel"
)

// noopPort is used with SerialPortNone. It accepts every command and completes it
// immediately so the UI and API can run without a device
type noopPort struct {
	mtx    sync.Mutex
	cond   *sync.Cond
	out    []byte
	closed bool
}

var _ io.ReadWriteCloser = (*noopPort)(nil)

func newNoopPort() *noopPort {
	p := &noopPort{}
	p.cond = sync.NewCond(&p.mtx)
	return p
}

// Write implements io.Writer. Each command gets a TerminationChar back
func (p *noopPort) Write(b []byte) (int, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}

	replies, err := countReplies(b)
	if err != nil {
		return 0, err
	}
	for range replies {
		p.out = append(p.out, jogpanel.TerminationChar)
	}
	p.cond.Broadcast()

	return len(b), nil
}

// Read implements io.Reader
func (p *noopPort) Read(b []byte) (int, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for len(p.out) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, io.EOF
	}

	n := copy(b, p.out)
	p.out = p.out[n:]
	return n, nil
}

// Close implements io.Closer
func (p *noopPort) Close() error {
	p.mtx.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mtx.Unlock()
	return nil
}
