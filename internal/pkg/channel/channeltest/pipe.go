// Package channeltest provides an in-memory channel transport for tests.
package channeltest

import (
	"context"
	"errors"
	"sync"

	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
)

var errClosed = errors.New("channeltest: connection closed")

// Pipe is a Dialer whose single connection is driven by the test: Push
// delivers a frame to the client and Sent returns what the client wrote.
type Pipe struct {
	incoming chan channel.Frame
	closed   chan struct{}
	once     sync.Once

	mu   sync.Mutex
	sent []channel.Frame
}

func NewPipe() *Pipe {
	return &Pipe{
		incoming: make(chan channel.Frame, 64),
		closed:   make(chan struct{}),
	}
}

// Dial hands out the pipe itself; after it is closed dialing fails until
// the context ends.
func (p *Pipe) Dial(ctx context.Context) (channel.Conn, error) {
	select {
	case <-p.closed:
		return nil, errClosed
	default:
		return p, nil
	}
}

// Push encodes payload and delivers it to the client as event.
func (p *Pipe) Push(event string, payload interface{}) error {
	frame, err := channel.NewFrame(event, payload)
	if err != nil {
		return err
	}
	p.incoming <- frame
	return nil
}

// Sent returns a copy of every frame written by the client
func (p *Pipe) Sent() []channel.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]channel.Frame(nil), p.sent...)
}

func (p *Pipe) ReadFrame() (channel.Frame, error) {
	select {
	case f := <-p.incoming:
		return f, nil
	case <-p.closed:
		return channel.Frame{}, errClosed
	}
}

func (p *Pipe) WriteFrame(f channel.Frame) error {
	select {
	case <-p.closed:
		return errClosed
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, f)
	return nil
}

func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
