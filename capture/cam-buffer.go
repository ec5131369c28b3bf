package capture

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// readFunc pulls one frame from a device. It must return within a bounded
// time so the buffer can be stopped; ErrTimeout means "nothing yet".
type readFunc func() (*Frame, error)

// camBuffer runs a reader goroutine and keeps only the latest frame.
type camBuffer struct {
	frame chan *Frame
	done  chan struct{}
	err   error
	seq   uint64

	started atomic.Bool
	stopped atomic.Bool
}

func newCamBuffer() *camBuffer {
	return &camBuffer{
		frame: make(chan *Frame, 1),
		done:  make(chan struct{}),
	}
}

func (c *camBuffer) start(read readFunc) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for !c.isStopped() {
			frame, err := read()
			switch {
			case errors.Is(err, ErrTimeout):
				continue
			case err != nil:
				c.err = err
				return
			case frame == nil:
				continue
			}

			if c.isStopped() {
				return
			}
			c.seq++
			frame.Sequence = c.seq
			c.put(frame)
		}
	}()
}

// put replaces a frame nobody picked up yet.
func (c *camBuffer) put(frame *Frame) {
	select {
	case c.frame <- frame:
		return
	default:
	}
	select {
	case <-c.frame:
	default:
	}
	select {
	case c.frame <- frame:
	default:
	}
}

func (c *camBuffer) get(timeout time.Duration) (*Frame, error) {
	select {
	case frame := <-c.frame:
		return frame, nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case frame := <-c.frame:
		return frame, nil
	case <-c.done:
		return nil, c.failure()
	case <-expired:
		return nil, ErrTimeout
	}
}

func (c *camBuffer) failure() error {
	if c.err != nil {
		return errors.Wrap(c.err, "Stream reader failed")
	}
	return ErrStreamStopped
}

func (c *camBuffer) isStopped() bool {
	return c.stopped.Load()
}

// stop blocks until the reader goroutine has returned.
func (c *camBuffer) stop() {
	c.stopped.Store(true)
	if c.started.Load() {
		<-c.done
	}
}
