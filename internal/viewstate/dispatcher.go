// Package viewstate holds per-screen state: fetched entities, loading and
// error flags, and the derived views screens render.
package viewstate

import "sync"

// Dispatcher runs network work off the UI thread and marshals state updates
// back onto it.
type Dispatcher interface {
	// Async runs fn as an independent unit of work.
	Async(fn func())
	// Main runs fn on the thread that owns screen state.
	Main(fn func())
}

// Inline runs everything synchronously on the calling goroutine.
type Inline struct{}

func (Inline) Async(fn func()) { fn() }
func (Inline) Main(fn func())  { fn() }

// MainLoop executes Main functions serially on one goroutine in submission
// order. Async functions each get their own goroutine.
type MainLoop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
	work sync.WaitGroup
}

// NewMainLoop starts the loop goroutine.
func NewMainLoop() *MainLoop {
	l := &MainLoop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *MainLoop) Async(fn func()) {
	l.work.Add(1)
	go func() {
		defer l.work.Done()
		fn()
	}()
}

func (l *MainLoop) Main(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.work.Add(1)
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until all submitted work, including work submitted by that
// work, has finished. It must not be called from a Main function.
func (l *MainLoop) Wait() {
	l.work.Wait()
}

// Close stops accepting Main work, runs what is queued and stops the loop.
func (l *MainLoop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *MainLoop) run() {
	defer close(l.done)
	for range l.wake {
		for {
			l.mu.Lock()
			if len(l.pending) == 0 {
				closed := l.closed
				l.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := l.pending[0]
			l.pending[0] = nil
			l.pending = l.pending[1:]
			l.mu.Unlock()

			fn()
			l.work.Done()
		}
	}
}
