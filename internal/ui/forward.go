package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// msgQueue delivers store notifications to the program in the order the
// stores committed them. post never blocks, so observers can run while a
// store holds its lock.
type msgQueue struct {
	send func(tea.Msg)

	mu      sync.Mutex
	pending []tea.Msg
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newMsgQueue(send func(tea.Msg)) *msgQueue {
	q := &msgQueue{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.drain()
	return q
}

func (q *msgQueue) post(msg tea.Msg) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// close stops the drain goroutine and drops anything not yet sent.
func (q *msgQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

func (q *msgQueue) drain() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}
		for {
			q.mu.Lock()
			if q.closed || len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			msg := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			q.send(msg)
		}
	}
}
