// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"sync"
)

// Dispatcher runs tasks one at a time on a dedicated goroutine. It stands in
// for the presentation thread: the surface and observer callbacks are only
// touched from tasks.
type Dispatcher struct {
	logger Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	exited  chan struct{}
}

// NewDispatcher starts a dispatcher goroutine.
func NewDispatcher(logger Logger) *Dispatcher {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	d := &Dispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.exited)
	for {
		d.mu.Lock()
		tasks := d.queue
		d.queue = nil
		stopped := d.stopped
		d.mu.Unlock()

		for _, task := range tasks {
			d.runTask(task)
		}
		if stopped && len(tasks) == 0 {
			return
		}
		if len(tasks) > 0 {
			continue
		}

		select {
		case <-d.wake:
		case <-d.done:
		}
	}
}

func (d *Dispatcher) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Dispatcher task panicked", Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	task()
}

// Post queues fn without waiting. It reports false once the dispatcher
// has been stopped.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Invoke queues fn and waits until it has run. It must not be called from a
// dispatcher task. It returns an error if the dispatcher stops first.
func (d *Dispatcher) Invoke(fn func()) error {
	ran := make(chan struct{})
	if !d.Post(func() {
		defer close(ran)
		fn()
	}) {
		return invalidStateError("Dispatcher.Invoke", "dispatcher stopped")
	}

	select {
	case <-ran:
		return nil
	case <-d.exited:
		select {
		case <-ran:
			return nil
		default:
			return invalidStateError("Dispatcher.Invoke", "dispatcher stopped")
		}
	}
}

// Stop runs the tasks already queued and then ends the dispatcher goroutine.
// It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		<-d.exited
		return
	}
	d.stopped = true
	close(d.done)
	d.mu.Unlock()
	<-d.exited
}
