// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the synchronous event dispatcher used by the save cycle.
package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Event is one dispatched occurrence of a lifecycle event. Listeners
// receive it in registration order and may stop propagation, optionally
// substituting a result the caller sees verbatim.
type Event struct {
	ID      string // unique id assigned at dispatch
	Name    string // event name, e.g. EventPreSave
	Payload any    // event payload, a *SavePayload for save events

	stopped bool
	result  any
}

// Stop halts propagation: listeners registered after this one never run.
func (e *Event) Stop() { e.stopped = true }

// StopWithResult halts propagation and records a result. For EventPreSave
// the save is vetoed and the result is handed back to the Save caller
// unchanged.
func (e *Event) StopWithResult(result any) {
	e.stopped = true
	e.result = result
}

// Stopped reports whether a listener halted propagation.
func (e *Event) Stopped() bool { return e.stopped }

// Result returns the value recorded by StopWithResult, or nil.
func (e *Event) Result() any { return e.result }

// Listener is the callback signature for event subscribers.
type Listener func(ctx context.Context, event *Event)

// Dispatcher delivers events synchronously, in registration order, on the
// caller's goroutine. It is safe for concurrent registration and dispatch.
//
// Example:
//
//	dispatcher := core.NewDispatcher()
//	dispatcher.On(core.EventPreSave, func(ctx context.Context, e *core.Event) {
//	    payload := e.Payload.(*core.SavePayload)
//	    if payload.Create {
//	        e.StopWithResult(42)
//	    }
//	})
type Dispatcher struct {
	mutex     sync.RWMutex
	listeners map[string][]Listener
}

// NewDispatcher creates a dispatcher with no listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]Listener)}
}

// On registers a listener for the named event.
func (d *Dispatcher) On(name string, listener Listener) {
	if listener == nil {
		panic("core: event listener is nil")
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.listeners[name] = append(d.listeners[name], listener)
}

// Dispatch delivers the payload to every listener of the named event,
// stopping early if one halts propagation. It returns the event so the
// caller can inspect Stopped and Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload any) *Event {
	event := &Event{ID: uuid.NewString(), Name: name, Payload: payload}

	d.mutex.RLock()
	listeners := append([]Listener(nil), d.listeners[name]...)
	d.mutex.RUnlock()

	for _, listener := range listeners {
		listener(ctx, event)
		if event.stopped {
			break
		}
	}
	return event
}
