package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDownload EventKind = "download"
	EventError    EventKind = "error"
	EventSuccess  EventKind = "success"
)

/**
 * One event of a flow
 * @property {EventKind} kind - progress/download are intermediate, error/success are terminal
 * @property {string} message - Human readable text
 * @property {DownloadProgress} download - Set on download events
 * @property {int} pid - Server PID on successful starts
 * @property {int} port - Server port on successful starts
 * @property {string} version - Installed version on successful installs
 * @property {error} err - Cause of an error event, matches the sentinel errors with errors.Is
 */
type Event struct {
	FlowID   string                   `json:"flowId"`
	Kind     EventKind                `json:"kind"`
	Message  string                   `json:"message"`
	Download *models.DownloadProgress `json:"download,omitempty"`
	Pid      int                      `json:"pid,omitempty"`
	Port     int                      `json:"port,omitempty"`
	Version  string                   `json:"version,omitempty"`
	Err      error                    `json:"-"`
	Time     time.Time                `json:"time"`
}

func (e Event) Terminal() bool {
	return e.Kind == EventError || e.Kind == EventSuccess
}

/**
 * Handle of an asynchronous operation
 * @description
 * - Events are delivered in order on one channel, which is closed after exactly one terminal event
 * - Consumers must drain Events() (or call Wait), otherwise the worker blocks
 */
type Flow struct {
	ID     string
	Name   string
	events chan Event
	mutex  sync.Mutex
	closed bool
	result Event
}

func newFlow(name string) *Flow {
	return &Flow{
		ID:     uuid.NewString(),
		Name:   name,
		events: make(chan Event, 64),
	}
}

func (f *Flow) Events() <-chan Event {
	return f.events
}

/**
 * Drain all events and return the terminal one
 */
func (f *Flow) Wait() Event {
	var last Event
	for ev := range f.events {
		last = ev
	}
	return last
}

// emit 流程结束后返回false，事件被丢弃
func (f *Flow) emit(ev Event) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.closed {
		return false
	}
	ev.FlowID = f.ID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	f.events <- ev
	if ev.Terminal() {
		f.closed = true
		f.result = ev
		close(f.events)
	}
	return true
}

func (f *Flow) resultKind() EventKind {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.result.Kind
}

/**
 * Step reporter handed to flow workers
 */
type reporter struct {
	flow *Flow
}

func (r *reporter) Progress(msg string) bool {
	logger.Infof("[%s] %s", r.flow.Name, msg)
	return r.flow.emit(Event{Kind: EventProgress, Message: msg})
}

func (r *reporter) Progressf(format string, args ...interface{}) bool {
	return r.Progress(fmt.Sprintf(format, args...))
}

func (r *reporter) Download(p models.DownloadProgress) bool {
	return r.flow.emit(Event{Kind: EventDownload, Download: &p})
}

type flowFunc func(ctx context.Context, r *reporter) (Event, error)

/**
 * Run a worker in its own goroutine and return its flow handle immediately
 * @description
 * - A returned error becomes the error event, otherwise the returned event is sent as success
 * - Panics are recovered at the goroutine boundary and reported as errors
 */
func runFlow(name string, fn flowFunc) *Flow {
	f := newFlow(name)
	go func() {
		start := time.Now()
		r := &reporter{flow: f}
		defer func() {
			if p := recover(); p != nil {
				logger.Errorf("[%s] panic: %v", name, p)
				f.emit(Event{Kind: EventError, Message: fmt.Sprintf("internal error: %v", p), Err: fmt.Errorf("panic: %v", p)})
			}
			RecordFlow(name, f.resultKind(), time.Since(start))
		}()

		ev, err := fn(context.Background(), r)
		if err != nil {
			logger.Errorf("[%s] failed: %v", name, err)
			f.emit(Event{Kind: EventError, Message: err.Error(), Err: err})
			return
		}
		ev.Kind = EventSuccess
		logger.Infof("[%s] %s", name, ev.Message)
		f.emit(ev)
	}()
	return f
}

// failedFlow 直接以错误结束的流程
func failedFlow(name string, err error) *Flow {
	return runFlow(name, func(context.Context, *reporter) (Event, error) {
		return Event{}, err
	})
}
