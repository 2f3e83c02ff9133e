package upload

import (
	"sync"

	"github.com/slok/cupload/internal/model"
)

type eventKind int

const (
	eventProgress eventKind = iota
	eventOutcome
)

// event is a driver report waiting to be applied by the orchestrator loop.
type event struct {
	kind     eventKind
	run      *taskRun
	progress float64
	outcome  model.Outcome
	reason   string
}

// inbox is an unbounded queue of driver events. Pushing never blocks, so
// drivers can report while holding their handle guard.
type inbox struct {
	mu     sync.Mutex
	events []event
	wakeC  chan struct{}
}

func newInbox() *inbox {
	return &inbox{wakeC: make(chan struct{}, 1)}
}

func (i *inbox) push(ev event) {
	i.mu.Lock()
	i.events = append(i.events, ev)
	i.mu.Unlock()

	select {
	case i.wakeC <- struct{}{}:
	default:
	}
}

func (i *inbox) take() []event {
	i.mu.Lock()
	defer i.mu.Unlock()

	evs := i.events
	i.events = nil
	return evs
}

func (i *inbox) wake() <-chan struct{} { return i.wakeC }
