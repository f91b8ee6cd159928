// sim/eventstream.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"
)

// EventStream provides a basic pub/sub event interface that allows any
// part of the system to post an event to the stream and other parts to
// subscribe and receive messages from the stream. Each exercise has one;
// connected clients drain their subscriptions with their periodic state
// update calls, which is how server-pushed messages (scenario updates,
// player departures, status text) reach them.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]interface{}
	lastPost      time.Time
	warnedLong    bool
	done          chan struct{}
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream stream array up to which the
	// subscriber has consumed events so far.
	offset      int
	source      string
	lastGet     time.Time
	warnedNoGet bool
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source),
		slog.Time("last_get", e.lastGet))
}

func NewEventStream(lg *log.Logger) *EventStream {
	es := &EventStream{
		subscriptions: make(map[*EventsSubscription]interface{}),
		lastPost:      time.Now(),
		done:          make(chan struct{}),
		lg:            lg,
	}
	go es.monitor()
	return es
}

// Subscribe registers a new subscriber to the stream and returns an
// EventsSubscription for it that can then be used to fetch events.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", fn, line)

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  source,
		lastGet: time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscriptions[sub] = nil
	return sub
}

func (e *EventStream) monitor() {
	tick := time.Tick(5 * time.Second)

	for {
		<-tick

		select {
		case <-e.done:
			return
		default:
		}

		e.mu.Lock()

		e.compact()

		if len(e.events) > 1000 && !e.warnedLong {
			// It's likely that one of the subscribers is out to lunch if
			// the stream has grown this long.
			e.lg.Warn("Long EventStream", slog.Int("length", len(e.events)))
			e.warnedLong = true
		}

		e.mu.Unlock()
	}
}

// Unsubscribe removes a subscriber from the subscriber list. The
// subscription keeps its stream pointer so that a Get racing the
// unsubscribe sees an empty subscription rather than chasing a nil
// pointer.
func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	delete(e.stream.subscriptions, e)
}

// Post adds an event to the event stream.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	// Ignore the event if no one's paying attention.
	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns all of the events from the stream since the last time Get
// was called for this subscription. Note that events posted before a
// subscription was created are never reported for it.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		// A state-update poll can race the idle cull's sign-off; an
		// unsubscribed subscription simply has nothing to report.
		return nil
	}

	events := util.DuplicateSlice(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()
	e.warnedNoGet = false

	return events
}

func (e *EventStream) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case e.done <- struct{}{}:
	default:
	}

	close(e.done)
	clear(e.subscriptions)
}

// compact reclaims storage for events that all subscribers have seen; it
// is called periodically so that EventStream memory usage doesn't grow
// without bound.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		if sub.offset < minOffset {
			minOffset = sub.offset
		}
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}

		e.warnedLong = false // reset this after a successful compact.
	}
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	StatusMessageEvent EventType = iota
	ScenarioUpdateEvent
	PlayerLeftEvent
	OwnerChangedEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"StatusMessage", "ScenarioUpdate", "PlayerLeft", "OwnerChanged"}[t]
}

type Event struct {
	Type        EventType
	TrackID     TrackID
	Callsign    string
	WrittenText string
	// Scenario is set for ScenarioUpdateEvents only: the pending spawn
	// queue plus the currently active NPC tracks.
	Scenario *ScenarioStatus
}

func (e *Event) String() string {
	return fmt.Sprintf("%s: track %q callsign %q text %q", e.Type, e.TrackID, e.Callsign, e.WrittenText)
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String())}
	if e.TrackID != "" {
		attrs = append(attrs, slog.String("track", string(e.TrackID)))
	}
	if e.Callsign != "" {
		attrs = append(attrs, slog.String("callsign", e.Callsign))
	}
	if e.WrittenText != "" {
		attrs = append(attrs, slog.String("written_text", e.WrittenText))
	}
	return slog.GroupValue(attrs...)
}
