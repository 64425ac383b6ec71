package engine

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EventKind classifies snapshot updates for subscribers.
type EventKind string

const (
	KindGit     EventKind = "git"
	KindProject EventKind = "project"
	KindUser    EventKind = "user"
	KindTeam    EventKind = "team"
	KindCustom  EventKind = "custom" // paths outside the typed sections
	KindClear   EventKind = "clear"
)

// Event is delivered to subscribers after every snapshot mutation.
type Event struct {
	Kind EventKind
	Path string // dotted path for Update events, empty for refreshes
	Data any
	Time time.Time
}

const subscriberQueue = 64

type subscriber struct {
	fn    func(Event)
	kinds map[EventKind]bool
	ch    chan Event
}

func (s *subscriber) wants(k EventKind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// run delivers queued events until the queue is closed.
func (s *subscriber) run(log *logrus.Entry) {
	for ev := range s.ch {
		deliver(s.fn, ev, log)
	}
}

func deliver(fn func(Event), ev Event, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("kind", ev.Kind).Errorf("subscriber panicked: %v", r)
		}
	}()
	fn(ev)
}

func kindOf(path string) EventKind {
	head, _, _ := strings.Cut(path, ".")
	switch head {
	case "git":
		return KindGit
	case "project":
		return KindProject
	case "user":
		return KindUser
	case "team":
		return KindTeam
	}
	return KindCustom
}
