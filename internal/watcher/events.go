package watcher

import "time"

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change to one path. Within a batch a path appears once, with
// its latest event.
type Event struct {
	Path string
	Type EventType
	Time time.Time
}

// Gone reports whether the path no longer exists after the event.
func (e Event) Gone() bool {
	return e.Type == EventDelete || e.Type == EventRename
}
