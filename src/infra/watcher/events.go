package watcher

import (
	"time"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileModified FileEventType = "modified"
)

// FileEvent is emitted once per debounce window for a store's drop directory
type FileEvent struct {
	StoreID   string
	Path      string
	EventType FileEventType
	Timestamp time.Time
}
