package engine

import "github.com/rmax-ai/graphbar/pkg/graph"

// NotificationSink is subscribed to the bound connection and marks the
// dirty flag whenever the database reports a committed write.
type NotificationSink struct {
	flag *DirtyFlag
}

// NewNotificationSink creates a sink feeding flag.
func NewNotificationSink(flag *DirtyFlag) *NotificationSink {
	return &NotificationSink{flag: flag}
}

// Notify records that something changed. It never blocks.
func (s *NotificationSink) Notify() {
	s.flag.Set()
	GraphbarNotificationsTotal.Inc()
}

// Listener adapts the sink to a graph.Listener.
func (s *NotificationSink) Listener() graph.Listener {
	return s.Notify
}
