package contentflow

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) NodeSaved(ctx context.Context, node *ContentNode) error { return nil }

func (n *NoopEventSink) NodePublished(ctx context.Context, node *ContentNode, cultures []string) error {
	return nil
}

func (n *NoopEventSink) NodeUnpublished(ctx context.Context, node *ContentNode, cultures []string) error {
	return nil
}

func (n *NoopEventSink) NodeSentForApproval(ctx context.Context, node *ContentNode) error {
	return nil
}

func (n *NoopEventSink) NodeMoved(ctx context.Context, node *ContentNode, oldParentID int) error {
	return nil
}

func (n *NoopEventSink) NodeCopied(ctx context.Context, original, copy *ContentNode) error {
	return nil
}

func (n *NoopEventSink) NodesSorted(ctx context.Context, parentID int, orderedIDs []int) error {
	return nil
}

func (n *NoopEventSink) NodeTrashed(ctx context.Context, node *ContentNode) error { return nil }

func (n *NoopEventSink) NodeRestored(ctx context.Context, node *ContentNode) error { return nil }

func (n *NoopEventSink) NodeDeleted(ctx context.Context, id int) error { return nil }

// LoggingEventSink is an event sink that logs events but takes no other
// action. Useful for development and debugging.
type LoggingEventSink struct {
	log *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(log *slog.Logger) EventSink {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingEventSink{log: log}
}

func (l *LoggingEventSink) NodeSaved(ctx context.Context, node *ContentNode) error {
	l.log.Info("node saved", "node", node.ID, "name", node.Name)
	return nil
}

func (l *LoggingEventSink) NodePublished(ctx context.Context, node *ContentNode, cultures []string) error {
	l.log.Info("node published", "node", node.ID, "cultures", cultures)
	return nil
}

func (l *LoggingEventSink) NodeUnpublished(ctx context.Context, node *ContentNode, cultures []string) error {
	l.log.Info("node unpublished", "node", node.ID, "cultures", cultures)
	return nil
}

func (l *LoggingEventSink) NodeSentForApproval(ctx context.Context, node *ContentNode) error {
	l.log.Info("node sent for approval", "node", node.ID)
	return nil
}

func (l *LoggingEventSink) NodeMoved(ctx context.Context, node *ContentNode, oldParentID int) error {
	l.log.Info("node moved", "node", node.ID, "from", oldParentID, "to", node.ParentID)
	return nil
}

func (l *LoggingEventSink) NodeCopied(ctx context.Context, original, copy *ContentNode) error {
	l.log.Info("node copied", "source", original.ID, "copy", copy.ID)
	return nil
}

func (l *LoggingEventSink) NodesSorted(ctx context.Context, parentID int, orderedIDs []int) error {
	l.log.Info("children sorted", "parent", parentID, "count", len(orderedIDs))
	return nil
}

func (l *LoggingEventSink) NodeTrashed(ctx context.Context, node *ContentNode) error {
	l.log.Info("node trashed", "node", node.ID)
	return nil
}

func (l *LoggingEventSink) NodeRestored(ctx context.Context, node *ContentNode) error {
	l.log.Info("node restored", "node", node.ID, "parent", node.ParentID)
	return nil
}

func (l *LoggingEventSink) NodeDeleted(ctx context.Context, id int) error {
	l.log.Info("node deleted", "node", id)
	return nil
}

// AllowAllPermissions is a PermissionRepository that grants every code on
// every path. Useful for tests and single-user setups.
type AllowAllPermissions struct{}

// NewAllowAllPermissions creates a permission repository granting everything
func NewAllowAllPermissions() PermissionRepository {
	return &AllowAllPermissions{}
}

func (a *AllowAllPermissions) AssignedPermissions(ctx context.Context, userID, nodeID int) (PermissionSet, bool, error) {
	return nil, false, nil
}

func (a *AllowAllPermissions) PermissionsForPath(ctx context.Context, userID int, path string) (PermissionSet, error) {
	return NewPermissionSet(
		PermBrowse, PermCreate, PermUpdate, PermDelete, PermPublish,
		PermUnpublish, PermMove, PermCopy, PermSort, PermSendForApproval,
	), nil
}
