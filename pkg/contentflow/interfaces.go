package contentflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContentRepository defines the interface for content node persistence.
//
// SaveNode performs optimistic concurrency control: it returns ErrConflict
// when the node's Version no longer matches the stored row. New nodes carry
// ID 0; the repository assigns the id and the materialized path.
type ContentRepository interface {
	GetNode(ctx context.Context, id int) (*ContentNode, error)
	GetNodeByKey(ctx context.Context, key uuid.UUID) (*ContentNode, error)
	GetChildren(ctx context.Context, q ChildrenQuery) ([]*ContentNode, int, error)
	SaveNode(ctx context.Context, node *ContentNode) error
	DeleteNode(ctx context.Context, id int) error

	// MoveNode reparents a node and rewrites the materialized paths and the
	// trashed flags of the whole subtree.
	MoveNode(ctx context.Context, id, newParentID int) error

	// UpdateSortOrders applies a full ordering for one parent's children.
	UpdateSortOrders(ctx context.Context, parentID int, orderedIDs []int) error

	InsertRelation(ctx context.Context, rel *Relation) error
}

// ChildrenQuery defines paging, filtering and sorting for a children listing.
type ChildrenQuery struct {
	ParentID       int
	Offset         int
	Limit          int
	OrderBy        string // "name", "sortOrder", "createdAt" (default sortOrder)
	Desc           bool
	Filter         string // case-insensitive substring match on name
	IncludeTrashed bool
}

// Relation records a typed link between two nodes.
type Relation struct {
	ID        uuid.UUID `json:"id"`
	ParentID  int       `json:"parent_id"`
	ChildID   int       `json:"child_id"`
	RelType   string    `json:"rel_type"`
	CreatedAt time.Time `json:"created_at"`
}

// RelationCopied links a copy back to its original.
const RelationCopied = "relateDocumentOnCopy"

// LanguageCatalog exposes the process-wide language snapshot. Implementations
// must be consistent within a request; no caching beyond that is assumed.
type LanguageCatalog interface {
	Languages(ctx context.Context) ([]Language, error)
}

// TypeCatalog exposes synchronous content-type lookups.
type TypeCatalog interface {
	ContentTypeByAlias(ctx context.Context, alias string) (*ContentType, error)
}

// PermissionRepository defines the interface for permission persistence.
type PermissionRepository interface {
	// AssignedPermissions returns the codes explicitly assigned to the user
	// at one node, and whether such an assignment exists. Assignments are
	// persisted only when they differ from the path defaults.
	AssignedPermissions(ctx context.Context, userID, nodeID int) (PermissionSet, bool, error)

	// PermissionsForPath returns the user's inherited default codes for a
	// materialized path.
	PermissionsForPath(ctx context.Context, userID int, path string) (PermissionSet, error)
}

// EventSink defines the interface for after-the-fact notifications. Sink
// errors are logged by the service and never fail the operation; vetoes
// happen in the Before* hook chains instead (see Hooks).
type EventSink interface {
	// NodeSaved is fired when a node's edits are persisted
	NodeSaved(ctx context.Context, node *ContentNode) error

	// NodePublished is fired when cultures transition to published
	NodePublished(ctx context.Context, node *ContentNode, cultures []string) error

	// NodeUnpublished is fired when cultures are demoted
	NodeUnpublished(ctx context.Context, node *ContentNode, cultures []string) error

	// NodeSentForApproval is fired when a node is queued for approval
	NodeSentForApproval(ctx context.Context, node *ContentNode) error

	// NodeMoved is fired after a move commits
	NodeMoved(ctx context.Context, node *ContentNode, oldParentID int) error

	// NodeCopied is fired after a copy commits
	NodeCopied(ctx context.Context, original, copy *ContentNode) error

	// NodesSorted is fired after a reorder commits
	NodesSorted(ctx context.Context, parentID int, orderedIDs []int) error

	// NodeTrashed is fired when a node enters the recycle bin
	NodeTrashed(ctx context.Context, node *ContentNode) error

	// NodeRestored is fired when a node leaves the recycle bin
	NodeRestored(ctx context.Context, node *ContentNode) error

	// NodeDeleted is fired after a hard delete
	NodeDeleted(ctx context.Context, id int) error
}
