package contentflow

// Request DTOs. The acting user is an explicit parameter on every request;
// the core never consults ambient identity.

// ApplyActionRequest carries one workflow action against a node.
//
// Node is the edited node: freshly constructed for *New actions, otherwise
// loaded and mutated in memory by the caller. Variants are the requested
// culture variants with their Publish flags; for non-varying types the
// single invariant variant is implied and Variants may be empty.
//
// ValidationErrors carries failures from validation performed outside the
// publication engine (request binding, field validators). A non-empty slice
// downgrades publish actions to their save counterpart.
type ApplyActionRequest struct {
	Action   ContentAction
	User     *User
	Node     *ContentNode
	Variants []*CultureVariant

	// Culture scopes ActionUnpublish to one culture; empty means all.
	Culture string

	ValidationErrors []string
}

// MoveRequest reparents a node.
type MoveRequest struct {
	User        *User
	NodeID      int
	NewParentID int
}

// CopyRequest duplicates a node, optionally with its subtree.
type CopyRequest struct {
	User             *User
	NodeID           int
	TargetParentID   int
	Recursive        bool
	RelateToOriginal bool
}

// SortRequest applies a full ordering for one parent's children.
type SortRequest struct {
	User       *User
	ParentID   int
	OrderedIDs []int
}

// TrashRequest moves a node to the recycle bin.
type TrashRequest struct {
	User   *User
	NodeID int
}

// RestoreRequest moves a node out of the recycle bin. TargetParentID zero
// restores to the parent recorded when the node was trashed.
type RestoreRequest struct {
	User           *User
	NodeID         int
	TargetParentID int
}

// DeleteRequest hard-deletes a trashed node and its subtree.
type DeleteRequest struct {
	User   *User
	NodeID int
}
