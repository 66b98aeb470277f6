package contentflow

import "context"

// Service defines the main interface for the contentflow library.
type Service interface {
	// Node lookups
	GetNode(ctx context.Context, id int) (*ContentNode, error)
	GetChildren(ctx context.Context, user *User, q ChildrenQuery) ([]*ContentNode, int, error)

	// Evaluate authorizes user against nodeID for the required codes,
	// returning the fetched node for reuse. See PermissionEvaluator.
	Evaluate(ctx context.Context, user *User, nodeID int, required ...PermissionCode) (*ContentNode, error)

	// ValidateForPublish runs culture validation for the requested variants
	// against the current language snapshot without persisting anything.
	ValidateForPublish(ctx context.Context, node *ContentNode, requested []*CultureVariant) (CultureResult, error)

	// ApplyAction runs the publication state machine for one action request.
	ApplyAction(ctx context.Context, req ApplyActionRequest) (*PublishResult, error)

	// Hierarchy operations
	ValidateMove(ctx context.Context, req MoveRequest) error
	Move(ctx context.Context, req MoveRequest) (*OperationResult, error)
	Copy(ctx context.Context, req CopyRequest) (*OperationResult, error)
	Sort(ctx context.Context, req SortRequest) (*OperationResult, error)

	// Recycle-bin lifecycle
	MoveToRecycleBin(ctx context.Context, req TrashRequest) (*OperationResult, error)
	RestoreFromRecycleBin(ctx context.Context, req RestoreRequest) (*OperationResult, error)
	Delete(ctx context.Context, req DeleteRequest) (*OperationResult, error)
}
