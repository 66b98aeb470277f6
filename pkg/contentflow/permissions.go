package contentflow

import "context"

// PermissionEvaluator resolves the effective permission set for a user at a
// node and gates requests against required codes.
type PermissionEvaluator struct {
	nodes ContentRepository
	perms PermissionRepository
}

// NewPermissionEvaluator creates a permission evaluator over the given
// collaborators.
func NewPermissionEvaluator(nodes ContentRepository, perms PermissionRepository) *PermissionEvaluator {
	return &PermissionEvaluator{nodes: nodes, perms: perms}
}

// Evaluate authorizes user against nodeID for every required code.
//
// The root and recycle-bin sentinels use dedicated scope checks instead of a
// path lookup. For ordinary nodes the node is fetched to resolve its path;
// it is returned on success so the caller can avoid a second fetch in the
// same request. All required codes must be present; no required codes means
// path access alone suffices.
//
// An unknown node yields ErrNodeNotFound and an authorized-but-denied user
// yields ErrForbidden. The evaluator deliberately reveals nothing beyond
// that distinction.
func (e *PermissionEvaluator) Evaluate(ctx context.Context, user *User, nodeID int, required ...PermissionCode) (*ContentNode, error) {
	switch nodeID {
	case RootID:
		if !user.HasRootAccess() {
			return nil, ErrForbidden
		}
		return nil, nil
	case RecycleBinID:
		if !user.HasBinAccess() {
			return nil, ErrForbidden
		}
		return nil, nil
	}

	node, err := e.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if err := e.EvaluateNode(ctx, user, node, required...); err != nil {
		return nil, err
	}
	return node, nil
}

// EvaluateNode authorizes user against an already-fetched node.
func (e *PermissionEvaluator) EvaluateNode(ctx context.Context, user *User, node *ContentNode, required ...PermissionCode) error {
	if !user.HasPathAccess(node.Path) {
		return ErrForbidden
	}

	granted, err := e.resolve(ctx, user, node)
	if err != nil {
		return err
	}
	if !granted.ContainsAll(required...) {
		return ErrForbidden
	}
	return nil
}

// resolve returns the effective permission set: an explicit per-node
// assignment overrides the inherited path defaults entirely; otherwise the
// defaults apply. A no-op assignment (equal to the defaults) is never
// persisted, so presence always means "differs".
func (e *PermissionEvaluator) resolve(ctx context.Context, user *User, node *ContentNode) (PermissionSet, error) {
	assigned, ok, err := e.perms.AssignedPermissions(ctx, user.ID, node.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return assigned, nil
	}
	return e.perms.PermissionsForPath(ctx, user.ID, node.Path)
}
