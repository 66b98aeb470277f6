package contentflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Hierarchy mutations. Every invariant is checked before any mutation; a
// vetoed operation is reported as a cancelled outcome with nothing applied.

// validateMove checks the hierarchy invariants for placing node under
// newParent. A nil newParent means the root.
func validateMove(node *ContentNode, typ *ContentType, newParent *ContentNode, parentType *ContentType) error {
	if newParent == nil {
		if !typ.AllowedAtRoot {
			return fmt.Errorf("%w: type %q is not allowed at the root", ErrStructuralViolation, typ.Alias)
		}
		return nil
	}
	if newParent.ID == node.ID || PathContains(newParent.Path, node.ID) {
		return fmt.Errorf("%w: node %d cannot become its own descendant", ErrStructuralViolation, node.ID)
	}
	if !parentType.AllowsChild(node.ContentType) {
		return fmt.Errorf("%w: type %q does not allow child type %q", ErrStructuralViolation, parentType.Alias, node.ContentType)
	}
	return nil
}

func (s *service) ValidateMove(ctx context.Context, req MoveRequest) error {
	node, err := s.repo.GetNode(ctx, req.NodeID)
	if err != nil {
		return err
	}
	_, err = s.validateMoveTarget(ctx, node, req.NewParentID)
	return err
}

// validateMoveTarget resolves the target parent (nil for root or bin) and
// runs the move invariants against it.
func (s *service) validateMoveTarget(ctx context.Context, node *ContentNode, newParentID int) (*ContentNode, error) {
	typ, err := s.contentType(ctx, node)
	if err != nil {
		return nil, err
	}

	switch newParentID {
	case RecycleBinID:
		// Trashing is always structurally legal.
		return nil, nil
	case RootID:
		return nil, validateMove(node, typ, nil, nil)
	}

	parent, err := s.repo.GetNode(ctx, newParentID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrParentNotFound, newParentID)
		}
		return nil, err
	}
	parentType, err := s.contentType(ctx, parent)
	if err != nil {
		return nil, err
	}
	return parent, validateMove(node, typ, parent, parentType)
}

func (s *service) Move(ctx context.Context, req MoveRequest) (*OperationResult, error) {
	node, err := s.Evaluate(ctx, req.User, req.NodeID, PermMove)
	if err != nil {
		return nil, err
	}
	if _, err := s.Evaluate(ctx, req.User, req.NewParentID, PermCreate); err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrParentNotFound, req.NewParentID)
		}
		return nil, err
	}
	if _, err := s.validateMoveTarget(ctx, node, req.NewParentID); err != nil {
		return nil, err
	}

	if err := runMoveHooks(ctx, s.hooks.BeforeMove, node, req.NewParentID); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	oldParentID := node.ParentID
	if err := s.repo.MoveNode(ctx, node.ID, req.NewParentID); err != nil {
		if errors.Is(err, ErrConflict) {
			return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "move", Err: err}
	}

	moved, err := s.repo.GetNode(ctx, node.ID)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "move", Err: err}
	}
	s.notify(ctx, "move", node.ID, func(sink EventSink) error {
		return sink.NodeMoved(ctx, moved, oldParentID)
	})
	return &OperationResult{Result: ResultSuccess, Node: moved}, nil
}

// Copy duplicates a node under the target parent. The copy starts
// unpublished in every culture and the source is never mutated.
func (s *service) Copy(ctx context.Context, req CopyRequest) (*OperationResult, error) {
	node, err := s.Evaluate(ctx, req.User, req.NodeID, PermCopy)
	if err != nil {
		return nil, err
	}
	parent, err := s.Evaluate(ctx, req.User, req.TargetParentID, PermCreate)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrParentNotFound, req.TargetParentID)
		}
		return nil, err
	}

	typ, err := s.contentType(ctx, node)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		if !typ.AllowedAtRoot {
			return nil, fmt.Errorf("%w: type %q is not allowed at the root", ErrStructuralViolation, typ.Alias)
		}
	} else {
		parentType, err := s.contentType(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !parentType.AllowsChild(node.ContentType) {
			return nil, fmt.Errorf("%w: type %q does not allow child type %q", ErrStructuralViolation, parentType.Alias, node.ContentType)
		}
	}

	if err := runNodeHooks(ctx, s.hooks.BeforeCopy, node); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}

	cp, err := s.copySubtree(ctx, node, req.TargetParentID, req.Recursive)
	if err != nil {
		return nil, err
	}
	if req.RelateToOriginal {
		rel := &Relation{
			ID:        uuid.New(),
			ParentID:  node.ID,
			ChildID:   cp.ID,
			RelType:   RelationCopied,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.InsertRelation(ctx, rel); err != nil {
			return nil, &NodeError{NodeID: cp.ID, Op: "copy", Err: err}
		}
	}
	s.notify(ctx, "copy", node.ID, func(sink EventSink) error {
		return sink.NodeCopied(ctx, node, cp)
	})
	return &OperationResult{Result: ResultSuccess, Node: cp}, nil
}

func (s *service) copySubtree(ctx context.Context, src *ContentNode, targetParentID int, recursive bool) (*ContentNode, error) {
	cp := src.Clone()
	cp.ID = 0
	cp.Key = uuid.New()
	cp.ParentID = targetParentID
	cp.Path = ""
	cp.Trashed = false
	cp.RestoreParentID = 0
	cp.AwaitingApproval = false
	cp.Version = 0
	for _, v := range cp.Variants {
		v.Publish = false
		v.Published = false
		v.Edited = true
	}
	if err := s.repo.SaveNode(ctx, cp); err != nil {
		return nil, &NodeError{NodeID: src.ID, Op: "copy", Err: err}
	}

	if recursive {
		children, _, err := s.repo.GetChildren(ctx, ChildrenQuery{ParentID: src.ID})
		if err != nil {
			return nil, &NodeError{NodeID: src.ID, Op: "copy", Err: err}
		}
		for _, child := range children {
			if _, err := s.copySubtree(ctx, child, cp.ID, true); err != nil {
				return nil, err
			}
		}
	}
	return cp, nil
}

// Sort applies a full ordering for one parent's children: it either fully
// applies or fully rejects, and a veto aborts the whole batch.
func (s *service) Sort(ctx context.Context, req SortRequest) (*OperationResult, error) {
	if _, err := s.Evaluate(ctx, req.User, req.ParentID, PermSort); err != nil {
		return nil, err
	}

	for _, id := range req.OrderedIDs {
		child, err := s.repo.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if child.ParentID != req.ParentID {
			return nil, fmt.Errorf("%w: node %d is not a child of %d", ErrStructuralViolation, id, req.ParentID)
		}
	}

	if err := runSortHooks(ctx, s.hooks.BeforeSort, req.ParentID, req.OrderedIDs); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent}, nil
	}
	if err := s.repo.UpdateSortOrders(ctx, req.ParentID, req.OrderedIDs); err != nil {
		if errors.Is(err, ErrConflict) {
			return &OperationResult{Result: ResultFailedCancelledByEvent}, nil
		}
		return nil, &NodeError{NodeID: req.ParentID, Op: "sort", Err: err}
	}
	s.notify(ctx, "sort", req.ParentID, func(sink EventSink) error {
		return sink.NodesSorted(ctx, req.ParentID, req.OrderedIDs)
	})
	return &OperationResult{Result: ResultSuccess}, nil
}

// MoveToRecycleBin soft-deletes a node. The original parent is recorded so
// the node can be restored in place.
func (s *service) MoveToRecycleBin(ctx context.Context, req TrashRequest) (*OperationResult, error) {
	node, err := s.Evaluate(ctx, req.User, req.NodeID, PermDelete)
	if err != nil {
		return nil, err
	}
	if node.Trashed {
		return &OperationResult{Result: ResultSuccessAlready, Node: node}, nil
	}

	if err := runNodeHooks(ctx, s.hooks.BeforeTrash, node); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	node.RestoreParentID = node.ParentID
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "trash", Err: err}
	}
	if err := s.repo.MoveNode(ctx, node.ID, RecycleBinID); err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "trash", Err: err}
	}

	trashed, err := s.repo.GetNode(ctx, node.ID)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "trash", Err: err}
	}
	s.notify(ctx, "trash", node.ID, func(sink EventSink) error {
		return sink.NodeTrashed(ctx, trashed)
	})
	return &OperationResult{Result: ResultSuccess, Node: trashed}, nil
}

// RestoreFromRecycleBin moves a trashed node back under a live parent,
// revalidating the hierarchy invariants at the restore target.
func (s *service) RestoreFromRecycleBin(ctx context.Context, req RestoreRequest) (*OperationResult, error) {
	node, err := s.Evaluate(ctx, req.User, req.NodeID, PermMove)
	if err != nil {
		return nil, err
	}
	if !node.Trashed {
		return nil, fmt.Errorf("%w: node %d is not in the recycle bin", ErrStructuralViolation, node.ID)
	}

	targetID := req.TargetParentID
	if targetID == 0 {
		targetID = node.RestoreParentID
	}
	if targetID == 0 {
		targetID = RootID
	}
	parent, err := s.validateMoveTarget(ctx, node, targetID)
	if err != nil {
		return nil, err
	}
	if parent != nil && parent.Trashed {
		return nil, fmt.Errorf("%w: restore target %d is in the recycle bin", ErrStructuralViolation, targetID)
	}

	if err := runNodeHooks(ctx, s.hooks.BeforeRestore, node); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	if err := s.repo.MoveNode(ctx, node.ID, targetID); err != nil {
		if errors.Is(err, ErrConflict) {
			return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "restore", Err: err}
	}

	restored, err := s.repo.GetNode(ctx, node.ID)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "restore", Err: err}
	}
	restored.RestoreParentID = 0
	if err := s.repo.SaveNode(ctx, restored); err != nil && !errors.Is(err, ErrConflict) {
		return nil, &NodeError{NodeID: node.ID, Op: "restore", Err: err}
	}
	s.notify(ctx, "restore", node.ID, func(sink EventSink) error {
		return sink.NodeRestored(ctx, restored)
	})
	return &OperationResult{Result: ResultSuccess, Node: restored}, nil
}

// Delete hard-removes a node and its subtree. Deleted is terminal and only
// reachable from the recycle bin.
func (s *service) Delete(ctx context.Context, req DeleteRequest) (*OperationResult, error) {
	node, err := s.Evaluate(ctx, req.User, req.NodeID, PermDelete)
	if err != nil {
		return nil, err
	}
	if !node.Trashed {
		return nil, fmt.Errorf("%w: only trashed content can be deleted", ErrStructuralViolation)
	}

	if err := runNodeHooks(ctx, s.hooks.BeforeDelete, node); err != nil {
		return &OperationResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	if err := s.repo.DeleteNode(ctx, node.ID); err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "delete", Err: err}
	}
	s.notify(ctx, "delete", node.ID, func(sink EventSink) error {
		return sink.NodeDeleted(ctx, node.ID)
	})
	return &OperationResult{Result: ResultSuccess}, nil
}
