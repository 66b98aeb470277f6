package contentflow

import "context"

// Hook system allows vetoing state changes without modifying core code.
// Every Before* chain runs synchronously before the corresponding
// state-changing repository call; a hook returning a non-nil error cancels
// the whole operation, which the service reports as a
// FailedCancelledByEvent outcome ("nothing happened"), not as a fault.

// Hooks defines all available cancellation hooks
type Hooks struct {
	BeforeSave        []BeforeNodeHook
	BeforePublish     []BeforePublishHook
	BeforeUnpublish   []BeforePublishHook
	BeforeSendPublish []BeforeNodeHook
	BeforeMove        []BeforeMoveHook
	BeforeCopy        []BeforeNodeHook
	BeforeSort        []BeforeSortHook
	BeforeTrash       []BeforeNodeHook
	BeforeRestore     []BeforeNodeHook
	BeforeDelete      []BeforeNodeHook
}

// HookContext carries information through a hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // custom metadata passed between hooks
	StopChain bool                   // set to true to skip remaining hooks without cancelling
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeNodeHook is called before a node-scoped state change
type BeforeNodeHook func(hctx *HookContext, node *ContentNode) error

// BeforePublishHook is called before publish state changes for the given cultures
type BeforePublishHook func(hctx *HookContext, node *ContentNode, cultures []string) error

// BeforeMoveHook is called before a node is reparented
type BeforeMoveHook func(hctx *HookContext, node *ContentNode, newParentID int) error

// BeforeSortHook is called before a children reorder is applied
type BeforeSortHook func(hctx *HookContext, parentID int, orderedIDs []int) error

func runNodeHooks(ctx context.Context, hooks []BeforeNodeHook, node *ContentNode) error {
	if len(hooks) == 0 {
		return nil
	}
	hctx := NewHookContext(ctx)
	for _, hook := range hooks {
		if err := hook(hctx, node); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func runPublishHooks(ctx context.Context, hooks []BeforePublishHook, node *ContentNode, cultures []string) error {
	if len(hooks) == 0 {
		return nil
	}
	hctx := NewHookContext(ctx)
	for _, hook := range hooks {
		if err := hook(hctx, node, cultures); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func runMoveHooks(ctx context.Context, hooks []BeforeMoveHook, node *ContentNode, newParentID int) error {
	if len(hooks) == 0 {
		return nil
	}
	hctx := NewHookContext(ctx)
	for _, hook := range hooks {
		if err := hook(hctx, node, newParentID); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func runSortHooks(ctx context.Context, hooks []BeforeSortHook, parentID int, orderedIDs []int) error {
	if len(hooks) == 0 {
		return nil
	}
	hctx := NewHookContext(ctx)
	for _, hook := range hooks {
		if err := hook(hctx, parentID, orderedIDs); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}
