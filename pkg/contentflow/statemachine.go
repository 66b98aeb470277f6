package contentflow

// The publication state machine is a closed set of (state, action) →
// (state, outcome) transitions. gate decides whether an action may run at
// all in the node's current state; nextState computes the state that results
// from a successful transition. The service orchestrates both around the
// culture validation and persistence collaborators.

// gate returns the failure outcome blocking action in state, or "" when the
// action may proceed. Save and send-to-publish actions are permitted in
// every live state: edits must persist even when publishing cannot.
func gate(state NodeState, action ContentAction) PublishResultType {
	if state == StateDeleted {
		return ResultFailedCannotPublish
	}
	if state == StateTrashed {
		switch action {
		case ActionPublish, ActionPublishNew, ActionSendPublish, ActionSendPublishNew:
			return ResultFailedIsTrashed
		}
	}
	if action == ActionUnpublish && state == StateDraft {
		return ResultFailedCannotPublish
	}
	return ""
}

// nextState computes the state resulting from a successful action.
// published/total describe the node's variant publish counts after the
// action's changes are applied.
func nextState(state NodeState, action ContentAction, published, total int) NodeState {
	if state == StateDeleted || state == StateTrashed {
		return state
	}
	switch {
	case published == 0:
		return StateDraft
	case published == total:
		return StatePublished
	default:
		return StatePartiallyPublished
	}
}

// publishCounts tallies the node's variants.
func publishCounts(node *ContentNode) (published, total int) {
	for _, v := range node.Variants {
		total++
		if v.Published {
			published++
		}
	}
	return published, total
}
