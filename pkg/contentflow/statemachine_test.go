package contentflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGate walks the closed (state, action) table.
func TestGate(t *testing.T) {
	tests := []struct {
		name    string
		state   NodeState
		action  ContentAction
		blocked PublishResultType
	}{
		{name: "draft save", state: StateDraft, action: ActionSave, blocked: ""},
		{name: "draft publish", state: StateDraft, action: ActionPublish, blocked: ""},
		{name: "draft unpublish", state: StateDraft, action: ActionUnpublish, blocked: ResultFailedCannotPublish},
		{name: "published publish", state: StatePublished, action: ActionPublish, blocked: ""},
		{name: "published unpublish", state: StatePublished, action: ActionUnpublish, blocked: ""},
		{name: "partial publish", state: StatePartiallyPublished, action: ActionPublish, blocked: ""},
		{name: "partial unpublish", state: StatePartiallyPublished, action: ActionUnpublish, blocked: ""},
		{name: "trashed save allowed", state: StateTrashed, action: ActionSave, blocked: ""},
		{name: "trashed publish blocked", state: StateTrashed, action: ActionPublish, blocked: ResultFailedIsTrashed},
		{name: "trashed publishNew blocked", state: StateTrashed, action: ActionPublishNew, blocked: ResultFailedIsTrashed},
		{name: "trashed sendPublish blocked", state: StateTrashed, action: ActionSendPublish, blocked: ResultFailedIsTrashed},
		{name: "trashed unpublish allowed", state: StateTrashed, action: ActionUnpublish, blocked: ""},
		{name: "deleted is terminal", state: StateDeleted, action: ActionSave, blocked: ResultFailedCannotPublish},
		{name: "deleted publish", state: StateDeleted, action: ActionPublish, blocked: ResultFailedCannotPublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, gate(tt.state, tt.action))
		})
	}
}

func TestNextState(t *testing.T) {
	tests := []struct {
		name      string
		state     NodeState
		action    ContentAction
		published int
		total     int
		want      NodeState
	}{
		{name: "publish all cultures", state: StateDraft, action: ActionPublish, published: 2, total: 2, want: StatePublished},
		{name: "publish some cultures", state: StateDraft, action: ActionPublish, published: 1, total: 2, want: StatePartiallyPublished},
		{name: "unpublish last culture returns to draft", state: StatePublished, action: ActionUnpublish, published: 0, total: 2, want: StateDraft},
		{name: "unpublish one of two", state: StatePublished, action: ActionUnpublish, published: 1, total: 2, want: StatePartiallyPublished},
		{name: "save keeps draft", state: StateDraft, action: ActionSave, published: 0, total: 1, want: StateDraft},
		{name: "trashed stays trashed", state: StateTrashed, action: ActionSave, published: 1, total: 1, want: StateTrashed},
		{name: "deleted is terminal", state: StateDeleted, action: ActionSave, published: 0, total: 1, want: StateDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextState(tt.state, tt.action, tt.published, tt.total))
		})
	}
}

// TestNextStateFromCounts drives nextState from a node's tallied variants,
// the way ApplyAction computes the resulting state.
func TestNextStateFromCounts(t *testing.T) {
	node := &ContentNode{Variants: map[string]*CultureVariant{
		"en-US": {Culture: "en-US", Published: true},
		"da-DK": {Culture: "da-DK"},
	}}

	published, total := publishCounts(node)
	assert.Equal(t, 1, published)
	assert.Equal(t, 2, total)
	assert.Equal(t, StatePartiallyPublished, nextState(StateDraft, ActionPublish, published, total))

	node.Variants["da-DK"].Published = true
	published, total = publishCounts(node)
	assert.Equal(t, StatePublished, nextState(StatePartiallyPublished, ActionPublish, published, total))
}

func TestActionHelpers(t *testing.T) {
	assert.Equal(t, ActionSave, ActionPublish.ToSave())
	assert.Equal(t, ActionSaveNew, ActionPublishNew.ToSave())
	assert.Equal(t, ActionSave, ActionSendPublish.ToSave())
	assert.Equal(t, ActionSaveNew, ActionSendPublishNew.ToSave())
	assert.Equal(t, ActionUnpublish, ActionUnpublish.ToSave())

	assert.True(t, ActionPublishNew.IsNew())
	assert.True(t, ActionSendPublishNew.IsNew())
	assert.False(t, ActionPublish.IsNew())

	assert.True(t, ActionPublish.IsPublish())
	assert.False(t, ActionSendPublish.IsPublish())
	assert.False(t, ActionUnpublish.IsPublish())
}

func TestNodeState(t *testing.T) {
	node := &ContentNode{Variants: map[string]*CultureVariant{
		"en-US": {Culture: "en-US"},
		"da-DK": {Culture: "da-DK"},
	}}
	assert.Equal(t, StateDraft, node.State())

	node.Variants["en-US"].Published = true
	assert.Equal(t, StatePartiallyPublished, node.State())

	node.Variants["da-DK"].Published = true
	assert.Equal(t, StatePublished, node.State())

	node.Trashed = true
	assert.Equal(t, StateTrashed, node.State())
}
