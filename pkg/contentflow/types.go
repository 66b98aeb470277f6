package contentflow

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reserved node ids. The root and the recycle bin are virtual scopes, not
// persisted nodes; every materialized path starts at RootID.
const (
	RootID       = -1
	RecycleBinID = -20
)

// NodeState is the domain type for content lifecycle states.
type NodeState string

// Node state constants (typed).
const (
	StateDraft              NodeState = "draft"
	StatePublished          NodeState = "published"
	StatePartiallyPublished NodeState = "partiallyPublished"
	StateTrashed            NodeState = "trashed"
	StateDeleted            NodeState = "deleted"
)

// ContentAction identifies a requested workflow operation on a content node.
type ContentAction string

// Content action constants (typed). The *New variants target a node that has
// not been persisted yet.
const (
	ActionSave           ContentAction = "save"
	ActionSaveNew        ContentAction = "saveNew"
	ActionPublish        ContentAction = "publish"
	ActionPublishNew     ContentAction = "publishNew"
	ActionSendPublish    ContentAction = "sendPublish"
	ActionSendPublishNew ContentAction = "sendPublishNew"
	ActionUnpublish      ContentAction = "unpublish"
)

// IsNew reports whether the action targets a not-yet-persisted node.
func (a ContentAction) IsNew() bool {
	switch a {
	case ActionSaveNew, ActionPublishNew, ActionSendPublishNew:
		return true
	}
	return false
}

// IsPublish reports whether the action attempts to change publish state.
func (a ContentAction) IsPublish() bool {
	switch a {
	case ActionPublish, ActionPublishNew:
		return true
	}
	return false
}

// ToSave returns the save action corresponding to a. Publish and
// send-to-publish actions downgrade to their save counterpart; save and
// unpublish actions are returned unchanged.
func (a ContentAction) ToSave() ContentAction {
	switch a {
	case ActionPublish, ActionSendPublish:
		return ActionSave
	case ActionPublishNew, ActionSendPublishNew:
		return ActionSaveNew
	}
	return a
}

// PermissionCode is a single-character permission letter.
type PermissionCode string

// Permission code constants.
const (
	PermBrowse          PermissionCode = "F"
	PermCreate          PermissionCode = "C"
	PermUpdate          PermissionCode = "A"
	PermDelete          PermissionCode = "D"
	PermPublish         PermissionCode = "U"
	PermUnpublish       PermissionCode = "Z"
	PermMove            PermissionCode = "M"
	PermCopy            PermissionCode = "O"
	PermSort            PermissionCode = "S"
	PermSendForApproval PermissionCode = "H"
)

// PermissionSet is a set of permission codes.
type PermissionSet map[PermissionCode]bool

// NewPermissionSet builds a set from the given codes.
func NewPermissionSet(codes ...PermissionCode) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// Contains reports whether the set holds code.
func (s PermissionSet) Contains(code PermissionCode) bool {
	return s[code]
}

// ContainsAll reports whether the set holds every given code. An empty codes
// slice is trivially satisfied.
func (s PermissionSet) ContainsAll(codes ...PermissionCode) bool {
	for _, c := range codes {
		if !s[c] {
			return false
		}
	}
	return true
}

// Equal reports whether two sets hold exactly the same codes.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other[c] {
			return false
		}
	}
	return true
}

// ContentNode is a hierarchical, multi-language content item.
//
// Path is the materialized ancestor chain including the node itself,
// comma-joined ("-1,1031,1045"). It is kept consistent with ParentID by the
// repository; the core only reads it for containment checks.
type ContentNode struct {
	ID               int                        `json:"id"`
	Key              uuid.UUID                  `json:"key"`
	ParentID         int                        `json:"parent_id"`
	Path             string                     `json:"path"`
	Name             string                     `json:"name"`
	ContentType      string                     `json:"content_type"`
	SortOrder        int                        `json:"sort_order"`
	Trashed          bool                       `json:"trashed"`
	RestoreParentID  int                        `json:"restore_parent_id,omitempty"`
	AwaitingApproval bool                       `json:"awaiting_approval,omitempty"`
	Variants         map[string]*CultureVariant `json:"variants"`
	Version          int                        `json:"version"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// CultureVariant is the per-language rendition of a node's localized fields.
// The empty culture code denotes the invariant variant of a non-varying type.
type CultureVariant struct {
	Culture    string            `json:"culture"`
	Name       string            `json:"name"`
	Publish    bool              `json:"publish"`   // requested
	Published  bool              `json:"published"` // persisted
	Edited     bool              `json:"edited"`
	Properties map[string]string `json:"properties,omitempty"`
	ReleaseAt  *time.Time        `json:"release_at,omitempty"`
	ExpireAt   *time.Time        `json:"expire_at,omitempty"`
}

// Clone returns a deep copy of the variant.
func (v *CultureVariant) Clone() *CultureVariant {
	cp := *v
	if v.Properties != nil {
		cp.Properties = make(map[string]string, len(v.Properties))
		for k, val := range v.Properties {
			cp.Properties[k] = val
		}
	}
	return &cp
}

// Variant returns the variant for culture, or nil.
func (n *ContentNode) Variant(culture string) *CultureVariant {
	return n.Variants[culture]
}

// IsCulturePublished reports whether the given culture has persisted publish
// state.
func (n *ContentNode) IsCulturePublished(culture string) bool {
	v := n.Variants[culture]
	return v != nil && v.Published
}

// PublishedCultures returns the culture codes with persisted publish state.
func (n *ContentNode) PublishedCultures() []string {
	var cultures []string
	for code, v := range n.Variants {
		if v.Published {
			cultures = append(cultures, code)
		}
	}
	return cultures
}

// State derives the node's lifecycle state from its trashed flag and variant
// publish state.
func (n *ContentNode) State() NodeState {
	if n.Trashed {
		return StateTrashed
	}
	published, unpublished := 0, 0
	for _, v := range n.Variants {
		if v.Published {
			published++
		} else {
			unpublished++
		}
	}
	switch {
	case published == 0:
		return StateDraft
	case unpublished == 0:
		return StatePublished
	default:
		return StatePartiallyPublished
	}
}

// Clone returns a deep copy of the node.
func (n *ContentNode) Clone() *ContentNode {
	cp := *n
	cp.Variants = make(map[string]*CultureVariant, len(n.Variants))
	for code, v := range n.Variants {
		cp.Variants[code] = v.Clone()
	}
	return &cp
}

// Language is one entry of the language catalog.
type Language struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

// ContentType describes the schema of a content node.
type ContentType struct {
	Alias             string         `json:"alias"`
	Name              string         `json:"name"`
	VariesByCulture   bool           `json:"varies_by_culture"`
	AllowedAtRoot     bool           `json:"allowed_at_root"`
	AllowedChildTypes []string       `json:"allowed_child_types"`
	Properties        []PropertyType `json:"properties"`
}

// PropertyType describes one property of a content type.
type PropertyType struct {
	Alias     string `json:"alias"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

// AllowsChild reports whether alias is an allowed child type.
func (t *ContentType) AllowsChild(alias string) bool {
	for _, a := range t.AllowedChildTypes {
		if a == alias {
			return true
		}
	}
	return false
}

// User is the acting user threaded through every operation. An empty
// StartNodeIDs slice grants access from the root.
type User struct {
	ID           int      `json:"id"`
	Username     string   `json:"username"`
	Groups       []string `json:"groups,omitempty"`
	StartNodeIDs []int    `json:"start_node_ids,omitempty"`
}

// HasRootAccess reports whether the user's content scope starts at the root.
func (u *User) HasRootAccess() bool {
	if len(u.StartNodeIDs) == 0 {
		return true
	}
	for _, id := range u.StartNodeIDs {
		if id == RootID {
			return true
		}
	}
	return false
}

// HasBinAccess reports whether the user may operate inside the recycle bin.
// Bin access requires root scope: trashed nodes keep no usable start-node
// ancestry.
func (u *User) HasBinAccess() bool {
	return u.HasRootAccess()
}

// HasPathAccess reports whether path lies inside the user's content scope.
func (u *User) HasPathAccess(path string) bool {
	if u.HasRootAccess() {
		return true
	}
	for _, id := range u.StartNodeIDs {
		if PathContains(path, id) {
			return true
		}
	}
	return false
}

// PathContains reports whether id occurs as a segment of the comma-joined
// path.
func PathContains(path string, id int) bool {
	want := strconv.Itoa(id)
	for _, seg := range strings.Split(path, ",") {
		if seg == want {
			return true
		}
	}
	return false
}

// JoinPath appends id to a parent path.
func JoinPath(parentPath string, id int) string {
	if parentPath == "" {
		return strconv.Itoa(id)
	}
	return parentPath + "," + strconv.Itoa(id)
}

// PathIDs parses a comma-joined path into its id segments. Malformed segments
// are skipped.
func PathIDs(path string) []int {
	segs := strings.Split(path, ",")
	ids := make([]int, 0, len(segs))
	for _, seg := range segs {
		id, err := strconv.Atoi(strings.TrimSpace(seg))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
