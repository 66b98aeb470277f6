package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// Repository implements contentflow.ContentRepository using in-memory
// storage. It assigns node ids, maintains materialized paths, and enforces
// optimistic concurrency through the node Version stamp.
type Repository struct {
	mu        sync.RWMutex
	nodes     map[int]*contentflow.ContentNode
	byKey     map[uuid.UUID]int
	relations []*contentflow.Relation
	nextID    int
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		nodes:  make(map[int]*contentflow.ContentNode),
		byKey:  make(map[uuid.UUID]int),
		nextID: 1000,
	}
}

func (r *Repository) GetNode(ctx context.Context, id int) (*contentflow.ContentNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[id]
	if !exists {
		return nil, contentflow.ErrNodeNotFound
	}
	return node.Clone(), nil
}

func (r *Repository) GetNodeByKey(ctx context.Context, key uuid.UUID) (*contentflow.ContentNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byKey[key]
	if !exists {
		return nil, contentflow.ErrNodeNotFound
	}
	return r.nodes[id].Clone(), nil
}

func (r *Repository) GetChildren(ctx context.Context, q contentflow.ChildrenQuery) ([]*contentflow.ContentNode, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var children []*contentflow.ContentNode
	for _, node := range r.nodes {
		if node.ParentID != q.ParentID {
			continue
		}
		if node.Trashed && !q.IncludeTrashed && q.ParentID != contentflow.RecycleBinID {
			continue
		}
		if q.Filter != "" && !strings.Contains(strings.ToLower(node.Name), strings.ToLower(q.Filter)) {
			continue
		}
		children = append(children, node.Clone())
	}

	sortChildren(children, q)
	total := len(children)

	if q.Offset > 0 {
		if q.Offset >= len(children) {
			return nil, total, nil
		}
		children = children[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(children) {
		children = children[:q.Limit]
	}
	return children, total, nil
}

func sortChildren(children []*contentflow.ContentNode, q contentflow.ChildrenQuery) {
	less := func(a, b *contentflow.ContentNode) bool {
		switch q.OrderBy {
		case "name":
			return a.Name < b.Name
		case "createdAt":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.SortOrder < b.SortOrder
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if q.Desc {
			return less(children[j], children[i])
		}
		return less(children[i], children[j])
	})
}

func (r *Repository) SaveNode(ctx context.Context, node *contentflow.ContentNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if node.ID == 0 {
		node.ID = r.nextID
		r.nextID++
		if node.Key == uuid.Nil {
			node.Key = uuid.New()
		}
		if node.ParentID == 0 {
			node.ParentID = contentflow.RootID
		}
		parentPath, err := r.parentPath(node.ParentID)
		if err != nil {
			return err
		}
		node.Path = contentflow.JoinPath(parentPath, node.ID)
		node.Trashed = contentflow.PathContains(node.Path, contentflow.RecycleBinID)
		node.Version = 1
		node.CreatedAt = now
		node.UpdatedAt = now
		node.SortOrder = r.nextSortOrder(node.ParentID)

		r.nodes[node.ID] = node.Clone()
		r.byKey[node.Key] = node.ID
		return nil
	}

	stored, exists := r.nodes[node.ID]
	if !exists {
		return contentflow.ErrNodeNotFound
	}
	if stored.Version != node.Version {
		return contentflow.ErrConflict
	}

	node.Version++
	node.UpdatedAt = now
	// Parent, path and trashed state are owned by MoveNode.
	node.ParentID = stored.ParentID
	node.Path = stored.Path
	node.Trashed = stored.Trashed
	node.SortOrder = stored.SortOrder

	r.nodes[node.ID] = node.Clone()
	return nil
}

func (r *Repository) parentPath(parentID int) (string, error) {
	switch parentID {
	case contentflow.RootID, contentflow.RecycleBinID:
		return contentflow.JoinPath("", parentID), nil
	}
	parent, exists := r.nodes[parentID]
	if !exists {
		return "", contentflow.ErrParentNotFound
	}
	return parent.Path, nil
}

func (r *Repository) nextSortOrder(parentID int) int {
	max := -1
	for _, n := range r.nodes {
		if n.ParentID == parentID && n.SortOrder > max {
			max = n.SortOrder
		}
	}
	return max + 1
}

func (r *Repository) DeleteNode(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[id]
	if !exists {
		return contentflow.ErrNodeNotFound
	}
	for _, n := range r.subtreeLocked(node) {
		delete(r.byKey, n.Key)
		delete(r.nodes, n.ID)
	}
	return nil
}

func (r *Repository) MoveNode(ctx context.Context, id, newParentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, exists := r.nodes[id]
	if !exists {
		return contentflow.ErrNodeNotFound
	}
	parentPath, err := r.parentPath(newParentID)
	if err != nil {
		return err
	}

	oldPrefix := node.Path
	newPrefix := contentflow.JoinPath(parentPath, node.ID)
	node.ParentID = newParentID
	node.SortOrder = r.nextSortOrder(newParentID)

	for _, n := range r.subtreeLocked(node) {
		n.Path = newPrefix + strings.TrimPrefix(n.Path, oldPrefix)
		n.Trashed = contentflow.PathContains(n.Path, contentflow.RecycleBinID)
		n.UpdatedAt = time.Now().UTC()
		n.Version++
	}
	return nil
}

// subtreeLocked returns the stored node and all stored descendants. Callers
// must hold mu.
func (r *Repository) subtreeLocked(node *contentflow.ContentNode) []*contentflow.ContentNode {
	subtree := []*contentflow.ContentNode{node}
	for _, n := range r.nodes {
		if n.ID != node.ID && contentflow.PathContains(n.Path, node.ID) {
			subtree = append(subtree, n)
		}
	}
	return subtree
}

func (r *Repository) UpdateSortOrders(ctx context.Context, parentID int, orderedIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the whole batch before touching anything.
	for _, id := range orderedIDs {
		node, exists := r.nodes[id]
		if !exists {
			return contentflow.ErrNodeNotFound
		}
		if node.ParentID != parentID {
			return contentflow.ErrStructuralViolation
		}
	}
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		node := r.nodes[id]
		node.SortOrder = i
		node.UpdatedAt = now
		node.Version++
	}
	return nil
}

func (r *Repository) InsertRelation(ctx context.Context, rel *contentflow.Relation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rel
	r.relations = append(r.relations, &cp)
	return nil
}

// Relations returns the stored relations, newest last.
func (r *Repository) Relations() []*contentflow.Relation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*contentflow.Relation, len(r.relations))
	for i, rel := range r.relations {
		cp := *rel
		out[i] = &cp
	}
	return out
}
