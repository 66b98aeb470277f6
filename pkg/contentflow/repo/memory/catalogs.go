package memory

import (
	"context"
	"sync"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// LanguageCatalog is an in-memory contentflow.LanguageCatalog.
type LanguageCatalog struct {
	mu        sync.RWMutex
	languages []contentflow.Language
}

// NewLanguageCatalog creates a catalog preloaded with the given languages.
func NewLanguageCatalog(languages ...contentflow.Language) *LanguageCatalog {
	return &LanguageCatalog{languages: languages}
}

func (c *LanguageCatalog) Languages(ctx context.Context) ([]contentflow.Language, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]contentflow.Language, len(c.languages))
	copy(out, c.languages)
	return out, nil
}

// Add appends a language to the catalog.
func (c *LanguageCatalog) Add(lang contentflow.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.languages = append(c.languages, lang)
}

// TypeCatalog is an in-memory contentflow.TypeCatalog.
type TypeCatalog struct {
	mu    sync.RWMutex
	types map[string]*contentflow.ContentType
}

// NewTypeCatalog creates a catalog preloaded with the given content types.
func NewTypeCatalog(types ...*contentflow.ContentType) *TypeCatalog {
	c := &TypeCatalog{types: make(map[string]*contentflow.ContentType)}
	for _, t := range types {
		c.types[t.Alias] = t
	}
	return c
}

func (c *TypeCatalog) ContentTypeByAlias(ctx context.Context, alias string) (*contentflow.ContentType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	typ, exists := c.types[alias]
	if !exists {
		return nil, contentflow.ErrContentTypeNotFound
	}
	cp := *typ
	return &cp, nil
}

// Register adds or replaces a content type.
func (c *TypeCatalog) Register(typ *contentflow.ContentType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[typ.Alias] = typ
}

// PermissionStore is an in-memory contentflow.PermissionRepository holding
// per-user path defaults and explicit per-node assignments.
type PermissionStore struct {
	mu       sync.RWMutex
	defaults map[int]contentflow.PermissionSet
	assigned map[int]map[int]contentflow.PermissionSet
}

// NewPermissionStore creates an empty permission store.
func NewPermissionStore() *PermissionStore {
	return &PermissionStore{
		defaults: make(map[int]contentflow.PermissionSet),
		assigned: make(map[int]map[int]contentflow.PermissionSet),
	}
}

// SetDefaults sets the user's inherited default codes.
func (p *PermissionStore) SetDefaults(userID int, codes ...contentflow.PermissionCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaults[userID] = contentflow.NewPermissionSet(codes...)
}

// Assign records an explicit per-node assignment. An assignment equal to
// the user's defaults is a no-op override and is not persisted.
func (p *PermissionStore) Assign(userID, nodeID int, codes ...contentflow.PermissionCode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := contentflow.NewPermissionSet(codes...)
	if set.Equal(p.defaults[userID]) {
		if nodes, ok := p.assigned[userID]; ok {
			delete(nodes, nodeID)
		}
		return
	}
	if p.assigned[userID] == nil {
		p.assigned[userID] = make(map[int]contentflow.PermissionSet)
	}
	p.assigned[userID][nodeID] = set
}

func (p *PermissionStore) AssignedPermissions(ctx context.Context, userID, nodeID int) (contentflow.PermissionSet, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set, ok := p.assigned[userID][nodeID]
	return set, ok, nil
}

func (p *PermissionStore) PermissionsForPath(ctx context.Context, userID int, path string) (contentflow.PermissionSet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.defaults[userID], nil
}
