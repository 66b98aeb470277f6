package contentflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	repo   ContentRepository
	langs  LanguageCatalog
	types  TypeCatalog
	perms  PermissionRepository
	events EventSink
	hooks  *Hooks
	eval   *PermissionEvaluator
	log    *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the content repository for the service
func WithRepository(repo ContentRepository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithLanguageCatalog sets the language catalog for the service
func WithLanguageCatalog(langs LanguageCatalog) Option {
	return func(s *service) {
		s.langs = langs
	}
}

// WithTypeCatalog sets the content type catalog for the service
func WithTypeCatalog(types TypeCatalog) Option {
	return func(s *service) {
		s.types = types
	}
}

// WithPermissionRepository sets the permission repository for the service
func WithPermissionRepository(perms PermissionRepository) Option {
	return func(s *service) {
		s.perms = perms
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithHooks sets the cancellation hook chains for the service
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		s.log = log
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		hooks: &Hooks{},
	}

	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("content repository is required")
	}
	if s.langs == nil {
		return nil, fmt.Errorf("language catalog is required")
	}
	if s.types == nil {
		return nil, fmt.Errorf("type catalog is required")
	}
	if s.perms == nil {
		return nil, fmt.Errorf("permission repository is required")
	}
	if s.events == nil {
		s.events = NewNoopEventSink()
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	s.eval = NewPermissionEvaluator(s.repo, s.perms)
	return s, nil
}

// Node lookups

func (s *service) GetNode(ctx context.Context, id int) (*ContentNode, error) {
	return s.repo.GetNode(ctx, id)
}

func (s *service) GetChildren(ctx context.Context, user *User, q ChildrenQuery) ([]*ContentNode, int, error) {
	if _, err := s.Evaluate(ctx, user, q.ParentID, PermBrowse); err != nil {
		return nil, 0, err
	}
	return s.repo.GetChildren(ctx, q)
}

// Permission evaluation

func (s *service) Evaluate(ctx context.Context, user *User, nodeID int, required ...PermissionCode) (*ContentNode, error) {
	return s.eval.Evaluate(ctx, user, nodeID, required...)
}

// Culture validation

func (s *service) ValidateForPublish(ctx context.Context, node *ContentNode, requested []*CultureVariant) (CultureResult, error) {
	typ, err := s.contentType(ctx, node)
	if err != nil {
		return CultureResult{}, err
	}
	languages, err := s.langs.Languages(ctx)
	if err != nil {
		return CultureResult{}, err
	}
	return ValidateForPublish(node, typ, requested, languages), nil
}

// ApplyAction runs the publication state machine for one action request.
//
// The pipeline is: permission gate, structural precondition (new nodes
// only), silent downgrade of publish actions on invalid input, state gate,
// then the action-specific transition. Save semantics are best-effort: a
// blocked or failed publish still persists the submitted edits.
func (s *service) ApplyAction(ctx context.Context, req ApplyActionRequest) (*PublishResult, error) {
	if req.Node == nil {
		return nil, fmt.Errorf("node is required")
	}
	if req.User == nil {
		return nil, fmt.Errorf("acting user is required")
	}
	node := req.Node
	action := req.Action

	if err := s.authorizeAction(ctx, req); err != nil {
		return nil, err
	}

	typ, err := s.contentType(ctx, node)
	if err != nil {
		return nil, err
	}

	if action.IsNew() {
		// The one case where invalid input blocks persistence entirely.
		if err := validateStructure(node, typ); err != nil {
			return nil, err
		}
	}
	if err := validateVariantShape(req.Variants, typ); err != nil {
		return nil, err
	}

	downgraded := false
	if len(req.ValidationErrors) > 0 && action.IsPublish() {
		action = action.ToSave()
		downgraded = true
	}

	prev := node.State()
	applyVariantEdits(node, req.Variants, typ)

	if blocked := gate(prev, action); blocked != "" {
		if action != ActionUnpublish {
			if res, err := s.persistSave(ctx, node); err != nil {
				return nil, err
			} else if res != "" {
				blocked = res
			}
		}
		return &PublishResult{Result: blocked, Node: node, Downgraded: downgraded}, nil
	}

	var result *PublishResult
	switch action {
	case ActionSave, ActionSaveNew:
		result, err = s.doSave(ctx, node)
	case ActionPublish, ActionPublishNew:
		result, err = s.doPublish(ctx, node, typ, req.Variants)
	case ActionSendPublish, ActionSendPublishNew:
		result, err = s.doSendPublish(ctx, node)
	case ActionUnpublish:
		result, err = s.doUnpublish(ctx, node, req.Culture)
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
	if err != nil {
		return nil, err
	}

	result.Downgraded = downgraded
	published, total := publishCounts(node)
	if next := nextState(prev, action, published, total); next != prev {
		s.log.Debug("content state transition",
			"node", node.ID, "action", string(action),
			"from", string(prev), "to", string(next))
	}
	return result, nil
}

func (s *service) doSave(ctx context.Context, node *ContentNode) (*PublishResult, error) {
	if res, err := s.persistSave(ctx, node); err != nil {
		return nil, err
	} else if res != "" {
		return &PublishResult{Result: res, Node: node}, nil
	}
	return &PublishResult{Result: ResultSuccess, Node: node}, nil
}

func (s *service) doPublish(ctx context.Context, node *ContentNode, typ *ContentType, requested []*CultureVariant) (*PublishResult, error) {
	ok, err := s.pathPublished(ctx, node)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.failPublish(ctx, node, ResultFailedPathNotPublished, nil, nil)
	}

	now := time.Now().UTC()

	if !typ.VariesByCulture {
		return s.publishInvariant(ctx, node, typ, now)
	}

	languages, err := s.langs.Languages(ctx)
	if err != nil {
		return nil, err
	}
	res := ValidateForPublish(node, typ, requested, languages)
	if !res.OK {
		if len(res.InvalidProperties) > 0 {
			return s.failPublish(ctx, node, ResultFailedContentInvalid, res.InvalidProperties, []string{res.FailingCulture})
		}
		return s.failPublish(ctx, node, ResultFailedByCulture, nil, []string{res.FailingCulture})
	}

	var cultures []string
	for _, v := range requested {
		if v.Publish {
			cultures = append(cultures, v.Culture)
		}
	}
	if len(cultures) == 0 {
		return s.failPublish(ctx, node, ResultFailedCannotPublish, nil, nil)
	}

	for _, culture := range cultures {
		v := node.Variants[culture]
		if v == nil {
			return nil, &NodeError{NodeID: node.ID, Op: "publish",
				Err: fmt.Errorf("%w: no variant for culture %q", ErrLanguageNotFound, culture)}
		}
		if res := checkSchedule(v, now); res != "" {
			return s.failPublish(ctx, node, res, nil, []string{culture})
		}
	}

	if allPublishedUnedited(node, cultures) {
		return &PublishResult{Result: ResultSuccessAlready, Node: node}, nil
	}

	// All requested cultures publish together or none do.
	if err := runPublishHooks(ctx, s.hooks.BeforePublish, node, cultures); err != nil {
		return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	for _, culture := range cultures {
		markPublished(node.Variants[culture])
	}
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "publish", Err: err}
	}
	s.notify(ctx, "publish", node.ID, func(sink EventSink) error {
		return sink.NodePublished(ctx, node, cultures)
	})
	return &PublishResult{Result: ResultSuccess, Node: node}, nil
}

// publishInvariant mirrors save-then-mark-published for non-varying types.
// Exactly one variant is involved; per-culture validation never runs.
func (s *service) publishInvariant(ctx context.Context, node *ContentNode, typ *ContentType, now time.Time) (*PublishResult, error) {
	v := node.Variants[""]
	if v == nil {
		return nil, &NodeError{NodeID: node.ID, Op: "publish",
			Err: fmt.Errorf("%w: missing invariant variant", ErrInvalidNode)}
	}
	if res := checkSchedule(v, now); res != "" {
		return s.failPublish(ctx, node, res, nil, nil)
	}
	if invalid := invalidProperties(typ, v); len(invalid) > 0 {
		return s.failPublish(ctx, node, ResultFailedContentInvalid, invalid, nil)
	}
	if v.Published && !v.Edited {
		return &PublishResult{Result: ResultSuccessAlready, Node: node}, nil
	}

	if err := runPublishHooks(ctx, s.hooks.BeforePublish, node, nil); err != nil {
		return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	markPublished(v)
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "publish", Err: err}
	}
	s.notify(ctx, "publish", node.ID, func(sink EventSink) error {
		return sink.NodePublished(ctx, node, nil)
	})
	return &PublishResult{Result: ResultSuccess, Node: node}, nil
}

func (s *service) doSendPublish(ctx context.Context, node *ContentNode) (*PublishResult, error) {
	if err := runNodeHooks(ctx, s.hooks.BeforeSendPublish, node); err != nil {
		return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	node.AwaitingApproval = true
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "sendPublish", Err: err}
	}
	s.notify(ctx, "sendPublish", node.ID, func(sink EventSink) error {
		return sink.NodeSentForApproval(ctx, node)
	})
	return &PublishResult{Result: ResultSuccess, Node: node}, nil
}

func (s *service) doUnpublish(ctx context.Context, node *ContentNode, culture string) (*PublishResult, error) {
	var cultures []string
	if culture == "" {
		cultures = node.PublishedCultures()
		if len(cultures) == 0 {
			return &PublishResult{Result: ResultSuccessAlready, Node: node}, nil
		}
	} else {
		v := node.Variants[culture]
		if v == nil {
			return nil, &NodeError{NodeID: node.ID, Op: "unpublish",
				Err: fmt.Errorf("%w: %q", ErrLanguageNotFound, culture)}
		}
		if !v.Published {
			return &PublishResult{Result: ResultSuccessAlready, Node: node}, nil
		}
		cultures = []string{culture}
	}

	if err := runPublishHooks(ctx, s.hooks.BeforeUnpublish, node, cultures); err != nil {
		return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
	}
	for _, c := range cultures {
		v := node.Variants[c]
		v.Published = false
		v.Edited = true
	}
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return &PublishResult{Result: ResultFailedCancelledByEvent, Node: node}, nil
		}
		return nil, &NodeError{NodeID: node.ID, Op: "unpublish", Err: err}
	}
	s.notify(ctx, "unpublish", node.ID, func(sink EventSink) error {
		return sink.NodeUnpublished(ctx, node, cultures)
	})
	return &PublishResult{Result: ResultSuccess, Node: node}, nil
}

// Helper methods

// authorizeAction gates the request before any other work. New nodes are
// authorized against their parent.
func (s *service) authorizeAction(ctx context.Context, req ApplyActionRequest) error {
	if req.Action.IsNew() {
		codes := []PermissionCode{PermCreate}
		switch req.Action {
		case ActionPublishNew:
			codes = append(codes, PermPublish)
		case ActionSendPublishNew:
			codes = append(codes, PermSendForApproval)
		}
		parentID := req.Node.ParentID
		if parentID == 0 {
			parentID = RootID
		}
		_, err := s.eval.Evaluate(ctx, req.User, parentID, codes...)
		if errors.Is(err, ErrNodeNotFound) {
			return fmt.Errorf("%w: %d", ErrParentNotFound, parentID)
		}
		return err
	}

	var code PermissionCode
	switch req.Action {
	case ActionSave:
		code = PermUpdate
	case ActionPublish:
		code = PermPublish
	case ActionSendPublish:
		code = PermSendForApproval
	case ActionUnpublish:
		code = PermUnpublish
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
	return s.eval.EvaluateNode(ctx, req.User, req.Node, code)
}

func (s *service) contentType(ctx context.Context, node *ContentNode) (*ContentType, error) {
	typ, err := s.types.ContentTypeByAlias(ctx, node.ContentType)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "resolveType", Err: err}
	}
	return typ, nil
}

// persistSave runs the save veto chain and persists the node's edits. A
// veto or a concurrency conflict is reported as a cancelled outcome, not an
// error.
func (s *service) persistSave(ctx context.Context, node *ContentNode) (PublishResultType, error) {
	if err := runNodeHooks(ctx, s.hooks.BeforeSave, node); err != nil {
		return ResultFailedCancelledByEvent, nil
	}
	if err := s.repo.SaveNode(ctx, node); err != nil {
		if errors.Is(err, ErrConflict) {
			return ResultFailedCancelledByEvent, nil
		}
		return "", &NodeError{NodeID: node.ID, Op: "save", Err: err}
	}
	s.notify(ctx, "save", node.ID, func(sink EventSink) error {
		return sink.NodeSaved(ctx, node)
	})
	return "", nil
}

// failPublish persists the submitted edits (publish never blocks a save)
// and reports the publish failure.
func (s *service) failPublish(ctx context.Context, node *ContentNode, result PublishResultType, invalid, cultures []string) (*PublishResult, error) {
	saved, err := s.persistSave(ctx, node)
	if err != nil {
		return nil, err
	}
	if saved != "" {
		result = saved
	}
	return &PublishResult{
		Result:            result,
		Node:              node,
		InvalidProperties: invalid,
		FailedCultures:    cultures,
	}, nil
}

// pathPublished reports whether every ancestor below the root carries at
// least one published culture.
func (s *service) pathPublished(ctx context.Context, node *ContentNode) (bool, error) {
	parentID := node.ParentID
	if parentID == RootID || parentID == 0 {
		return true, nil
	}
	parent, err := s.repo.GetNode(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return false, fmt.Errorf("%w: %d", ErrParentNotFound, parentID)
		}
		return false, err
	}
	for _, id := range PathIDs(parent.Path) {
		if id == RootID || id == RecycleBinID {
			continue
		}
		ancestor := parent
		if id != parent.ID {
			ancestor, err = s.repo.GetNode(ctx, id)
			if err != nil {
				return false, err
			}
		}
		if len(ancestor.PublishedCultures()) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) notify(ctx context.Context, op string, nodeID int, fn func(EventSink) error) {
	if err := fn(s.events); err != nil {
		s.log.Warn("event sink failed", "op", op, "node", nodeID, "error", err)
	}
}

// applyVariantEdits merges the requested variants into the node. Unchanged
// variants keep their Edited flag so repeated identical requests stay
// idempotent. Non-varying nodes get their implicit invariant variant.
func applyVariantEdits(node *ContentNode, requested []*CultureVariant, typ *ContentType) {
	if node.Variants == nil {
		node.Variants = make(map[string]*CultureVariant)
	}
	if !typ.VariesByCulture && node.Variants[""] == nil && len(requested) == 0 {
		node.Variants[""] = &CultureVariant{Name: node.Name, Edited: true}
	}
	for _, req := range requested {
		existing := node.Variants[req.Culture]
		if existing == nil {
			v := req.Clone()
			v.Published = false
			v.Edited = true
			node.Variants[req.Culture] = v
			continue
		}
		existing.Publish = req.Publish
		existing.ReleaseAt = req.ReleaseAt
		existing.ExpireAt = req.ExpireAt
		if variantChanged(existing, req) {
			existing.Name = req.Name
			existing.Properties = req.Clone().Properties
			existing.Edited = true
		}
	}
}

func variantChanged(existing, req *CultureVariant) bool {
	if existing.Name != req.Name {
		return true
	}
	if len(existing.Properties) != len(req.Properties) {
		return true
	}
	for k, v := range req.Properties {
		if existing.Properties[k] != v {
			return true
		}
	}
	return false
}

func allPublishedUnedited(node *ContentNode, cultures []string) bool {
	for _, c := range cultures {
		v := node.Variants[c]
		if v == nil || !v.Published || v.Edited {
			return false
		}
	}
	return true
}

func markPublished(v *CultureVariant) {
	v.Published = true
	v.Publish = false
	v.Edited = false
}
