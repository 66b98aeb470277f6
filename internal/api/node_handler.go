package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/caldant/contentflow/pkg/contentflow"
)

var validate = validator.New()

// VariantPayload is one requested culture variant.
type VariantPayload struct {
	Culture    string            `json:"culture"`
	Name       string            `json:"name" validate:"max=255"`
	Publish    bool              `json:"publish"`
	Properties map[string]string `json:"properties"`
	ReleaseAt  *time.Time        `json:"release_at"`
	ExpireAt   *time.Time        `json:"expire_at"`
}

// VariantResponse is the response body for one culture variant.
type VariantResponse struct {
	Culture    string            `json:"culture"`
	Name       string            `json:"name"`
	Published  bool              `json:"published"`
	Edited     bool              `json:"edited"`
	Properties map[string]string `json:"properties,omitempty"`
	ReleaseAt  *time.Time        `json:"release_at,omitempty"`
	ExpireAt   *time.Time        `json:"expire_at,omitempty"`
}

// NodeResponse is the response body for a content node.
type NodeResponse struct {
	ID               int                        `json:"id"`
	Key              uuid.UUID                  `json:"key"`
	ParentID         int                        `json:"parent_id"`
	Path             string                     `json:"path"`
	Name             string                     `json:"name"`
	ContentType      string                     `json:"content_type"`
	State            string                     `json:"state"`
	SortOrder        int                        `json:"sort_order"`
	Trashed          bool                       `json:"trashed"`
	AwaitingApproval bool                       `json:"awaiting_approval,omitempty"`
	Variants         map[string]VariantResponse `json:"variants"`
	Version          int                        `json:"version"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

func toNodeResponse(node *contentflow.ContentNode) NodeResponse {
	resp := NodeResponse{
		ID:               node.ID,
		Key:              node.Key,
		ParentID:         node.ParentID,
		Path:             node.Path,
		Name:             node.Name,
		ContentType:      node.ContentType,
		State:            string(node.State()),
		SortOrder:        node.SortOrder,
		Trashed:          node.Trashed,
		AwaitingApproval: node.AwaitingApproval,
		Variants:         make(map[string]VariantResponse, len(node.Variants)),
		Version:          node.Version,
		CreatedAt:        node.CreatedAt,
		UpdatedAt:        node.UpdatedAt,
	}
	for culture, v := range node.Variants {
		resp.Variants[culture] = VariantResponse{
			Culture:    v.Culture,
			Name:       v.Name,
			Published:  v.Published,
			Edited:     v.Edited,
			Properties: v.Properties,
			ReleaseAt:  v.ReleaseAt,
			ExpireAt:   v.ExpireAt,
		}
	}
	return resp
}

// ActionResultResponse is the response body for a workflow action.
type ActionResultResponse struct {
	Result            string       `json:"result"`
	Succeeded         bool         `json:"succeeded"`
	Downgraded        bool         `json:"downgraded,omitempty"`
	InvalidProperties []string     `json:"invalid_properties,omitempty"`
	FailedCultures    []string     `json:"failed_cultures,omitempty"`
	Node              *NodeResponse `json:"node,omitempty"`
}

func toActionResult(res *contentflow.PublishResult) ActionResultResponse {
	resp := ActionResultResponse{
		Result:            string(res.Result),
		Succeeded:         res.Result.Succeeded(),
		Downgraded:        res.Downgraded,
		InvalidProperties: res.InvalidProperties,
		FailedCultures:    res.FailedCultures,
	}
	if res.Node != nil {
		node := toNodeResponse(res.Node)
		resp.Node = &node
	}
	return resp
}

func toVariants(payloads []VariantPayload) []*contentflow.CultureVariant {
	var variants []*contentflow.CultureVariant
	for _, p := range payloads {
		variants = append(variants, &contentflow.CultureVariant{
			Culture:    p.Culture,
			Name:       p.Name,
			Publish:    p.Publish,
			Properties: p.Properties,
			ReleaseAt:  p.ReleaseAt,
			ExpireAt:   p.ExpireAt,
		})
	}
	return variants
}

// validationErrors runs the field validators over the submitted variants.
// Failures do not reject the request; the workflow engine downgrades publish
// actions to a save when they are present.
func validationErrors(payloads []VariantPayload) []string {
	var errs []string
	for _, p := range payloads {
		if err := validate.Struct(p); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					errs = append(errs, fmt.Sprintf("%s/%s: failed %s validation", p.Culture, fe.Field(), fe.Tag()))
				}
				continue
			}
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	ParentID    int              `json:"parent_id"`
	Name        string           `json:"name" validate:"required,max=255"`
	ContentType string           `json:"content_type" validate:"required"`
	Action      string           `json:"action" validate:"omitempty,oneof=saveNew publishNew sendPublishNew"`
	Variants    []VariantPayload `json:"variants"`
}

// CreateNode creates a new node under the given parent
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	action := contentflow.ActionSaveNew
	if req.Action != "" {
		action = contentflow.ContentAction(req.Action)
	}

	node := &contentflow.ContentNode{
		ParentID:    req.ParentID,
		Name:        req.Name,
		ContentType: req.ContentType,
		Variants:    make(map[string]*contentflow.CultureVariant),
	}
	for _, p := range req.Variants {
		node.Variants[p.Culture] = &contentflow.CultureVariant{
			Culture:    p.Culture,
			Name:       p.Name,
			Properties: p.Properties,
		}
	}

	res, err := h.service.ApplyAction(r.Context(), contentflow.ApplyActionRequest{
		Action:           action,
		User:             actingUser(r),
		Node:             node,
		Variants:         toVariants(req.Variants),
		ValidationErrors: validationErrors(req.Variants),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toActionResult(res))
}

// GetNode retrieves a node by ID
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	// The root and recycle-bin sentinels are virtual scopes, not nodes.
	if id == contentflow.RootID || id == contentflow.RecycleBinID {
		h.writeError(w, r, contentflow.ErrNodeNotFound)
		return
	}

	node, err := h.service.Evaluate(r.Context(), actingUser(r), id, contentflow.PermBrowse)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, toNodeResponse(node))
}

// ChildrenResponse is the response body for a children listing.
type ChildrenResponse struct {
	Items []NodeResponse `json:"items"`
	Total int            `json:"total"`
}

// GetChildren lists a node's children with paging, filtering and sorting
func (h *Handler) GetChildren(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	query := contentflow.ChildrenQuery{
		ParentID: id,
		OrderBy:  r.URL.Query().Get("order_by"),
		Filter:   r.URL.Query().Get("filter"),
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		query.Offset, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		query.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("desc"); v != "" {
		query.Desc, _ = strconv.ParseBool(v)
	}
	if v := r.URL.Query().Get("include_trashed"); v != "" {
		query.IncludeTrashed, _ = strconv.ParseBool(v)
	}

	children, total, err := h.service.GetChildren(r.Context(), actingUser(r), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ChildrenResponse{Items: make([]NodeResponse, 0, len(children)), Total: total}
	for _, child := range children {
		resp.Items = append(resp.Items, toNodeResponse(child))
	}
	render.JSON(w, r, resp)
}

// ApplyActionRequest is the request body for a workflow action on a node.
type ApplyActionRequest struct {
	Action   string           `json:"action" validate:"required,oneof=save publish sendPublish unpublish"`
	Name     string           `json:"name" validate:"omitempty,max=255"`
	Culture  string           `json:"culture"`
	Version  int              `json:"version" validate:"required,gt=0"`
	Variants []VariantPayload `json:"variants"`
}

// ApplyAction runs a workflow action against an existing node
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	var req ApplyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, err := h.service.GetNode(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The submitted version, not the stored one, drives the optimistic
	// concurrency check.
	node.Version = req.Version
	if req.Name != "" {
		node.Name = req.Name
	}

	res, err := h.service.ApplyAction(r.Context(), contentflow.ApplyActionRequest{
		Action:           contentflow.ContentAction(req.Action),
		User:             actingUser(r),
		Node:             node,
		Variants:         toVariants(req.Variants),
		Culture:          req.Culture,
		ValidationErrors: validationErrors(req.Variants),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, toActionResult(res))
}
