package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// OperationResultResponse is the response body for a hierarchy mutation.
type OperationResultResponse struct {
	Result    string        `json:"result"`
	Succeeded bool          `json:"succeeded"`
	Node      *NodeResponse `json:"node,omitempty"`
}

func toOperationResult(res *contentflow.OperationResult) OperationResultResponse {
	resp := OperationResultResponse{
		Result:    string(res.Result),
		Succeeded: res.Result.Succeeded(),
	}
	if res.Node != nil {
		node := toNodeResponse(res.Node)
		resp.Node = &node
	}
	return resp
}

// MoveNodeRequest is the request body for reparenting a node.
type MoveNodeRequest struct {
	NewParentID int `json:"new_parent_id" validate:"required"`
}

// MoveNode reparents a node
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	var req MoveNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Move(r.Context(), contentflow.MoveRequest{
		User:        actingUser(r),
		NodeID:      id,
		NewParentID: req.NewParentID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toOperationResult(res))
}

// CopyNodeRequest is the request body for duplicating a node.
type CopyNodeRequest struct {
	TargetParentID   int  `json:"target_parent_id" validate:"required"`
	Recursive        bool `json:"recursive"`
	RelateToOriginal bool `json:"relate_to_original"`
}

// CopyNode duplicates a node under the target parent
func (h *Handler) CopyNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	var req CopyNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Copy(r.Context(), contentflow.CopyRequest{
		User:             actingUser(r),
		NodeID:           id,
		TargetParentID:   req.TargetParentID,
		Recursive:        req.Recursive,
		RelateToOriginal: req.RelateToOriginal,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toOperationResult(res))
}

// SortChildrenRequest is the request body for reordering children.
type SortChildrenRequest struct {
	OrderedIDs []int `json:"ordered_ids" validate:"required,min=1"`
}

// SortChildren applies a full ordering for a node's children
func (h *Handler) SortChildren(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	var req SortChildrenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Sort(r.Context(), contentflow.SortRequest{
		User:       actingUser(r),
		ParentID:   id,
		OrderedIDs: req.OrderedIDs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toOperationResult(res))
}

// TrashNode moves a node to the recycle bin
func (h *Handler) TrashNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	res, err := h.service.MoveToRecycleBin(r.Context(), contentflow.TrashRequest{
		User:   actingUser(r),
		NodeID: id,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toOperationResult(res))
}

// RestoreNodeRequest is the request body for restoring a trashed node. A
// zero target restores to the parent recorded when the node was trashed.
type RestoreNodeRequest struct {
	TargetParentID int `json:"target_parent_id"`
}

// RestoreNode moves a node out of the recycle bin
func (h *Handler) RestoreNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	var req RestoreNodeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := h.service.RestoreFromRecycleBin(r.Context(), contentflow.RestoreRequest{
		User:           actingUser(r),
		NodeID:         id,
		TargetParentID: req.TargetParentID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toOperationResult(res))
}

// DeleteNode hard-deletes a trashed node and its subtree
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		http.Error(w, "invalid node ID", http.StatusBadRequest)
		return
	}

	res, err := h.service.Delete(r.Context(), contentflow.DeleteRequest{
		User:   actingUser(r),
		NodeID: id,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Cancelled() {
		render.JSON(w, r, toOperationResult(res))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
