package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldant/contentflow/pkg/contentflow"
	"github.com/caldant/contentflow/pkg/contentflow/repo/memory"
)

// setupHandlerTest creates a Handler over in-memory stores with one admin
// user and a minimal type/language catalog.
func setupHandlerTest(t *testing.T) (chi.Router, *jwtauth.JWTAuth) {
	t.Helper()

	repo := memory.New()
	langs := memory.NewLanguageCatalog(
		contentflow.Language{Code: "en-US", Name: "English (US)", Mandatory: true},
	)
	types := memory.NewTypeCatalog(
		&contentflow.ContentType{
			Alias: "page", Name: "Page", VariesByCulture: true, AllowedAtRoot: true,
			AllowedChildTypes: []string{"page"},
		},
	)
	perms := memory.NewPermissionStore()
	perms.SetDefaults(1,
		contentflow.PermBrowse, contentflow.PermCreate, contentflow.PermUpdate,
		contentflow.PermDelete, contentflow.PermPublish, contentflow.PermUnpublish,
		contentflow.PermMove, contentflow.PermCopy, contentflow.PermSort,
		contentflow.PermSendForApproval)

	svc, err := contentflow.New(
		contentflow.WithRepository(repo),
		contentflow.WithLanguageCatalog(langs),
		contentflow.WithTypeCatalog(types),
		contentflow.WithPermissionRepository(perms),
	)
	require.NoError(t, err)

	auth := jwtauth.New("HS256", []byte("test-secret"), nil)
	handler := NewHandler(svc, auth, slog.Default())
	return handler.Routes(), auth
}

func adminToken(t *testing.T, auth *jwtauth.JWTAuth) string {
	t.Helper()
	_, token, err := auth.Encode(map[string]interface{}{
		"user_id":  1,
		"username": "admin",
	})
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router chi.Router, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createPage(t *testing.T, router chi.Router, token, name string, parentID int) ActionResultResponse {
	t.Helper()

	w := doJSON(t, router, token, http.MethodPost, "/nodes", CreateNodeRequest{
		ParentID:    parentID,
		Name:        name,
		ContentType: "page",
		Variants: []VariantPayload{
			{Culture: "en-US", Name: name},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp ActionResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Node)
	return resp
}

func TestHandler_RequiresToken(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, "", http.MethodGet, "/nodes/1000", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_CreateAndGetNode(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	created := createPage(t, router, token, "Home", contentflow.RootID)
	assert.Equal(t, "success", created.Result)
	assert.True(t, created.Succeeded)
	assert.Equal(t, "draft", created.Node.State)

	w := doJSON(t, router, token, http.MethodGet,
		"/nodes/"+itoa(created.Node.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var got NodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Home", got.Name)
	assert.Contains(t, got.Variants, "en-US")
}

func TestHandler_SentinelScopesAreNotNodes(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	// The root and recycle bin are virtual scopes with no node payload.
	for _, id := range []int{contentflow.RootID, contentflow.RecycleBinID} {
		w := doJSON(t, router, token, http.MethodGet, "/nodes/"+itoa(id), nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "id %d", id)
	}
}

func TestHandler_CreateNode_Validation(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	w := doJSON(t, router, token, http.MethodPost, "/nodes", CreateNodeRequest{
		ParentID:    contentflow.RootID,
		ContentType: "page", // name missing
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_PublishAction(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	created := createPage(t, router, token, "Home", contentflow.RootID)

	w := doJSON(t, router, token, http.MethodPost,
		"/nodes/"+itoa(created.Node.ID)+"/actions", ApplyActionRequest{
			Action:  "publish",
			Version: created.Node.Version,
			Variants: []VariantPayload{
				{Culture: "en-US", Name: "Home", Publish: true},
			},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ActionResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Result)
	assert.Equal(t, "published", resp.Node.State)
}

func TestHandler_StaleVersionIsCancelled(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	created := createPage(t, router, token, "Raced", contentflow.RootID)

	// First writer commits.
	w := doJSON(t, router, token, http.MethodPost,
		"/nodes/"+itoa(created.Node.ID)+"/actions", ApplyActionRequest{
			Action:  "save",
			Name:    "Raced v2",
			Version: created.Node.Version,
		})
	require.Equal(t, http.StatusOK, w.Code)

	// Second writer still holds the old version.
	w = doJSON(t, router, token, http.MethodPost,
		"/nodes/"+itoa(created.Node.ID)+"/actions", ApplyActionRequest{
			Action:  "save",
			Name:    "Raced v2 (stale)",
			Version: created.Node.Version,
		})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ActionResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failedCancelledByEvent", resp.Result)
	assert.False(t, resp.Succeeded)
}

func TestHandler_ChildrenListing(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	parent := createPage(t, router, token, "Home", contentflow.RootID)
	createPage(t, router, token, "Alpha", parent.Node.ID)
	createPage(t, router, token, "Beta", parent.Node.ID)

	w := doJSON(t, router, token, http.MethodGet,
		"/nodes/"+itoa(parent.Node.ID)+"/children?order_by=name&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChildrenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Alpha", resp.Items[0].Name)
}

func TestHandler_MoveRejectsCycle(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	a := createPage(t, router, token, "A", contentflow.RootID)
	b := createPage(t, router, token, "B", a.Node.ID)

	w := doJSON(t, router, token, http.MethodPost,
		"/nodes/"+itoa(a.Node.ID)+"/move", MoveNodeRequest{NewParentID: b.Node.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_TrashAndDelete(t *testing.T) {
	router, auth := setupHandlerTest(t)
	token := adminToken(t, auth)

	node := createPage(t, router, token, "Doomed", contentflow.RootID)

	// Hard delete before trash is a conflict.
	w := doJSON(t, router, token, http.MethodDelete, "/nodes/"+itoa(node.Node.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, token, http.MethodPost, "/nodes/"+itoa(node.Node.ID)+"/trash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trashed OperationResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trashed))
	assert.Equal(t, "trashed", trashed.Node.State)

	w = doJSON(t, router, token, http.MethodDelete, "/nodes/"+itoa(node.Node.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, token, http.MethodGet, "/nodes/"+itoa(node.Node.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
