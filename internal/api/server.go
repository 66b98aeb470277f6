package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// Handler serves the content workflow HTTP API
type Handler struct {
	service contentflow.Service
	auth    *jwtauth.JWTAuth
	log     *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(service contentflow.Service, auth *jwtauth.JWTAuth, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, auth: auth, log: log}
}

// Routes returns the routes for the content workflow API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(jwtauth.Verifier(h.auth))
	r.Use(jwtauth.Authenticator)
	r.Use(h.withUser)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", h.CreateNode)
		r.Get("/{id}", h.GetNode)
		r.Get("/{id}/children", h.GetChildren)
		r.Post("/{id}/actions", h.ApplyAction)

		r.Post("/{id}/move", h.MoveNode)
		r.Post("/{id}/copy", h.CopyNode)
		r.Post("/{id}/sort", h.SortChildren)
		r.Post("/{id}/trash", h.TrashNode)
		r.Post("/{id}/restore", h.RestoreNode)
		r.Delete("/{id}", h.DeleteNode)
	})

	return r
}

type contextKey string

const userKey contextKey = "acting_user"

// withUser resolves the acting user from the verified token claims.
func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user, err := userFromClaims(claims)
		if err != nil {
			h.log.Warn("rejected token", "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromClaims(claims map[string]interface{}) (*contentflow.User, error) {
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return nil, errors.New("token is missing the user_id claim")
	}
	user := &contentflow.User{ID: int(id)}
	if username, ok := claims["username"].(string); ok {
		user.Username = username
	}
	if groups, ok := claims["groups"].([]interface{}); ok {
		for _, g := range groups {
			if s, ok := g.(string); ok {
				user.Groups = append(user.Groups, s)
			}
		}
	}
	if startNodes, ok := claims["start_node_ids"].([]interface{}); ok {
		for _, n := range startNodes {
			if f, ok := n.(float64); ok {
				user.StartNodeIDs = append(user.StartNodeIDs, int(f))
			}
		}
	}
	return user, nil
}

func actingUser(r *http.Request) *contentflow.User {
	user, _ := r.Context().Value(userKey).(*contentflow.User)
	return user
}

func nodeID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// writeError maps the workflow error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contentflow.ErrNodeNotFound),
		errors.Is(err, contentflow.ErrParentNotFound),
		errors.Is(err, contentflow.ErrContentTypeNotFound),
		errors.Is(err, contentflow.ErrLanguageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contentflow.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, contentflow.ErrInvalidNode):
		status = http.StatusBadRequest
	case errors.Is(err, contentflow.ErrStructuralViolation),
		errors.Is(err, contentflow.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	http.Error(w, err.Error(), status)
}
