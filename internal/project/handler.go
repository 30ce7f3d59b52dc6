package project

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/waynecorp/project-registry/internal/auth"
	"github.com/waynecorp/project-registry/internal/transport"
)

type ServiceAPI interface {
	ListForRole(role auth.Role, tierParam string) ([]*Project, error)
	Search(role auth.Role, term string) ([]*Project, error)
	Update(ctx context.Context, bearer string, id int64, body []byte) (*Project, *auth.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Authn   Authenticator
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, authn Authenticator) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Authn:       authn,
	}
}

type listResponse struct {
	Success  bool       `json:"success"`
	Projects []*Project `json:"projects"`
	Total    int        `json:"total"`
}

type updateResponse struct {
	Success   bool       `json:"success"`
	Project   *Project   `json:"project"`
	UpdatedBy *auth.User `json:"updatedBy"`
}

// resolveRole determines the caller's role from an optional bearer token.
// No Authorization header means an anonymous caller; a header that fails
// authentication is rejected rather than silently downgraded.
func (h *Handler) resolveRole(w http.ResponseWriter, r *http.Request) (auth.Role, bool) {
	if !h.HasAuthorizationHeader(r) {
		return "", true
	}

	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "malformed credentials")
		return "", false
	}

	user, err := h.Authn.AuthenticateBearer(token)
	if err != nil {
		h.Logger.Warn("read request with bad credentials", "error", err, "path", r.URL.Path)
		h.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return "", false
	}

	return user.Role, true
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	role, ok := h.resolveRole(w, r)
	if !ok {
		return
	}

	projects, err := h.Service.ListForRole(role, r.URL.Query().Get("tier"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, listResponse{
		Success:  true,
		Projects: projects,
		Total:    len(projects),
	})
}

func (h *Handler) SearchProjects(w http.ResponseWriter, r *http.Request) {
	role, ok := h.resolveRole(w, r)
	if !ok {
		return
	}

	projects, err := h.Service.Search(role, r.URL.Query().Get("term"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, listResponse{
		Success:  true,
		Projects: projects,
		Total:    len(projects),
	})
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if h.HasAuthorizationHeader(r) && h.ExtractTokenFromHeader(r) == "" {
		h.WriteError(w, http.StatusUnauthorized, "malformed credentials")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, updatedBy, err := h.Service.Update(r.Context(), h.ExtractTokenFromHeader(r), id, body)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updateResponse{
		Success:   true,
		Project:   updated,
		UpdatedBy: updatedBy,
	})
}
