package authcore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Action permissions a role may carry. READ is compulsory for all roles.
const (
	PermissionRead   = "READ"
	PermissionCreate = "CREATE"
	PermissionEdit   = "EDIT"
	PermissionDelete = "DELETE"
)

var validActions = []string{PermissionRead, PermissionCreate, PermissionEdit, PermissionDelete}

// Role names a set of action and page permissions. Roles are an independent
// CRUD resource; they are not coupled to users.
type Role struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	ActionsPermission []string `json:"actionsPermission"`
	PagesPermission   []string `json:"pagesPermission"`
}

// RoleStore persists roles with a unique-name constraint.
type RoleStore interface {
	// Create returns ErrRoleExists when the name is taken
	Create(ctx context.Context, role *Role) error

	// GetByID returns ErrRoleNotFound if no role has this id
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName returns ErrRoleNotFound if no role has this name
	GetByName(ctx context.Context, name string) (*Role, error)

	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
}

// normalizeActions validates the actions against the allowed set and
// guarantees READ is present.
func normalizeActions(actions []string) ([]string, error) {
	out := []string{PermissionRead}
	for _, a := range actions {
		if !slices.Contains(validActions, a) {
			return nil, fmt.Errorf("invalid action permission %q", a)
		}
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out, nil
}

type roleRequest struct {
	Name              string   `json:"name"`
	ActionsPermission []string `json:"actionsPermission"`
	PagesPermission   []string `json:"pagesPermission"`
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.ActionsPermission == nil || req.PagesPermission == nil {
		writeError(w, http.StatusBadRequest, "Name, actionsPermission and pagesPermission are required")
		return
	}

	actions, err := normalizeActions(req.ActionsPermission)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role := &Role{
		ID:                uuid.NewString(),
		Name:              req.Name,
		ActionsPermission: actions,
		PagesPermission:   req.PagesPermission,
	}
	if err := s.Roles.Create(r.Context(), role); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.Roles.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.Roles.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.ActionsPermission == nil || req.PagesPermission == nil {
		writeError(w, http.StatusBadRequest, "Name, actionsPermission and pagesPermission are required")
		return
	}

	role, err := s.Roles.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	// renaming onto another role's name is a conflict
	if existing, err := s.Roles.GetByName(r.Context(), req.Name); err == nil && existing.ID != id {
		writeError(w, http.StatusBadRequest, "Name already exists")
		return
	}

	actions, err := normalizeActions(req.ActionsPermission)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role.Name = req.Name
	role.ActionsPermission = actions
	role.PagesPermission = req.PagesPermission
	if err := s.Roles.Update(r.Context(), role); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.Roles.GetByID(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.Roles.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Role deleted successfully"})
}
