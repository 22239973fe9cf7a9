package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"expenses/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err, "", "Failed to fetch categories", log.ComponentCategory, log.OpList)
		return
	}
	OK(toCategoriesJSON(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	if blank(req.Name) {
		BadRequestError("Name is required").Write(w)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), sanitizeInput(*req.Name))
	if err != nil {
		s.writeError(w, r, err, "", "Failed to create category", log.ComponentCategory, log.OpCreate)
		return
	}
	Created(toCategoryJSON(c)).Write(w)
}

// categoryID extracts the route ID. Malformed IDs are rejected with 400.
func categoryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !validID(id) {
		BadRequestError("Invalid category ID").Write(w)
		return "", false
	}
	return id, true
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	d, err := s.ledger.GetCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Category not found", "Failed to fetch category", log.ComponentCategory, log.OpRead)
		return
	}
	OK(toCategoryDetailJSON(d)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	if blank(req.Name) {
		BadRequestError("Name is required").Write(w)
		return
	}
	c, err := s.ledger.UpdateCategory(r.Context(), id, sanitizeInput(*req.Name))
	if err != nil {
		s.writeError(w, r, err, "Category not found", "Failed to update category", log.ComponentCategory, log.OpUpdate)
		return
	}
	OK(toCategoryJSON(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		s.writeError(w, r, err, "Category not found", "Failed to delete category", log.ComponentCategory, log.OpDelete)
		return
	}
	Success().Write(w)
}
