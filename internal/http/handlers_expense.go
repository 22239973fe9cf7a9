package http

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"expenses/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	expenses, err := s.ledger.ListExpenses(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to fetch expenses", log.ComponentExpense, log.OpList)
		return
	}
	OK(toExpensesJSON(expenses)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	in, err := req.toInput()
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	e, err := s.ledger.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to create expense", log.ComponentExpense, log.OpCreate)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)
	Created(toExpenseJSON(e)).Write(w)
}

// expenseID extracts the route ID. A malformed ID cannot name an expense,
// so it is reported as not found.
func expenseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !validID(id) {
		NotFoundError("Expense not found").Write(w)
		return "", false
	}
	return id, true
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	e, err := s.ledger.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Expense not found", "Failed to fetch expense", log.ComponentExpense, log.OpRead)
		return
	}
	OK(toExpenseJSON(e)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	in, err := req.toInput()
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	e, err := s.ledger.UpdateExpense(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err, "Expense not found", "Failed to update expense", log.ComponentExpense, log.OpUpdate)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesUpdated, 1)
	OK(toExpenseJSON(e)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := expenseID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		s.writeError(w, r, err, "Expense not found", "Failed to delete expense", log.ComponentExpense, log.OpDelete)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesDeleted, 1)
	Success().Write(w)
}
