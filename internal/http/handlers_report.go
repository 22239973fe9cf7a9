package http

import (
	"net/http"

	"expenses/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r.URL.Query())
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to fetch expense summary", log.ComponentSummary, log.OpSummarize)
		return
	}
	OK(toSummaryJSON(sum)).Write(w)
}

// handleView serves one page of the list view. The session's stored filters
// are the baseline, query parameters adjust them and the result is persisted
// for the next request.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionID(ctx)

	st, err := s.prefs.Load(ctx, session)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to load filter preferences", log.ComponentPrefs, log.OpRead)
		return
	}
	if err := applyViewQuery(&st, r.URL.Query(), s.now()); err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}

	res, err := s.ledger.View(ctx, &st)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to fetch expenses", log.ComponentExpense, log.OpList)
		return
	}
	if err := s.prefs.Save(ctx, session, st); err != nil {
		// The page is still valid; only the next request loses the state.
		log.FromContext(ctx).WithComponent(log.ComponentPrefs).WarnContext(ctx, "Failed to persist filter preferences", log.FieldError, err.Error())
	}

	OK(viewJSON{
		Items:         toExpensesJSON(res.Items),
		FilteredCount: res.FilteredCount,
		TotalAmount:   amountJSON(res.TotalAmount),
		TotalPages:    res.TotalPages,
		CurrentPage:   res.CurrentPage,
		Filters:       toFilterStateJSON(st),
	}).Write(w)
}
