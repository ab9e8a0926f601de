package http

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		UnprocessableEntityError(r, err.Error()).Write(w)
		return
	}
	date, err := parseOptionalDate(req.Date, s.today())
	if err != nil {
		UnprocessableEntityError(r, err.Error()).Write(w)
		return
	}

	saved, err := s.deps.Expenses.CreateExpense(r.Context(), core.Expense{
		UserID:      user.ID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	s.invalidateDashboard(user.ID)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogExpenseCreated(r.Context(), saved)

	NewJSONResponse().Status(http.StatusCreated).Body(newExpenseResponse(saved)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Expenses.ListExpenses(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newExpenseList(items)).Write(w)
}

func (s *Server) handleSearchExpenses(w http.ResponseWriter, r *http.Request) {
	q := sanitizeInput(r.URL.Query().Get("q"))
	items, err := s.deps.Expenses.Search(r.Context(), currentUser(r.Context()).ID, q)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newExpenseList(items)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context()).ID
	d, err := s.dashboards.GetOrLoad(r.Context(), dashboardKey(userID), func(ctx context.Context) (core.Dashboard, error) {
		return s.deps.Expenses.Dashboard(ctx, userID)
	})
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newDashboardResponse(d)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.GetOrLoad(r.Context(), categoriesKey, s.deps.Expenses.Categories)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	NewJSONResponse().Body(out).Write(w)
}
