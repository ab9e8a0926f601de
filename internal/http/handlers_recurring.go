package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

// recurringInput validates the parts of a request the service cannot: the
// textual amount, frequency and dates.
func (s *Server) recurringInput(req recurringRequest) (services.RecurringInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return services.RecurringInput{}, err
	}
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return services.RecurringInput{}, err
	}
	start, err := parseOptionalDate(req.StartDate, s.today())
	if err != nil {
		return services.RecurringInput{}, err
	}
	end, err := parseOptionalDate(req.EndDate, core.Date{})
	if err != nil {
		return services.RecurringInput{}, err
	}

	return services.RecurringInput{
		CategoryID:  req.CategoryID,
		Title:       sanitizeInput(req.Title),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Frequency:   freq,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	in, err := s.recurringInput(req)
	if err != nil {
		UnprocessableEntityError(r, err.Error()).Write(w)
		return
	}

	re, err := s.deps.Recurring.Create(r.Context(), currentUser(r.Context()).ID, in)
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newRecurringResponse(re, s.today())).Write(w)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	in, err := s.recurringInput(req)
	if err != nil {
		UnprocessableEntityError(r, err.Error()).Write(w)
		return
	}

	re, err := s.deps.Recurring.Update(r.Context(), currentUser(r.Context()).ID, id, in)
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newRecurringResponse(re, s.today())).Write(w)
}

func (s *Server) handleDeactivateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	if err := s.deps.Recurring.Deactivate(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	re, err := s.deps.Recurring.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newRecurringResponse(re, s.today())).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Recurring.List(r.Context(), currentUser(r.Context()).ID, parseBoolQuery(r, "include_inactive"))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newRecurringList(items, s.today())).Write(w)
}
