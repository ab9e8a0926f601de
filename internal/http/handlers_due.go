package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleListDue(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	buckets, err := s.deps.Processor.DueForUser(r.Context(), currentUser(r.Context()).ID, today)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newDueResponse(buckets, today)).Write(w)
}

func (s *Server) handleProcessOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	user := currentUser(r.Context())

	res, err := s.deps.Processor.ProcessOne(r.Context(), user.ID, id, s.today())
	if err != nil {
		writeServiceError(w, r, log.OpProcess, err)
		return
	}
	s.invalidateDashboard(user.ID)
	s.logProcessed(r, user.ID, res)

	NewJSONResponse().Body(newProcessedItem(res)).Write(w)
}

func (s *Server) handleProcessSelected(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	if len(req.IDs) == 0 {
		UnprocessableEntityError(r, "ids must not be empty").Write(w)
		return
	}
	user := currentUser(r.Context())

	batch, err := s.deps.Processor.ProcessSelected(r.Context(), user.ID, req.IDs, s.today())
	if err != nil {
		writeServiceError(w, r, log.OpProcess, err)
		return
	}
	if len(batch.Processed) > 0 {
		s.invalidateDashboard(user.ID)
	}
	for _, res := range batch.Processed {
		s.logProcessed(r, user.ID, res)
	}

	NewJSONResponse().Body(newProcessResponse(batch)).Write(w)
}

func (s *Server) logProcessed(r *http.Request, userID int64, res services.ProcessResult) {
	re := core.RecurringExpense{
		ID:          res.RecurringID,
		UserID:      userID,
		Amount:      res.Expense.Amount,
		NextDueDate: res.Expense.Date,
		Status:      res.Status,
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecurringProcessed(r.Context(), re, res.Expense.ID, res.NextDueDate)
}
