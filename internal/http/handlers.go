package http

import (
	"errors"
	"net/http"

	"yarikuri/internal/core"
	"yarikuri/internal/log"
	"yarikuri/internal/services"
)

// planResponse is the JSON shape of the derived plan.
type planResponse struct {
	Revision       int64                 `json:"revision"`
	CurrentBalance int64                 `json:"currentBalance"`
	InitialAssets  int64                 `json:"initialAssets"`
	SafetyLine     *int64                `json:"safetyLine"`
	Wishlist       []core.WishlistItem   `json:"wishlist"`
	Schedule       []scheduleEntry       `json:"schedule"`
	Projection     []weeklyPoint         `json:"projection"`
	MonthlyAverage monthlyAverage        `json:"monthlyAverage"`
	Persisted      bool                  `json:"persisted"`
}

type scheduleEntry struct {
	Item            core.WishlistItem `json:"item"`
	Rank            int               `json:"rank"`
	Feasible        bool              `json:"feasible"`
	PurchaseDate    core.Date         `json:"purchaseDate"`
	BalanceAfter    int64             `json:"balanceAfter"`
	WaitedForSalary bool              `json:"waitedForSalary"`
}

type weeklyPoint struct {
	WeekStart            core.Date            `json:"weekStart"`
	Balance              int64                `json:"balance"`
	Events               []core.MonetaryEvent `json:"events"`
	HasScheduledPurchase bool                 `json:"hasScheduledPurchase"`
}

type monthlyAverage struct {
	AverageBalance int64 `json:"averageBalance"`
	TotalMonths    int   `json:"totalMonths"`
	PositiveMonths int   `json:"positiveMonths"`
	NegativeMonths int   `json:"negativeMonths"`
}

func toPlanResponse(view services.PlanView) planResponse {
	resp := planResponse{
		Revision:       view.Revision,
		CurrentBalance: view.CurrentBalance,
		InitialAssets:  view.InitialAssets,
		SafetyLine:     view.SafetyLine,
		Wishlist:       view.Wishlist,
		Schedule:       make([]scheduleEntry, 0, len(view.Schedule)),
		Projection:     make([]weeklyPoint, 0, len(view.Projection)),
		MonthlyAverage: monthlyAverage(view.MonthlyAverage),
		Persisted:      view.Persisted,
	}
	for _, e := range view.Schedule {
		resp.Schedule = append(resp.Schedule, scheduleEntry{
			Item:            e.Item,
			Rank:            e.Rank,
			Feasible:        e.Feasible,
			PurchaseDate:    e.PurchaseDate,
			BalanceAfter:    e.BalanceAfter,
			WaitedForSalary: e.WaitedForSalary,
		})
	}
	for _, p := range view.Projection {
		resp.Projection = append(resp.Projection, weeklyPoint{
			WeekStart:            p.WeekStart,
			Balance:              p.Balance,
			Events:               p.Events,
			HasScheduledPurchase: p.HasScheduledPurchase,
		})
	}
	return resp
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cachedPlan(r.Context()))
}

func (s *Server) handleAddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Price string `json:"price"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cents, err := core.ParseDecimalToCents(req.Price)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	view, err := s.planner.AddWishlistItem(r.Context(), req.Name, core.Money{Cents: cents})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(view))
}

func (s *Server) handleDeleteWishlistItem(w http.ResponseWriter, r *http.Request) {
	view, err := s.planner.DeleteWishlistItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleMoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Direction != "up" && req.Direction != "down" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("direction must be \"up\" or \"down\""))
		return
	}
	view, err := s.planner.MoveWishlistItem(r.Context(), r.PathValue("id"), req.Direction == "up")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleReorderWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.planner.ReorderWishlist(r.Context(), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handlePurchaseItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date core.Date `json:"date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	date := req.Date
	if date.IsZero() {
		date = core.DateOf(timeNow())
	}
	view, err := s.planner.PurchaseItem(r.Context(), r.PathValue("id"), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.planner.Export(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"incomeEvents":  emptyIfNil(snap.IncomeEvents),
		"expenseEvents": emptyIfNil(snap.ExpenseEvents),
	})
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        core.EventKind `json:"kind"`
		Date        core.Date      `json:"date"`
		Amount      string         `json:"amount"`
		Category    core.Category  `json:"category"`
		Description string         `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	amount := core.Money{Cents: cents}

	var view services.PlanView
	switch req.Kind {
	case core.Income:
		view, err = s.planner.AddIncome(r.Context(), req.Date, amount, req.Description)
	case core.Expense:
		view, err = s.planner.AddExpense(r.Context(), req.Date, amount, req.Category, req.Description)
	default:
		writeError(w, http.StatusUnprocessableEntity, core.ErrInvalidKind)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(view))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	view, err := s.planner.DeleteEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	snap := s.planner.Export(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"incomeRules":  emptyIfNil(snap.RecurringIncomeRules),
		"expenseRules": emptyIfNil(snap.RecurringExpenseRules),
	})
}

func (s *Server) handleApplyRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind           core.EventKind `json:"kind"`
		StartMonth     core.YearMonth `json:"startMonth"`
		DayOfMonth     int            `json:"dayOfMonth"`
		Amount         string         `json:"amount"`
		DurationMonths int            `json:"durationMonths"`
		Category       core.Category  `json:"category"`
		ConfirmReplace bool           `json:"confirmReplace"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	rule := core.RecurringRule{
		Kind:           req.Kind,
		StartMonth:     req.StartMonth,
		DayOfMonth:     req.DayOfMonth,
		Amount:         core.Money{Cents: cents},
		DurationMonths: req.DurationMonths,
		Category:       req.Category,
	}
	view, err := s.planner.ApplyRecurringRule(r.Context(), rule, req.ConfirmReplace)
	if err != nil {
		var conflict *services.RuleConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    conflict.Error(),
				"conflict": conflict.Existing,
			})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(view))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	view, err := s.planner.DeleteRecurringRule(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleSetSafetyLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cents *int64 `json:"cents"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.planner.SetSafetyLine(r.Context(), req.Cents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleSetInitialAssets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cents int64 `json:"cents"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.planner.SetInitialAssets(r.Context(), req.Cents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	type categoryDTO struct {
		ID   core.Category `json:"id"`
		Name string        `json:"name"`
	}
	categories := make([]categoryDTO, 0)
	for _, c := range core.Categories() {
		categories = append(categories, categoryDTO{ID: c, Name: c.DisplayName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="yarikuri-snapshot.json"`)
	writeJSON(w, http.StatusOK, s.planner.Export(r.Context()))
}

func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	if !decodeJSON(w, r, &snap) {
		return
	}
	view, err := s.planner.Import(r.Context(), snap)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(view))
}

// writeServiceError maps service errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, services.ErrAlreadyPurchased):
		writeError(w, http.StatusConflict, err)
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unhandled service error",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidDay,
		core.ErrInvalidAmount,
		core.ErrInvalidDuration,
		core.ErrInvalidKind,
		core.ErrUnknownCategory,
		core.ErrEmptyName,
		core.ErrEmptyDescription,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
