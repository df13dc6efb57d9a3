package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
)

// BudgetHandler serves /api/budgets.  Every query is scoped to the caller.
type BudgetHandler struct {
	Budgets       *repository.BudgetRepo
	Notifications *repository.NotificationRepo
}

type createBudgetReq struct {
	Category       string  `json:"category" validate:"required,max=64"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	Spent          float64 `json:"spent" validate:"gte=0"`
	Month          int     `json:"month" validate:"required,min=1,max=12"`
	Year           int     `json:"year" validate:"required,min=2000,max=2100"`
	AlertThreshold *int    `json:"alertThreshold" validate:"omitempty,min=1,max=100"`
}

type updateBudgetReq struct {
	Category       *string  `json:"category" validate:"omitempty,min=1,max=64"`
	Amount         *float64 `json:"amount" validate:"omitempty,gt=0"`
	Spent          *float64 `json:"spent" validate:"omitempty,gte=0"`
	Month          *int     `json:"month" validate:"omitempty,min=1,max=12"`
	Year           *int     `json:"year" validate:"omitempty,min=2000,max=2100"`
	AlertThreshold *int     `json:"alertThreshold" validate:"omitempty,min=1,max=100"`
}

const duplicateBudget = "a budget for this category and period already exists"

func (h *BudgetHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	budgets, err := h.Budgets.List(ctx, principal(c).ID, queryInt(c, "month", 0), queryInt(c, "year", 0))
	if err != nil {
		return internalError(c, "list budgets", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"budgets": budgets})
}

func (h *BudgetHandler) Create(c echo.Context) error {
	var req createBudgetReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	b := &model.Budget{
		UserID:         principal(c).ID,
		Category:       req.Category,
		Amount:         req.Amount,
		Spent:          req.Spent,
		Month:          req.Month,
		Year:           req.Year,
		AlertThreshold: 80,
	}
	if req.AlertThreshold != nil {
		b.AlertThreshold = *req.AlertThreshold
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Budgets.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": duplicateBudget})
		}
		return internalError(c, "create budget", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"budget": b})
}

// Update applies the given fields.  When spending crosses the alert
// threshold a BUDGET_ALERT notification is created for the owner.
func (h *BudgetHandler) Update(c echo.Context) error {
	var req updateBudgetReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID

	b, err := h.Budgets.Get(ctx, uid, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "budget")
	}
	if err != nil {
		return internalError(c, "update budget: load", err)
	}
	before := *b

	if req.Category != nil {
		b.Category = *req.Category
	}
	if req.Amount != nil {
		b.Amount = *req.Amount
	}
	if req.Spent != nil {
		b.Spent = *req.Spent
	}
	if req.Month != nil {
		b.Month = *req.Month
	}
	if req.Year != nil {
		b.Year = *req.Year
	}
	if req.AlertThreshold != nil {
		b.AlertThreshold = *req.AlertThreshold
	}

	switch err := h.Budgets.Save(ctx, b); {
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": duplicateBudget})
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "budget")
	case err != nil:
		return internalError(c, "update budget: save", err)
	}

	if crossedThreshold(before, *b) {
		n := &model.Notification{
			UserID: uid,
			Type:   model.NotificationBudgetAlert,
			Title:  "Budget alert: " + b.Category,
			Message: fmt.Sprintf("You have used %.0f%% of your %s budget for %02d/%d.",
				b.UsagePercent(), b.Category, b.Month, b.Year),
			Link: "/budgets",
		}
		if err := h.Notifications.Create(ctx, n); err != nil {
			slog.Error("budget alert notification", "budget_id", b.ID, "error", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"budget": b})
}

// crossedThreshold reports whether usage moved from below the alert
// threshold to at or above it.
func crossedThreshold(before, after model.Budget) bool {
	th := float64(after.AlertThreshold)
	return before.UsagePercent() < th && after.UsagePercent() >= th
}

func (h *BudgetHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Budgets.Delete(ctx, principal(c).ID, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget")
		}
		return internalError(c, "delete budget", err)
	}
	return c.NoContent(http.StatusNoContent)
}
