package handler

import (
	"errors"
	"fmt"
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/loan"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"
)

type LoanHandler struct {
	service loan.LoanService
	paging  config.PaginationConfig
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, paging config.PaginationConfig, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		paging:  paging,
		logger:  l.With("component", "LoanHandler"),
	}
}

// reloadLoan reads a freshly written loan back with its book and member. A
// failed read falls back to the written row, whose relations are then omitted.
func reloadLoan(r *http.Request, loans loan.LoanService, written *loan.Loan, logger *slog.Logger) *loan.Loan {
	full, err := loans.GetLoan(r.Context(), written.ID)
	if err != nil {
		logger.WarnContext(r.Context(), "Could not reload loan for response", slog.Int64("loanID", written.ID), slog.Any("error", err))
		return written
	}
	return full
}

// CreateLoan handles POST /loans
// @Summary Create a loan
// @Description Takes a copy of the book off the shelf exactly like the book loan action.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown book or member, or no copies left"
// @Router /api/loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid loan request", slog.Any("error", err))
		respondError(w, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.NewValidationError("book_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.BookID))
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(reloadLoan(r, h.service, created, h.logger)))
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve a loan
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// ListLoans handles GET /loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param member_id query int false "Member filter"
// @Param book_id query int false "Book filter"
// @Param is_returned query bool false "Returned filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PageResponse[dto.LoanResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := loanFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	params := pageParams(r, h.paging)
	page, err := h.service.ListLoans(r.Context(), filter, params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPageResponse(page, params, dto.NewLoanResponse))
}

func loanFilterFromQuery(r *http.Request) (loan.Filter, error) {
	q := r.URL.Query()
	var filter loan.Filter

	for _, f := range []struct {
		name string
		dst  *int64
	}{{"member_id", &filter.MemberID}, {"book_id", &filter.BookID}} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return loan.Filter{}, apperrors.NewValidationError(f.name, "A valid integer is required.")
		}
		*f.dst = id
	}

	if raw := q.Get("is_returned"); raw != "" {
		returned, err := strconv.ParseBool(raw)
		if err != nil {
			return loan.Filter{}, apperrors.NewValidationError("is_returned", "Must be a valid boolean.")
		}
		filter.IsReturned = &returned
	}
	return filter, nil
}

// ExtendDueDate handles POST /loans/{loanID}/extend_due_date
// @Summary Push a loan's due date back
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param request body dto.ExtendDueDateRequest true "Days to add, at least 1"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Missing or non-positive additional_days"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /api/loans/{loanID}/extend_due_date [post]
// @Security BearerAuth
func (h *LoanHandler) ExtendDueDate(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ExtendDueDateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	days, _ := req.Days()

	extended, err := h.service.ExtendDueDate(r.Context(), loanID, days)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(reloadLoan(r, h.service, extended, h.logger)))
}

// DeleteLoan handles DELETE /loans/{loanID}
// @Summary Delete a loan record
// @Tags Loans
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/loans/{loanID} [delete]
// @Security BearerAuth
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}
