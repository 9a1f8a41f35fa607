package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/domain/report"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"
)

type ReportHandler struct {
	service report.ReportService
	logger  *slog.Logger
}

func NewReportHandler(s report.ReportService, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("report service cannot be nil")
	}
	return &ReportHandler{service: s, logger: l.With("component", "ReportHandler")}
}

// TopActiveMembers handles GET /top-active-members
// @Summary Rank members by loan count
// @Description Every member is listed, most loans first. Members without loans appear with a zero count.
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum number of members"
// @Success 200 {array} dto.ActiveMemberResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/top-active-members [get]
func (h *ReportHandler) TopActiveMembers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, apperrors.NewValidationError("limit", "A valid non-negative integer is required."))
			return
		}
		limit = n
	}

	rows, err := h.service.TopActiveMembers(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewActiveMembersResponse(rows))
}
