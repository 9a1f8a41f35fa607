package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/member"
	"log/slog"
	"net/http"
)

type MemberHandler struct {
	service member.MemberService
	paging  config.PaginationConfig
	logger  *slog.Logger
}

func NewMemberHandler(s member.MemberService, paging config.PaginationConfig, l *slog.Logger) *MemberHandler {
	if s == nil {
		panic("member service cannot be nil")
	}
	return &MemberHandler{
		service: s,
		paging:  paging,
		logger:  l.With("component", "MemberHandler"),
	}
}

// CreateUser handles POST /users
// @Summary Register an identity record
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User payload"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Username taken"
// @Router /api/users [post]
func (h *MemberHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid user request", slog.Any("error", err))
		respondError(w, err)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewUserResponse(user))
}

// GetUser handles GET /users/{userID}
// @Summary Retrieve an identity record
// @Tags Users
// @Produce json
// @Param userID path int true "User ID" Minimum(1)
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/users/{userID} [get]
func (h *MemberHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

// CreateMember handles POST /members
// @Summary Enrol a user as a member
// @Tags Members
// @Accept json
// @Produce json
// @Param request body dto.CreateMemberRequest true "Member payload"
// @Success 201 {object} dto.MemberResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown user"
// @Failure 409 {object} dto.ErrorResponse "User is already a member"
// @Router /api/members [post]
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMemberRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	m, err := h.service.CreateMember(r.Context(), req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewMemberResponse(m))
}

// GetMember handles GET /members/{memberID}
// @Summary Retrieve a member
// @Tags Members
// @Produce json
// @Param memberID path int true "Member ID" Minimum(1)
// @Success 200 {object} dto.MemberResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/members/{memberID} [get]
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewMemberResponse(m))
}

// ListMembers handles GET /members
// @Summary List members
// @Tags Members
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PageResponse[dto.MemberResponse]
// @Router /api/members [get]
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r, h.paging)
	page, err := h.service.ListMembers(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPageResponse(page, params, dto.NewMemberResponse))
}

// DeleteMember handles DELETE /members/{memberID}. The member's loans go with it.
// @Summary Delete a member and their loans
// @Tags Members
// @Param memberID path int true "Member ID" Minimum(1)
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/members/{memberID} [delete]
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteMember(r.Context(), memberID); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}
