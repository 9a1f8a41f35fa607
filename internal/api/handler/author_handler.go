package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/catalog"
	"log/slog"
	"net/http"
)

type AuthorHandler struct {
	service catalog.CatalogService
	paging  config.PaginationConfig
	logger  *slog.Logger
}

func NewAuthorHandler(s catalog.CatalogService, paging config.PaginationConfig, l *slog.Logger) *AuthorHandler {
	if s == nil {
		panic("catalog service cannot be nil")
	}
	return &AuthorHandler{
		service: s,
		paging:  paging,
		logger:  l.With("component", "AuthorHandler"),
	}
}

// CreateAuthor handles POST /authors
// @Summary Create an author
// @Tags Authors
// @Accept json
// @Produce json
// @Param request body dto.AuthorRequest true "Author payload"
// @Success 201 {object} dto.AuthorResponse
// @Failure 400 {object} dto.ErrorResponse "Missing or blank name"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/authors [post]
func (h *AuthorHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req dto.AuthorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid author request", slog.Any("error", err))
		respondError(w, err)
		return
	}

	author, err := h.service.CreateAuthor(r.Context(), req.FirstName, req.LastName, req.Biography)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewAuthorResponse(author))
}

// GetAuthor handles GET /authors/{authorID}
// @Summary Retrieve an author
// @Tags Authors
// @Produce json
// @Param authorID path int true "Author ID" Minimum(1)
// @Success 200 {object} dto.AuthorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/authors/{authorID} [get]
func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "authorID")
	if err != nil {
		respondError(w, err)
		return
	}

	author, err := h.service.GetAuthor(r.Context(), authorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAuthorResponse(author))
}

// ListAuthors handles GET /authors
// @Summary List authors
// @Tags Authors
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PageResponse[dto.AuthorResponse]
// @Router /api/authors [get]
func (h *AuthorHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r, h.paging)
	page, err := h.service.ListAuthors(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPageResponse(page, params, dto.NewAuthorResponse))
}

// UpdateAuthor handles PUT /authors/{authorID}
// @Summary Replace an author
// @Tags Authors
// @Accept json
// @Produce json
// @Param authorID path int true "Author ID" Minimum(1)
// @Param request body dto.AuthorRequest true "Author payload"
// @Success 200 {object} dto.AuthorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/authors/{authorID} [put]
func (h *AuthorHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "authorID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.AuthorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	author, err := h.service.UpdateAuthor(r.Context(), authorID, req.FirstName, req.LastName, req.Biography)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAuthorResponse(author))
}

// DeleteAuthor handles DELETE /authors/{authorID}. The author's books go with it.
// @Summary Delete an author and their books
// @Tags Authors
// @Param authorID path int true "Author ID" Minimum(1)
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/authors/{authorID} [delete]
func (h *AuthorHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "authorID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteAuthor(r.Context(), authorID); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}
