package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/config"
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/loan"
	"log/slog"
	"net/http"
)

// BookHandler serves the catalog's books together with the loan and return
// actions that operate on one book.
type BookHandler struct {
	catalog catalog.CatalogService
	loans   loan.LoanService
	paging  config.PaginationConfig
	logger  *slog.Logger
}

func NewBookHandler(c catalog.CatalogService, loans loan.LoanService, paging config.PaginationConfig, l *slog.Logger) *BookHandler {
	if c == nil || loans == nil {
		panic("book handler services cannot be nil")
	}
	return &BookHandler{
		catalog: c,
		loans:   loans,
		paging:  paging,
		logger:  l.With("component", "BookHandler"),
	}
}

// CreateBook handles POST /books
// @Summary Create a book
// @Description available_copies defaults to 1 when omitted.
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.BookRequest true "Book payload"
// @Success 201 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid genre, blank title or unknown author"
// @Failure 409 {object} dto.ErrorResponse "Duplicate ISBN"
// @Router /api/books [post]
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req dto.BookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid book request", slog.Any("error", err))
		respondError(w, err)
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), req.Title, req.ISBN, catalog.Genre(req.Genre), req.Copies(), req.AuthorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewBookResponse(book))
}

// GetBook handles GET /books/{bookID}
// @Summary Retrieve a book
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID" Minimum(1)
// @Success 200 {object} dto.BookResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/books/{bookID} [get]
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	book, err := h.catalog.GetBook(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBookResponse(book))
}

// ListBooks handles GET /books
// @Summary List books
// @Tags Books
// @Produce json
// @Param genre query string false "Genre filter"
// @Param author_last_name query string false "Exact author last name, case-insensitive"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PageResponse[dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse "Unknown genre"
// @Router /api/books [get]
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.BookFilter{
		Genre:          catalog.Genre(q.Get("genre")),
		AuthorLastName: q.Get("author_last_name"),
	}
	if filter.AuthorLastName == "" {
		filter.AuthorLastName = q.Get("author__last_name")
	}

	params := pageParams(r, h.paging)
	page, err := h.catalog.ListBooks(r.Context(), filter, params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPageResponse(page, params, dto.NewBookResponse))
}

// UpdateBook handles PUT /books/{bookID}
// @Summary Replace a book
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID" Minimum(1)
// @Param request body dto.BookRequest true "Book payload"
// @Success 200 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/books/{bookID} [put]
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.BookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	book, err := h.catalog.UpdateBook(r.Context(), bookID, req.Title, req.ISBN, catalog.Genre(req.Genre), req.Copies(), req.AuthorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBookResponse(book))
}

// DeleteBook handles DELETE /books/{bookID}
// @Summary Delete a book
// @Tags Books
// @Param bookID path int true "Book ID" Minimum(1)
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/books/{bookID} [delete]
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.catalog.DeleteBook(r.Context(), bookID); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}

// LoanBook handles POST /books/{bookID}/loan
// @Summary Loan a book to a member
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID" Minimum(1)
// @Param request body dto.BookLoanRequest true "Borrowing member"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "No available copies or unknown member"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /api/books/{bookID}/loan [post]
// @Security BearerAuth
func (h *BookHandler) LoanBook(w http.ResponseWriter, r *http.Request) {
	bookID, req, ok := h.bookAction(w, r)
	if !ok {
		return
	}

	created, err := h.loans.CreateLoan(r.Context(), bookID, req.MemberID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(reloadLoan(r, h.loans, created, h.logger)))
}

// ReturnBook handles POST /books/{bookID}/return
// @Summary Return a loaned book
// @Description Closes the member's earliest open loan of this book.
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID" Minimum(1)
// @Param request body dto.BookLoanRequest true "Returning member"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "No active loan for this member"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /api/books/{bookID}/return [post]
// @Security BearerAuth
func (h *BookHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	bookID, req, ok := h.bookAction(w, r)
	if !ok {
		return
	}

	returned, err := h.loans.ReturnLoan(r.Context(), bookID, req.MemberID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(reloadLoan(r, h.loans, returned, h.logger)))
}

func (h *BookHandler) bookAction(w http.ResponseWriter, r *http.Request) (int64, dto.BookLoanRequest, bool) {
	var req dto.BookLoanRequest
	bookID, err := pathID(r, "bookID")
	if err == nil {
		err = decodeAndValidate(r, &req)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid book action request", slog.Any("error", err))
		respondError(w, err)
		return 0, req, false
	}
	return bookID, req, true
}
