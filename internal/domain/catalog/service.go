package catalog

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"strings"
)

type CatalogService interface {
	CreateAuthor(ctx context.Context, firstName, lastName, biography string) (*Author, error)
	GetAuthor(ctx context.Context, authorID int64) (*Author, error)
	ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[Author], error)
	UpdateAuthor(ctx context.Context, authorID int64, firstName, lastName, biography string) (*Author, error)
	DeleteAuthor(ctx context.Context, authorID int64) error

	CreateBook(ctx context.Context, title, isbn string, genre Genre, availableCopies int, authorID int64) (*Book, error)
	GetBook(ctx context.Context, bookID int64) (*Book, error)
	ListBooks(ctx context.Context, filter BookFilter, page pagination.Params) (pagination.Page[Book], error)
	UpdateBook(ctx context.Context, bookID int64, title, isbn string, genre Genre, availableCopies int, authorID int64) (*Book, error)
	DeleteBook(ctx context.Context, bookID int64) error
}

var _ CatalogService = (*catalogService)(nil)

type catalogService struct {
	authors AuthorRepository
	books   BookRepository
	logger  *slog.Logger
}

func NewCatalogService(authors AuthorRepository, books BookRepository, logger *slog.Logger) CatalogService {
	if authors == nil || books == nil {
		panic("catalog repositories cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		authors: authors,
		books:   books,
		logger:  logger.With(slog.String("component", "catalogService")),
	}
}

func (s *catalogService) CreateAuthor(ctx context.Context, firstName, lastName, biography string) (*Author, error) {
	author, err := NewAuthor(firstName, lastName, biography)
	if err != nil {
		s.logger.WarnContext(ctx, "Author validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.authors.CreateAuthor(ctx, author); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save author", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save author: %w", err)
	}

	s.logger.InfoContext(ctx, "Author created", slog.Int64("authorID", author.ID))
	return author, nil
}

func (s *catalogService) GetAuthor(ctx context.Context, authorID int64) (*Author, error) {
	author, err := s.authors.FindAuthorByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Author not found", slog.Int64("authorID", authorID))
		}
		return nil, err
	}
	return author, nil
}

func (s *catalogService) ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[Author], error) {
	return s.authors.ListAuthors(ctx, page)
}

func (s *catalogService) UpdateAuthor(ctx context.Context, authorID int64, firstName, lastName, biography string) (*Author, error) {
	updated, err := NewAuthor(firstName, lastName, biography)
	if err != nil {
		return nil, err
	}

	current, err := s.authors.FindAuthorByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	current.FirstName = updated.FirstName
	current.LastName = updated.LastName
	current.Biography = updated.Biography

	if err := s.authors.UpdateAuthor(ctx, current); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update author", slog.Int64("authorID", authorID), slog.Any("error", err))
		return nil, err
	}
	return current, nil
}

func (s *catalogService) DeleteAuthor(ctx context.Context, authorID int64) error {
	if err := s.authors.DeleteAuthor(ctx, authorID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Author deleted with their books", slog.Int64("authorID", authorID))
	return nil
}

func (s *catalogService) CreateBook(ctx context.Context, title, isbn string, genre Genre, availableCopies int, authorID int64) (*Book, error) {
	book, err := NewBook(title, isbn, genre, availableCopies, authorID)
	if err != nil {
		s.logger.WarnContext(ctx, "Book validation failed", slog.Any("error", err))
		return nil, err
	}

	author, err := s.authorForBook(ctx, authorID)
	if err != nil {
		return nil, err
	}
	book.Author = author

	if err := s.books.CreateBook(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save book", slog.String("isbn", book.ISBN), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Book created", slog.Int64("bookID", book.ID), slog.Int64("authorID", authorID))
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	return s.books.FindBookByID(ctx, bookID)
}

func (s *catalogService) ListBooks(ctx context.Context, filter BookFilter, page pagination.Params) (pagination.Page[Book], error) {
	filter.AuthorLastName = strings.TrimSpace(filter.AuthorLastName)
	if filter.Genre != "" && !filter.Genre.Valid() {
		return pagination.Page[Book]{}, apperrors.NewValidationError("genre", fmt.Sprintf("\"%s\" is not a valid choice.", filter.Genre))
	}
	return s.books.ListBooks(ctx, filter, page)
}

func (s *catalogService) UpdateBook(ctx context.Context, bookID int64, title, isbn string, genre Genre, availableCopies int, authorID int64) (*Book, error) {
	updated, err := NewBook(title, isbn, genre, availableCopies, authorID)
	if err != nil {
		return nil, err
	}

	author, err := s.authorForBook(ctx, authorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.books.FindBookByID(ctx, bookID); err != nil {
		return nil, err
	}
	updated.ID = bookID
	updated.Author = author

	if err := s.books.UpdateBook(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update book", slog.Int64("bookID", bookID), slog.Any("error", err))
		return nil, err
	}
	return updated, nil
}

func (s *catalogService) DeleteBook(ctx context.Context, bookID int64) error {
	if err := s.books.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Book deleted", slog.Int64("bookID", bookID))
	return nil
}

// authorForBook resolves the author a book points at; a dangling id is a field error, not a 404.
func (s *catalogService) authorForBook(ctx context.Context, authorID int64) (*Author, error) {
	author, err := s.authors.FindAuthorByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("author_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", authorID))
		}
		return nil, err
	}
	return author, nil
}
