package catalog

import (
	"context"
	"library-system/internal/pkg/pagination"
)

type AuthorRepository interface {
	CreateAuthor(ctx context.Context, author *Author) error

	FindAuthorByID(ctx context.Context, authorID int64) (*Author, error)

	ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[Author], error)

	UpdateAuthor(ctx context.Context, author *Author) error

	// DeleteAuthor removes the author; the schema cascades the delete to its books.
	DeleteAuthor(ctx context.Context, authorID int64) error
}

type BookRepository interface {
	CreateBook(ctx context.Context, book *Book) error

	FindBookByID(ctx context.Context, bookID int64) (*Book, error)

	ListBooks(ctx context.Context, filter BookFilter, page pagination.Params) (pagination.Page[Book], error)

	UpdateBook(ctx context.Context, book *Book) error

	DeleteBook(ctx context.Context, bookID int64) error
}
