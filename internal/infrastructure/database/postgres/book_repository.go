package postgres

import (
	"context"
	"fmt"
	"library-system/internal/domain/catalog"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
)

type BookRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ catalog.BookRepository = (*BookRepository)(nil)

func NewBookRepository(db DBPool, logger *slog.Logger) *BookRepository {
	if db == nil {
		panic("DBPool cannot be nil for BookRepository")
	}
	return &BookRepository{db: db, logger: logger.With("component", "BookRepository")}
}

const bookSelect = `
        SELECT b.id, b.title, b.isbn, b.genre, b.available_copies, b.created_at,
               a.id, a.first_name, a.last_name, a.biography, a.created_at
        FROM books b
        JOIN authors a ON a.id = b.author_id`

func scanBook(row pgx.Row) (*catalog.Book, error) {
	var b catalog.Book
	var a catalog.Author
	var genre string
	if err := row.Scan(&b.ID, &b.Title, &b.ISBN, &genre, &b.AvailableCopies, &b.CreatedAt,
		&a.ID, &a.FirstName, &a.LastName, &a.Biography, &a.CreatedAt); err != nil {
		return nil, err
	}
	b.Genre = catalog.Genre(genre)
	b.AuthorID = a.ID
	b.Author = &a
	return &b, nil
}

func (r *BookRepository) CreateBook(ctx context.Context, book *catalog.Book) error {
	query := `
        INSERT INTO books (title, author_id, isbn, genre, available_copies)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	start := time.Now()
	err := r.db.QueryRow(ctx, query, book.Title, book.AuthorID, book.ISBN, string(book.Genre), book.AvailableCopies).
		Scan(&book.ID, &book.CreatedAt)
	observe("create_book", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *BookRepository) FindBookByID(ctx context.Context, bookID int64) (*catalog.Book, error) {
	start := time.Now()
	book, err := scanBook(r.db.QueryRow(ctx, bookSelect+` WHERE b.id = $1`, bookID))
	observe("find_book", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "book", bookID)
	}
	return book, nil
}

func bookListDataset(filter catalog.BookFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("books").As("b")).Prepared(true).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.isbn"), goqu.I("b.genre"), goqu.I("b.available_copies"), goqu.I("b.created_at"),
			goqu.I("a.id"), goqu.I("a.first_name"), goqu.I("a.last_name"), goqu.I("a.biography"), goqu.I("a.created_at"),
		).
		Order(goqu.I("b.id").Asc())

	if filter.Genre != "" {
		ds = ds.Where(goqu.I("b.genre").Eq(string(filter.Genre)))
	}
	if filter.AuthorLastName != "" {
		ds = ds.Where(goqu.I("a.last_name").ILike(filter.AuthorLastName))
	}
	return ds
}

func (r *BookRepository) ListBooks(ctx context.Context, filter catalog.BookFilter, page pagination.Params) (pagination.Page[catalog.Book], error) {
	var res pagination.Page[catalog.Book]
	ds := bookListDataset(filter)

	total, err := countAndPage(ctx, r.db, ds, "list_books")
	if err != nil {
		return res, err
	}
	res.Total = total

	query, args, err := ds.Limit(page.Limit()).Offset(page.Offset()).ToSQL()
	if err != nil {
		return res, fmt.Errorf("%w: build book list: %w", apperrors.ErrInternalServer, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	observe("list_books", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list books", slog.Any("error", err))
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	res.Items = make([]catalog.Book, 0, page.Limit())
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		res.Items = append(res.Items, *b)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return res, nil
}

func (r *BookRepository) UpdateBook(ctx context.Context, book *catalog.Book) error {
	query := `
        UPDATE books
        SET title = $1, author_id = $2, isbn = $3, genre = $4, available_copies = $5
        WHERE id = $6`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, book.Title, book.AuthorID, book.ISBN, string(book.Genre), book.AvailableCopies, book.ID)
	observe("update_book", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book with ID %d not found", apperrors.ErrNotFound, book.ID)
	}
	return nil
}

func (r *BookRepository) DeleteBook(ctx context.Context, bookID int64) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	observe("delete_book", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book with ID %d not found", apperrors.ErrNotFound, bookID)
	}
	return nil
}
