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
)

type AuthorRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ catalog.AuthorRepository = (*AuthorRepository)(nil)

func NewAuthorRepository(db DBPool, logger *slog.Logger) *AuthorRepository {
	if db == nil {
		panic("DBPool cannot be nil for AuthorRepository")
	}
	return &AuthorRepository{db: db, logger: logger.With("component", "AuthorRepository")}
}

func (r *AuthorRepository) CreateAuthor(ctx context.Context, author *catalog.Author) error {
	query := `
        INSERT INTO authors (first_name, last_name, biography)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	start := time.Now()
	err := r.db.QueryRow(ctx, query, author.FirstName, author.LastName, author.Biography).
		Scan(&author.ID, &author.CreatedAt)
	observe("create_author", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert author", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *AuthorRepository) FindAuthorByID(ctx context.Context, authorID int64) (*catalog.Author, error) {
	query := `SELECT id, first_name, last_name, biography, created_at FROM authors WHERE id = $1`

	var a catalog.Author
	start := time.Now()
	err := r.db.QueryRow(ctx, query, authorID).Scan(&a.ID, &a.FirstName, &a.LastName, &a.Biography, &a.CreatedAt)
	observe("find_author", start, err)
	if err != nil {
		return nil, lookupError(err, r.logger, "author", authorID)
	}
	return &a, nil
}

func (r *AuthorRepository) ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[catalog.Author], error) {
	var res pagination.Page[catalog.Author]

	ds := dialect.From("authors").Prepared(true).
		Select("id", "first_name", "last_name", "biography", "created_at").
		Order(goqu.C("id").Asc())

	total, err := countAndPage(ctx, r.db, ds, "list_authors")
	if err != nil {
		return res, err
	}
	res.Total = total

	query, args, err := ds.Limit(page.Limit()).Offset(page.Offset()).ToSQL()
	if err != nil {
		return res, fmt.Errorf("%w: build author list: %w", apperrors.ErrInternalServer, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	observe("list_authors", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list authors", slog.Any("error", err))
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	res.Items = make([]catalog.Author, 0, page.Limit())
	for rows.Next() {
		var a catalog.Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Biography, &a.CreatedAt); err != nil {
			return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		res.Items = append(res.Items, a)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return res, nil
}

func (r *AuthorRepository) UpdateAuthor(ctx context.Context, author *catalog.Author) error {
	query := `UPDATE authors SET first_name = $1, last_name = $2, biography = $3 WHERE id = $4`

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, author.FirstName, author.LastName, author.Biography, author.ID)
	observe("update_author", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: author with ID %d not found", apperrors.ErrNotFound, author.ID)
	}
	return nil
}

func (r *AuthorRepository) DeleteAuthor(ctx context.Context, authorID int64) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM authors WHERE id = $1`, authorID)
	observe("delete_author", start, err)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: author with ID %d not found", apperrors.ErrNotFound, authorID)
	}
	return nil
}
