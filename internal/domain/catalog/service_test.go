package catalog

import (
	"context"
	"errors"
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

type MockAuthorRepository struct {
	mock.Mock
}

func (m *MockAuthorRepository) CreateAuthor(ctx context.Context, author *Author) error {
	args := m.Called(ctx, author)
	return args.Error(0)
}

func (m *MockAuthorRepository) FindAuthorByID(ctx context.Context, authorID int64) (*Author, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Author), args.Error(1)
}

func (m *MockAuthorRepository) ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[Author], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(pagination.Page[Author]), args.Error(1)
}

func (m *MockAuthorRepository) UpdateAuthor(ctx context.Context, author *Author) error {
	args := m.Called(ctx, author)
	return args.Error(0)
}

func (m *MockAuthorRepository) DeleteAuthor(ctx context.Context, authorID int64) error {
	args := m.Called(ctx, authorID)
	return args.Error(0)
}

type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) CreateBook(ctx context.Context, book *Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepository) FindBookByID(ctx context.Context, bookID int64) (*Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Book), args.Error(1)
}

func (m *MockBookRepository) ListBooks(ctx context.Context, filter BookFilter, page pagination.Params) (pagination.Page[Book], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[Book]), args.Error(1)
}

func (m *MockBookRepository) UpdateBook(ctx context.Context, book *Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepository) DeleteBook(ctx context.Context, bookID int64) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}

func newTestService() (*MockAuthorRepository, *MockBookRepository, CatalogService) {
	authors := new(MockAuthorRepository)
	books := new(MockBookRepository)
	return authors, books, NewCatalogService(authors, books, logger)
}

func TestCreateAuthor(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		authors, _, svc := newTestService()
		authors.On("CreateAuthor", ctx, mock.MatchedBy(func(a *Author) bool {
			return a.FirstName == "John" && a.LastName == "Doe" && a.Biography == "Test author biography"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*Author).ID = 7
		}).Return(nil).Once()

		author, err := svc.CreateAuthor(ctx, " John ", "Doe", "Test author biography")

		require.NoError(t, err)
		assert.Equal(t, int64(7), author.ID)
		authors.AssertExpectations(t)
	})

	t.Run("Blank names", func(t *testing.T) {
		authors, _, svc := newTestService()

		author, err := svc.CreateAuthor(ctx, "", "", "")

		assert.Nil(t, author)
		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "first_name", vErr.Field)
		authors.AssertNotCalled(t, "CreateAuthor", mock.Anything, mock.Anything)
	})

	t.Run("Repository failure", func(t *testing.T) {
		authors, _, svc := newTestService()
		dbErr := errors.New("connection refused")
		authors.On("CreateAuthor", ctx, mock.Anything).Return(dbErr).Once()

		_, err := svc.CreateAuthor(ctx, "Jane", "Smith", "")

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestGetAuthorNotFound(t *testing.T) {
	ctx := context.Background()
	authors, _, svc := newTestService()
	authors.On("FindAuthorByID", ctx, int64(999)).Return(nil, apperrors.ErrNotFound).Once()

	author, err := svc.GetAuthor(ctx, 999)

	assert.Nil(t, author)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateAuthor(t *testing.T) {
	ctx := context.Background()
	authors, _, svc := newTestService()
	existing := &Author{ID: 3, FirstName: "Old", LastName: "Name"}
	authors.On("FindAuthorByID", ctx, int64(3)).Return(existing, nil).Once()
	authors.On("UpdateAuthor", ctx, existing).Return(nil).Once()

	author, err := svc.UpdateAuthor(ctx, 3, "New", "Name", "bio")

	require.NoError(t, err)
	assert.Equal(t, "New", author.FirstName)
	assert.Equal(t, "bio", author.Biography)
	authors.AssertExpectations(t)
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()
	author := &Author{ID: 1, FirstName: "iChux", LastName: "Objects"}

	t.Run("Success", func(t *testing.T) {
		authors, books, svc := newTestService()
		authors.On("FindAuthorByID", ctx, int64(1)).Return(author, nil).Once()
		books.On("CreateBook", ctx, mock.AnythingOfType("*catalog.Book")).Return(nil).Once()

		book, err := svc.CreateBook(ctx, "New Book", "1234567890123", GenreFiction, 1, 1)

		require.NoError(t, err)
		assert.Equal(t, author, book.Author)
		assert.Equal(t, GenreFiction, book.Genre)
		books.AssertExpectations(t)
	})

	t.Run("Invalid genre", func(t *testing.T) {
		_, books, svc := newTestService()

		_, err := svc.CreateBook(ctx, "Invalid Genre Book", "1234567890123", Genre("invalid_genre"), 1, 1)

		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "genre", vErr.Field)
		books.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything)
	})

	t.Run("Negative copies", func(t *testing.T) {
		_, _, svc := newTestService()

		_, err := svc.CreateBook(ctx, "Book", "1234567890123", GenreFiction, -1, 1)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("Unknown author", func(t *testing.T) {
		authors, _, svc := newTestService()
		authors.On("FindAuthorByID", ctx, int64(42)).Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.CreateBook(ctx, "Book", "1234567890123", GenreFiction, 1, 42)

		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "author_id", vErr.Field)
	})

	t.Run("Duplicate isbn", func(t *testing.T) {
		authors, books, svc := newTestService()
		authors.On("FindAuthorByID", ctx, int64(1)).Return(author, nil).Once()
		books.On("CreateBook", ctx, mock.Anything).Return(apperrors.ErrAlreadyExists).Once()

		_, err := svc.CreateBook(ctx, "Book", "1111234567890", GenreBiography, 2, 1)

		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})
}

func TestListBooks(t *testing.T) {
	ctx := context.Background()
	page := pagination.New(1, 10, 10, 100)

	t.Run("Filters are passed through", func(t *testing.T) {
		_, books, svc := newTestService()
		want := pagination.Page[Book]{Items: []Book{{ID: 1, Title: "Dune"}}, Total: 1}
		books.On("ListBooks", ctx, BookFilter{Genre: GenreSciFi, AuthorLastName: "Herbert"}, page).Return(want, nil).Once()

		got, err := svc.ListBooks(ctx, BookFilter{Genre: GenreSciFi, AuthorLastName: "  Herbert "}, page)

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Unknown genre filter", func(t *testing.T) {
		_, books, svc := newTestService()

		_, err := svc.ListBooks(ctx, BookFilter{Genre: "cookbook"}, page)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		books.AssertNotCalled(t, "ListBooks", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateBookNotFound(t *testing.T) {
	ctx := context.Background()
	authors, books, svc := newTestService()
	authors.On("FindAuthorByID", ctx, int64(1)).Return(&Author{ID: 1}, nil).Once()
	books.On("FindBookByID", ctx, int64(5)).Return(nil, apperrors.ErrNotFound).Once()

	_, err := svc.UpdateBook(ctx, 5, "Title", "123", GenrePoetry, 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	books.AssertNotCalled(t, "UpdateBook", mock.Anything, mock.Anything)
}

func TestDeleteAuthorAndBook(t *testing.T) {
	ctx := context.Background()
	authors, books, svc := newTestService()
	authors.On("DeleteAuthor", ctx, int64(1)).Return(nil).Once()
	books.On("DeleteBook", ctx, int64(2)).Return(apperrors.ErrNotFound).Once()

	assert.NoError(t, svc.DeleteAuthor(ctx, 1))
	assert.ErrorIs(t, svc.DeleteBook(ctx, 2), apperrors.ErrNotFound)
}
