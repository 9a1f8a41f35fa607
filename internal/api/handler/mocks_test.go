package handler

import (
	"bytes"
	"context"
	"io"
	"library-system/internal/config"
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/loan"
	"library-system/internal/domain/member"
	"library-system/internal/domain/report"
	"library-system/internal/pkg/pagination"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

var testPaging = config.PaginationConfig{DefaultPageSize: 10, MaxPageSize: 100}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRequest builds a request carrying chi URL params given as key, value pairs.
func newRequest(method, target, body string, params ...string) *http.Request {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](rec *httptest.ResponseRecorder) (T, error) {
	var out T
	err := json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&out)
	return out, err
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateAuthor(ctx context.Context, firstName, lastName, biography string) (*catalog.Author, error) {
	args := m.Called(ctx, firstName, lastName, biography)
	a, _ := args.Get(0).(*catalog.Author)
	return a, args.Error(1)
}

func (m *MockCatalogService) GetAuthor(ctx context.Context, authorID int64) (*catalog.Author, error) {
	args := m.Called(ctx, authorID)
	a, _ := args.Get(0).(*catalog.Author)
	return a, args.Error(1)
}

func (m *MockCatalogService) ListAuthors(ctx context.Context, page pagination.Params) (pagination.Page[catalog.Author], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(pagination.Page[catalog.Author]), args.Error(1)
}

func (m *MockCatalogService) UpdateAuthor(ctx context.Context, authorID int64, firstName, lastName, biography string) (*catalog.Author, error) {
	args := m.Called(ctx, authorID, firstName, lastName, biography)
	a, _ := args.Get(0).(*catalog.Author)
	return a, args.Error(1)
}

func (m *MockCatalogService) DeleteAuthor(ctx context.Context, authorID int64) error {
	return m.Called(ctx, authorID).Error(0)
}

func (m *MockCatalogService) CreateBook(ctx context.Context, title, isbn string, genre catalog.Genre, availableCopies int, authorID int64) (*catalog.Book, error) {
	args := m.Called(ctx, title, isbn, genre, availableCopies, authorID)
	b, _ := args.Get(0).(*catalog.Book)
	return b, args.Error(1)
}

func (m *MockCatalogService) GetBook(ctx context.Context, bookID int64) (*catalog.Book, error) {
	args := m.Called(ctx, bookID)
	b, _ := args.Get(0).(*catalog.Book)
	return b, args.Error(1)
}

func (m *MockCatalogService) ListBooks(ctx context.Context, filter catalog.BookFilter, page pagination.Params) (pagination.Page[catalog.Book], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[catalog.Book]), args.Error(1)
}

func (m *MockCatalogService) UpdateBook(ctx context.Context, bookID int64, title, isbn string, genre catalog.Genre, availableCopies int, authorID int64) (*catalog.Book, error) {
	args := m.Called(ctx, bookID, title, isbn, genre, availableCopies, authorID)
	b, _ := args.Get(0).(*catalog.Book)
	return b, args.Error(1)
}

func (m *MockCatalogService) DeleteBook(ctx context.Context, bookID int64) error {
	return m.Called(ctx, bookID).Error(0)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, bookID, memberID int64) (*loan.Loan, error) {
	args := m.Called(ctx, bookID, memberID)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) ReturnLoan(ctx context.Context, bookID, memberID int64) (*loan.Loan, error) {
	args := m.Called(ctx, bookID, memberID)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) ExtendDueDate(ctx context.Context, loanID int64, additionalDays int) (*loan.Loan, error) {
	args := m.Called(ctx, loanID, additionalDays)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, filter loan.Filter, page pagination.Params) (pagination.Page[loan.Loan], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[loan.Loan]), args.Error(1)
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, loanID int64) error {
	return m.Called(ctx, loanID).Error(0)
}

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) RegisterUser(ctx context.Context, username, email, password string) (*member.User, error) {
	args := m.Called(ctx, username, email, password)
	u, _ := args.Get(0).(*member.User)
	return u, args.Error(1)
}

func (m *MockMemberService) GetUser(ctx context.Context, userID int64) (*member.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*member.User)
	return u, args.Error(1)
}

func (m *MockMemberService) Authenticate(ctx context.Context, username, password string) (*member.User, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*member.User)
	return u, args.Error(1)
}

func (m *MockMemberService) CreateMember(ctx context.Context, userID int64) (*member.Member, error) {
	args := m.Called(ctx, userID)
	mb, _ := args.Get(0).(*member.Member)
	return mb, args.Error(1)
}

func (m *MockMemberService) GetMember(ctx context.Context, memberID int64) (*member.Member, error) {
	args := m.Called(ctx, memberID)
	mb, _ := args.Get(0).(*member.Member)
	return mb, args.Error(1)
}

func (m *MockMemberService) ListMembers(ctx context.Context, page pagination.Params) (pagination.Page[member.Member], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(pagination.Page[member.Member]), args.Error(1)
}

func (m *MockMemberService) DeleteMember(ctx context.Context, memberID int64) error {
	return m.Called(ctx, memberID).Error(0)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) TopActiveMembers(ctx context.Context, limit int) ([]report.MemberActivity, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]report.MemberActivity)
	return rows, args.Error(1)
}
