package handler

import (
	"library-system/internal/api/handler/dto"
	"library-system/internal/domain/report"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReportHandlerTopActiveMembers(t *testing.T) {
	t.Run("includes members without loans", func(t *testing.T) {
		svc := new(MockReportService)
		h := NewReportHandler(svc, discardLogger())
		svc.On("TopActiveMembers", mock.Anything, 0).Return([]report.MemberActivity{
			{MemberID: 1, Username: "reader", LoanCount: 2},
			{MemberID: 2, Username: "idle", LoanCount: 0},
		}, nil)

		rec := httptest.NewRecorder()
		h.TopActiveMembers(rec, newRequest(http.MethodGet, "/top-active-members", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp, err := decodeBody[[]dto.ActiveMemberResponse](rec)
		require.NoError(t, err)
		require.Len(t, resp, 2)
		assert.Equal(t, int64(2), resp[0].LoanCount)
		assert.Equal(t, int64(0), resp[1].LoanCount)
	})

	t.Run("empty ranking is an empty array", func(t *testing.T) {
		svc := new(MockReportService)
		h := NewReportHandler(svc, discardLogger())
		svc.On("TopActiveMembers", mock.Anything, 5).Return([]report.MemberActivity{}, nil)

		rec := httptest.NewRecorder()
		h.TopActiveMembers(rec, newRequest(http.MethodGet, "/top-active-members?limit=5", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("bad limit", func(t *testing.T) {
		svc := new(MockReportService)
		h := NewReportHandler(svc, discardLogger())

		rec := httptest.NewRecorder()
		h.TopActiveMembers(rec, newRequest(http.MethodGet, "/top-active-members?limit=-1", ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "TopActiveMembers")
	})
}
