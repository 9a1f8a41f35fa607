package dto

import "library-system/internal/domain/report"

type ActiveMemberResponse struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	MembershipDate string `json:"membership_date"`
	LoanCount      int64  `json:"loan_count"`
}

func NewActiveMembersResponse(rows []report.MemberActivity) []ActiveMemberResponse {
	out := make([]ActiveMemberResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActiveMemberResponse{
			ID:             row.MemberID,
			UserID:         row.UserID,
			Username:       row.Username,
			Email:          row.Email,
			MembershipDate: formatDate(row.MembershipDate),
			LoanCount:      row.LoanCount,
		})
	}
	return out
}
