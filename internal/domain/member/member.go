package member

import "time"

// Member is a library member. MembershipDate is assigned by the store at
// creation and never changes afterwards.
type Member struct {
	ID             int64
	UserID         int64
	User           *User
	MembershipDate time.Time
}
