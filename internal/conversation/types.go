package conversation

import "time"

// Role labels used throughout the pipeline. Comments carry a free-text role
// string from upstream, but the staff flag is authoritative for "service".
const (
	RoleCustomer = "customer"
	RoleService  = "service"
	RoleSystem   = "system"
)

// RawComment is one message of a work-order thread as delivered by the
// retrieval collaborator. Immutable.
type RawComment struct {
	ID        int64     `json:"id"`
	Role      string    `json:"user_type"`
	Name      string    `json:"name"`
	Text      string    `json:"content"`
	Timestamp time.Time `json:"create_time"`
	Staff     bool      `json:"oper"`
}

// Session is the derived aggregate for one work order's conversation.
// Built fresh per analysis run, never persisted directly.
type Session struct {
	WorkID           int64
	Comments         []RawComment
	TotalMessages    int
	CustomerMessages int
	ServiceMessages  int
	SystemMessages   int
	StartTime        time.Time
	EndTime          time.Time
	Transcript       string
}

// Empty reports whether the session has no content to analyze.
func (s *Session) Empty() bool {
	return s.TotalMessages == 0
}
