package conversation

import (
	"fmt"
	"strings"
)

const timeLayout = "2006-01-02 15:04:05"

// RoleOf resolves the effective role of a comment. The staff flag wins over
// whatever role string upstream attached to the record.
func RoleOf(c RawComment) string {
	if c.Staff {
		return RoleService
	}
	switch c.Role {
	case RoleCustomer, RoleService, RoleSystem:
		return c.Role
	}
	return c.Role
}

// roleLabel maps a role to its transcript display name.
func roleLabel(role string) string {
	switch role {
	case RoleCustomer:
		return "客户"
	case RoleService:
		return "客服"
	case RoleSystem:
		return "系统"
	case "":
		return "未知"
	}
	return role
}

// Build assembles an ordered comment list into a Session. Comments are
// expected in chronological order; session bounds are the first and last
// timestamps. An empty input yields a zero-valued session with an empty
// transcript; callers treat that as "nothing to analyze", not an error.
func Build(workID int64, comments []RawComment) *Session {
	s := &Session{WorkID: workID}
	if len(comments) == 0 {
		return s
	}

	s.Comments = comments
	s.TotalMessages = len(comments)
	s.StartTime = comments[0].Timestamp
	s.EndTime = comments[len(comments)-1].Timestamp

	var lines []string
	for _, c := range comments {
		role := RoleOf(c)
		switch role {
		case RoleCustomer:
			s.CustomerMessages++
		case RoleService:
			s.ServiceMessages++
		case RoleSystem:
			s.SystemMessages++
		}
		lines = append(lines, TranscriptLine(c))
	}
	s.Transcript = strings.Join(lines, "\n")

	return s
}

// TranscriptLine renders one comment as a "[timestamp] role(name): text" line.
func TranscriptLine(c RawComment) string {
	display := roleLabel(RoleOf(c))
	if c.Name != "" {
		display = fmt.Sprintf("%s(%s)", display, c.Name)
	}
	if c.Timestamp.IsZero() {
		return fmt.Sprintf("%s: %s", display, c.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", c.Timestamp.Format(timeLayout), display, c.Text)
}

// Rendering returns the "role(name): text" form without the timestamp,
// used by evidence entries for human-readable highlighting.
func Rendering(c RawComment) string {
	display := roleLabel(RoleOf(c))
	if c.Name != "" {
		display = fmt.Sprintf("%s(%s)", display, c.Name)
	}
	return fmt.Sprintf("%s: %s", display, c.Text)
}
