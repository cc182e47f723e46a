package workflow

import (
	"fmt"
	"strings"
)

// ApprovalToken is the reply with which the review agent approves the project.
const ApprovalToken = "LGTM"

// ReviewMatch decides how ApprovalToken is recognized in a review reply.
type ReviewMatch string

const (
	// ReviewExact approves only when the trimmed reply is the token itself.
	ReviewExact ReviewMatch = "exact"
	// ReviewContains approves whenever the token appears in the reply.
	ReviewContains ReviewMatch = "contains"
)

// ParseReviewMatch converts a configuration value; empty means ReviewExact.
func ParseReviewMatch(s string) (ReviewMatch, error) {
	switch ReviewMatch(s) {
	case "", ReviewExact:
		return ReviewExact, nil
	case ReviewContains:
		return ReviewContains, nil
	default:
		return "", fmt.Errorf("unknown review match mode %q", s)
	}
}

// Approved reports whether reply approves the project.
func (m ReviewMatch) Approved(reply string) bool {
	if m == ReviewContains {
		return strings.Contains(reply, ApprovalToken)
	}
	return strings.TrimSpace(reply) == ApprovalToken
}
