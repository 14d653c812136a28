package graph

import (
	"fmt"
	"strings"
)

// TypeQuery scopes a graph query to one resource type, optionally narrowed
// to a single subscription. Immutable once built; the type match relies on
// the server's case-insensitive `=~` operator.
type TypeQuery struct {
	ResourceType   string
	SubscriptionID string
}

func (q TypeQuery) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resources | where type =~ %s", quote(q.ResourceType))
	if q.SubscriptionID != "" {
		fmt.Fprintf(&b, " | where subscriptionId == %s", quote(q.SubscriptionID))
	}
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
