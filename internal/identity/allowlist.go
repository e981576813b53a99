// Package identity gates access to the planner. A third-party provider
// (Google OAuth or a Firebase ID token) proves who the user is; the Gate
// checks the email allow-list, upserts the user's profile and issues a
// server-side session carried in a signed cookie token.
package identity

import "strings"

// AllowList is the set of emails permitted to sign in. Matching ignores
// case and surrounding whitespace.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an allow-list from individual addresses.
func NewAllowList(emails ...string) AllowList {
	l := AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			l.emails[e] = struct{}{}
		}
	}
	return l
}

// Allows reports whether email may sign in. An empty email is never
// allowed, and neither is anyone when the list is empty.
func (l AllowList) Allows(email string) bool {
	e := normalizeEmail(email)
	if e == "" {
		return false
	}
	_, ok := l.emails[e]
	return ok
}

// Len returns the number of distinct addresses on the list.
func (l AllowList) Len() int {
	return len(l.emails)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
