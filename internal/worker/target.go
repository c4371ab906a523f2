package worker

import (
	"net/url"
	"strings"
)

// AllowList enforces ALLOWED_TARGET_HOSTS (spec.md §4.4 step 2): a
// comma-separated list where "*.domain" matches domain and any subdomain.
// An empty AllowList permits every host.
type AllowList struct {
	exact      map[string]bool
	wildcarded []string
}

// NewAllowList parses ALLOWED_TARGET_HOSTS's raw env value.
func NewAllowList(raw string) AllowList {
	al := AllowList{exact: make(map[string]bool)}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "*.") {
			al.wildcarded = append(al.wildcarded, strings.TrimPrefix(entry, "*."))
		} else {
			al.exact[entry] = true
		}
	}
	return al
}

// Empty reports whether the allow-list has no entries (permit-all).
func (al AllowList) Empty() bool {
	return len(al.exact) == 0 && len(al.wildcarded) == 0
}

// Allows reports whether host is permitted.
func (al AllowList) Allows(host string) bool {
	if al.Empty() {
		return true
	}
	if al.exact[host] {
		return true
	}
	for _, domain := range al.wildcarded {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// ValidateTarget checks target is a well-formed http(s) URL whose host is
// permitted by allowList. Returns a ClassifiedError on violation.
func ValidateTarget(target string, allowList AllowList) error {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return classify(ClassValidation, &targetError{target: target, reason: "not a valid URL"})
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return classify(ClassValidation, &targetError{target: target, reason: "scheme must be http or https"})
	}
	if !allowList.Allows(u.Hostname()) {
		return classify(ClassUnauthorizedTarget, &targetError{target: target, reason: "host not in ALLOWED_TARGET_HOSTS"})
	}
	return nil
}

type targetError struct {
	target string
	reason string
}

func (e *targetError) Error() string {
	return "target " + e.target + ": " + e.reason
}
