// Package validation checks and normalizes user-supplied input before it
// reaches any store. Every function here is pure: nothing is read from or
// written to the workspace.
package validation

import (
	"regexp"
	"strings"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/types"
)

// ULIDLength is the length of a canonical ticket ID.
const ULIDLength = 26

// MinIDPrefix is the shortest ID prefix accepted for lookups.
const MinIDPrefix = 4

// crockford lists the characters a ULID may contain (Crockford base32,
// upper case: no I, L, O or U).
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ValidateTitle trims the title and checks it is non-empty and within
// types.MaxTitleLength.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errcode.New(errcode.InvalidTitle, "validate", "title is required")
	}
	if len(title) > types.MaxTitleLength {
		return "", errcode.New(errcode.InvalidTitle, "validate",
			"title must be %d characters or less (got %d)", types.MaxTitleLength, len(title))
	}
	return title, nil
}

// ValidatePriority accepts a, b, c, z and, when allowUnspecified is set,
// the zero byte.
func ValidatePriority(p types.Priority, allowUnspecified bool) (types.Priority, error) {
	if p == types.PriorityUnspecified {
		if allowUnspecified {
			return p, nil
		}
		return 0, errcode.New(errcode.InvalidPriority, "validate", "priority is required")
	}
	if !p.IsValid() {
		return 0, errcode.New(errcode.InvalidPriority, "validate",
			"invalid priority %q (expected a, b, c or z)", rune(p))
	}
	return p, nil
}

// ParseStatusCode maps a status code (b, t, w, d) to a Status.
func ParseStatusCode(c byte) (types.Status, error) {
	s, ok := types.StatusFromCode(c)
	if !ok {
		return "", errcode.New(errcode.InvalidStatus, "validate",
			"invalid status %q (expected b, t, w or d)", rune(c))
	}
	return s, nil
}

// ParseStatusFilter turns a string of status codes ("bt") into a set.
// Duplicates are dropped; the empty string yields nil (match all).
func ParseStatusFilter(codes string) ([]types.Status, error) {
	var out []types.Status
	seen := make(map[types.Status]bool)
	for i := 0; i < len(codes); i++ {
		s, err := ParseStatusCode(codes[i])
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// ParsePriorityFilter turns a string of priority letters ("ab") into a set.
func ParsePriorityFilter(codes string) ([]types.Priority, error) {
	var out []types.Priority
	seen := make(map[types.Priority]bool)
	for i := 0; i < len(codes); i++ {
		p, err := ValidatePriority(types.Priority(codes[i]), false)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// NormalizeTicketID upper-cases and trims an ID or ID prefix and checks it
// only contains ULID characters. full reports whether the result is a
// complete 26-character ULID.
func NormalizeTicketID(id string) (norm string, full bool, err error) {
	norm = strings.ToUpper(strings.TrimSpace(id))
	if len(norm) < MinIDPrefix || len(norm) > ULIDLength {
		return "", false, errcode.New(errcode.InvalidTicketID, "validate",
			"invalid ticket id %q (expected a ULID or a prefix of at least %d characters)", id, MinIDPrefix)
	}
	for _, r := range norm {
		if !strings.ContainsRune(crockford, r) {
			return "", false, errcode.New(errcode.InvalidTicketID, "validate",
				"invalid ticket id %q (unexpected character %q)", id, r)
		}
	}
	// The first character of a ULID encodes only 3 bits of timestamp.
	if norm[0] > '7' {
		return "", false, errcode.New(errcode.InvalidTicketID, "validate",
			"invalid ticket id %q (timestamp overflow)", id)
	}
	return norm, len(norm) == ULIDLength, nil
}

var remoteNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateRemote checks a remote name and URL.
func ValidateRemote(name, url string) error {
	if !remoteNameRe.MatchString(name) || strings.HasSuffix(name, ".lock") || strings.Contains(name, "..") {
		return errcode.New(errcode.RemoteInvalidName, "validate",
			"invalid remote name %q (letters, digits, '.', '_' and '-' only)", name)
	}
	if strings.TrimSpace(url) == "" {
		return errcode.New(errcode.RemoteInvalidName, "validate", "remote %q needs a url", name)
	}
	return nil
}

// ValidateProjectName applies git's branch naming rules (the subset that
// matters for single-component names plus slashes).
func ValidateProjectName(name string) error {
	bad := func(why string) error {
		return errcode.New(errcode.SwitchFailed, "validate", "invalid project name %q: %s", name, why)
	}
	switch {
	case name == "":
		return bad("empty")
	case name == "@":
		return bad("reserved")
	case strings.HasPrefix(name, "-"):
		return bad("starts with '-'")
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return bad("leading or trailing '/'")
	case strings.HasSuffix(name, ".") || strings.HasSuffix(name, ".lock"):
		return bad("bad suffix")
	case strings.Contains(name, "..") || strings.Contains(name, "//") || strings.Contains(name, "@{"):
		return bad("forbidden sequence")
	}
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return bad("component starts with '.'")
		}
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return bad("forbidden character")
		}
	}
	return nil
}
