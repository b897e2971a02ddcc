package repository

import (
	"strconv"

	"authdemo/internal/validate"
)

// maxIDDigits bounds the length of an all-digit identifier. Longer strings
// map to the impossible id 0 instead of an error, so the lookup yields
// "not found" rather than failing.
const maxIDDigits = 12

// impossibleAccount never matches: a dot is not a valid account character.
const impossibleAccount = ".xxx"

// Predicate selects a single user record by an exact id or an exact account
// match. The zero Predicate matches nothing.
type Predicate struct {
	ID      int64
	Account string
}

// ResolveIdentifier turns an opaque identifier (a numeric string or an
// account name) into a lookup predicate. The identifier gets trimmed and
// NFC-normalized first. It is rejected — ok is false and the caller must
// report "not found" without querying the store — when it is shorter than
// validate.MinLen, or when a non-numeric string does not equal its
// lowercase-ASCII-normalized form or contains non-printable characters or
// spaces. All-digit strings longer than maxIDDigits resolve to the
// impossible id 0.
func ResolveIdentifier(id string) (Predicate, bool) {
	id = validate.Normalize(id)
	if len(id) < validate.MinLen {
		return Predicate{}, false
	}

	if isDigits(id) {
		if len(id) > maxIDDigits {
			return Predicate{Account: impossibleAccount}, true
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n == 0 {
			return Predicate{}, false
		}
		return Predicate{ID: n, Account: impossibleAccount}, true
	}

	if len(id) >= validate.MaxNameLen || id != validate.ToLowerAscii(id) ||
		!validate.IsPrintable(id, false) {
		return Predicate{}, false
	}
	return Predicate{Account: id}, true
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
