// Package validate holds the input validation and normalization helpers
// shared by registration and user lookup.
package validate

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinLen is the minimum length of an item to be considered valid.
	MinLen = 2
	// MinAccountLen is the minimum number of characters of an account name.
	MinAccountLen = 4
	// MaxNameLen is the max. length in characters of a first, last and account name.
	MaxNameLen = 31
	// MaxEmailLen is the max. length in characters of an email address we allow.
	MaxEmailLen = 63
	// MinPasswordLen is the minimum number of characters a password must have.
	MinPasswordLen = 8
	// MaxPasswordLen is the max. number of characters of a password, encoded or not.
	MaxPasswordLen = 127
)

// Normalize trims the string and applies unicode NFC normalization.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ToLowerAscii converts the given string to lower ASCII characters (a-z0-9).
// Non-ascii characters get silently omitted, whereby german umlaute (ä, ö, ü)
// get translated to ae, oe, or ue respectively and the ß to sz.
func ToLowerAscii(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case (c > 47 && c < 58) || (c > 96 && c < 123):
			b.WriteRune(c)
		case c == 'ä':
			b.WriteString("ae")
		case c == 'ö':
			b.WriteString("oe")
		case c == 'ü':
			b.WriteString("ue")
		case c == 'ß':
			b.WriteString("sz")
		}
	}
	return b.String()
}

// IsPrintable checks whether the given string contains printable characters,
// only. If spaceAllowed is true, the space character 0x20 gets accepted, too.
// An empty string is not printable.
func IsPrintable(s string, spaceAllowed bool) bool {
	if s == "" {
		return false
	}
	start := rune(33)
	if spaceAllowed {
		start = 32
	}
	for _, c := range s {
		if c < start ||
			(c > 126 && c < 160) || // control chars
			(c > 8191 && c < 8208) || // space and joiner stuff
			(c > 8231 && c < 8240) || // separators and layout controls
			(c > 8286 && c < 8304) || // space and layout controls
			c == 12288 || // IDEOGRAPHIC SPACE
			c == 65279 { // ZERO WIDTH NO-BREAK SPACE
			return false
		}
	}
	return true
}

var (
	// dot-atom per RFC 5322, without obsolete specs, folding whitespace,
	// quoted-string or domain-literal support.
	dotAtom     = regexp.MustCompile("^[-a-zA-Z0-9!#$%&'*+/=?^_`{|}~]+(?:\\.[-a-zA-Z0-9!#$%&'*+/=?^_`{|}~]+)*$")
	domainLabel = regexp.MustCompile(`^[a-zA-Z0-9]+(?:-+[a-zA-Z0-9]+)*$`)
	tldIP       = regexp.MustCompile(`[0-9]+$`)
	allIP       = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)*$`)
)

// CheckEmail checks whether the given string represents an RFC 5322 conform
// email address. Display names, obsolete specs, folding whitespace,
// quoted-strings and domain-literals are not supported. Numerical IPs are
// rejected to avoid a CIDR check.
func CheckEmail(str string) bool {
	idx := strings.IndexByte(str, '@')
	if idx == -1 {
		return false
	}
	localPart := str[:idx]
	if !dotAtom.MatchString(localPart) {
		return false
	}
	domain := str[idx+1:]
	if !dotAtom.MatchString(domain) {
		return false
	}
	if len(domain) > 255 {
		return false // domain too long
	}
	label := strings.Split(domain, ".")
	count := len(label) - 1
	if count < 1 || len(label[count]) < 2 || len(label[count-1]) < 2 {
		return false // top and 2nd level domain too short
	}
	for ; count >= 0; count-- {
		if len(label[count]) > 63 {
			return false // subdomain too long
		}
		if !domainLabel.MatchString(label[count]) {
			return false // invalid characters
		}
	}
	return !(tldIP.MatchString(domain) || allIP.MatchString(domain))
}
