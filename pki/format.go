package pki

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// opensslTimeLayout is the ASN.1 UTCTime layout used in index.txt, without
// the trailing "Z".
const opensslTimeLayout = "060102150405"

// maxSerialHexDigits is 20 octets, the RFC 5280 upper bound.
const maxSerialHexDigits = 40

var serialRe = regexp.MustCompile(`^[0-9a-f]+$`)

// FormatDate renders t in UTC as YYMMDDHHMMSSZ. Sub-second precision is
// dropped.
func FormatDate(t time.Time) string {
	return t.UTC().Format(opensslTimeLayout) + "Z"
}

// ValidSerial reports whether s is a lowercase hex serial number with an even
// number of digits that fits in 20 octets.
func ValidSerial(s string) bool {
	return len(s)%2 == 0 && len(s) <= maxSerialHexDigits && serialRe.MatchString(s)
}

// FormatSerial prepares a hex serial number for the OpenSSL tools: digits are
// uppercased and an odd-length number gets one leading zero. The result is
// re-checked with ValidSerial; a failure means the caller passed data that
// was already inconsistent and is reported as ErrInvalidSerial.
func FormatSerial(serialHex string) (string, error) {
	s := strings.ToUpper(serialHex)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	if !ValidSerial(strings.ToLower(s)) {
		return "", fmt.Errorf("%w: serial number prepared for OpenSSL tools (%q) is not valid", ErrInvalidSerial, s)
	}
	return s, nil
}

// NormalizeSerial canonicalizes a hex serial number: lowercase, no "0x"
// prefix or ":" separators, zero-padded on the left to width digits.
func NormalizeSerial(serialHex string, width int) (string, error) {
	s := strings.ToLower(strings.TrimSpace(serialHex))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, ":", "")
	if s == "" || !serialRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSerial, serialHex)
	}
	s = strings.TrimLeft(s, "0")
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if s == "" {
		s = "0"
	}
	return s, nil
}
