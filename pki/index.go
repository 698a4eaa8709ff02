package pki

import (
	"fmt"
	"strings"
	"time"
)

// Index entry types.
const (
	IndexValid   = "V"
	IndexRevoked = "R"
	IndexExpired = "E"
)

// RenderIndex renders records as an OpenSSL "ca" database (index.txt).
//
// Each line has six tab-separated fields:
//
//	type  expiry  revocation  serial  filename  subject
//
// where type is V, R or E, both dates use the YYMMDDHHMMSSZ layout and may
// be empty, and filename is always "unknown". The subject is written as
// given. Lines follow the input order.
func RenderIndex(records []CertificateRecord, now time.Time) (string, error) {
	var sb strings.Builder
	for _, r := range records {
		entryType := IndexValid
		var expires, revoked string
		if r.ExpiresOn != nil {
			if now.After(*r.ExpiresOn) {
				entryType = IndexExpired
			}
			expires = FormatDate(*r.ExpiresOn)
		}
		if r.RevokedOn != nil {
			entryType = IndexRevoked
			revoked = FormatDate(*r.RevokedOn)
		}
		serial, err := FormatSerial(r.SerialHex)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\tunknown\t%s\n",
			entryType, expires, revoked, serial, r.Subject)
	}
	return sb.String(), nil
}
