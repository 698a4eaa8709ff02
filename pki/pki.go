// Package pki runs Certificate Authority operations (issuing a certificate
// from a CSR, revoking a certificate, generating a CRL) with the OpenSSL
// "ca" command. Every operation materializes a throwaway sandbox directory
// holding the CA certificate, the CA key (or a PKCS#11 engine reference), an
// adapted copy of the CA's OpenSSL configuration and a certificate database
// rendered from the CA's records; the sandbox is removed when the operation
// ends, whatever its outcome.
package pki

import (
	"context"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidCAConfig is returned when a CA's stored OpenSSL configuration
	// cannot be parsed or lacks the "ca.default_ca" pointer. The underlying
	// parse error is wrapped as well.
	ErrInvalidCAConfig = errors.New("invalid CA configuration")

	// ErrCATool is matched by every *ToolError.
	ErrCATool = errors.New("CA tool failed")

	// ErrInvalidSerial is returned when a serial number is not valid hex, or
	// when a serial number prepared for the toolchain fails the sanity check.
	ErrInvalidSerial = errors.New("invalid certificate serial number")

	// ErrInvalidKeyLocator is returned for a malformed "pkcs11:" key locator.
	ErrInvalidKeyLocator = errors.New("invalid CA key locator")

	// ErrEmptyKey is returned when the CA key file has no content.
	ErrEmptyKey = errors.New("CA key file is empty")

	// ErrNotServiceCA is returned when a server-component certificate is
	// requested from a CA whose profile is not ServiceCAProfile.
	ErrNotServiceCA = errors.New("server-component certificates require a service CA")

	// ErrNodeWritten is returned when a sandbox node is written twice.
	ErrNodeWritten = errors.New("sandbox node already written")

	// ErrSandboxClosed is returned when a closed sandbox is used.
	ErrSandboxClosed = errors.New("sandbox closed")
)

// CA profiles.
const (
	ClientCAProfile  = "client"
	ServiceCAProfile = "service"
)

// SerialHexDigits is the fixed number of hex digits of a canonical serial
// number.
const SerialHexDigits = 20

// DefaultIndexAttr is the content of the sandbox's index.txt.attr file.
const DefaultIndexAttr = "unique_subject = no"

// ---------------------------------------------------------------------------
// CA model
// ---------------------------------------------------------------------------

// Authority is the read-only view of a CA entity owned by the calling layer.
type Authority interface {
	// Label identifies the CA (e.g. "client-2").
	Label() string
	// SSLConfig is the CA's OpenSSL configuration text.
	SSLConfig() string
	// CertificatePEM is the CA's own certificate.
	CertificatePEM() string
	// Profile is ClientCAProfile or ServiceCAProfile.
	Profile() string
	// Certificates returns a snapshot of every certificate issued by the CA.
	Certificates(ctx context.Context) ([]CertificateRecord, error)
}

// CertificateRecord is a certificate issued by an Authority.
type CertificateRecord struct {
	SerialHex      string
	Subject        string
	CertificatePEM string
	ExpiresOn      *time.Time
	RevokedOn      *time.Time
}

// Revoked reports whether the certificate has been revoked.
func (r CertificateRecord) Revoked() bool {
	return r.RevokedOn != nil
}

// Expired reports whether the certificate expired before now. Revoked
// certificates are never reported as expired.
func (r CertificateRecord) Expired(now time.Time) bool {
	return !r.Revoked() && r.ExpiresOn != nil && now.After(*r.ExpiresOn)
}

// StaticAuthority is an Authority held entirely in memory.
type StaticAuthority struct {
	Name    string
	Config  string
	CertPEM string
	Kind    string
	Records []CertificateRecord
}

var _ Authority = (*StaticAuthority)(nil)

func (a *StaticAuthority) Label() string          { return a.Name }
func (a *StaticAuthority) SSLConfig() string      { return a.Config }
func (a *StaticAuthority) CertificatePEM() string { return a.CertPEM }
func (a *StaticAuthority) Profile() string        { return a.Kind }

// Certificates returns a copy of the records.
func (a *StaticAuthority) Certificates(ctx context.Context) ([]CertificateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]CertificateRecord(nil), a.Records...), nil
}

// FindCertificate returns the record whose serial number equals serialHex
// once both are normalized.
func FindCertificate(records []CertificateRecord, serialHex string) (CertificateRecord, bool) {
	want, err := NormalizeSerial(serialHex, SerialHexDigits)
	if err != nil {
		return CertificateRecord{}, false
	}
	for _, r := range records {
		got, err := NormalizeSerial(r.SerialHex, SerialHexDigits)
		if err == nil && got == want {
			return r, true
		}
	}
	return CertificateRecord{}, false
}
