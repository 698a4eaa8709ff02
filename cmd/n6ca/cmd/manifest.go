package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/I85YL64/n6/pki"
)

// Manifest describes a CA and the certificates it has issued. File names
// are relative to the manifest's directory.
//
//	label: client-2
//	profile: client
//	ssl_config: client-2.cnf
//	certificate: client-2.pem
//	certificates:
//	  - serial: 0000000000000000000a
//	    subject: /CN=host.example.com
//	    certificate: certs/0a.pem
//	    expires_on: 2027-01-01T00:00:00Z
//	    revoked_on: 2026-05-04T10:00:00Z
type Manifest struct {
	Label        string                `yaml:"label"`
	Profile      string                `yaml:"profile"`
	SSLConfig    string                `yaml:"ssl_config"`
	Certificate  string                `yaml:"certificate"`
	Certificates []manifestCertificate `yaml:"certificates"`
}

type manifestCertificate struct {
	Serial      string     `yaml:"serial"`
	Subject     string     `yaml:"subject"`
	Certificate string     `yaml:"certificate"`
	ExpiresOn   *time.Time `yaml:"expires_on"`
	RevokedOn   *time.Time `yaml:"revoked_on"`
}

// LoadManifest reads the manifest at path and every file it names.
// Subjects are NFC-normalized.
func LoadManifest(fs afero.Fs, path string) (*pki.StaticAuthority, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading CA manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing CA manifest %s: %w", path, err)
	}
	if m.Label == "" {
		return nil, fmt.Errorf("CA manifest %s: label is required", path)
	}
	switch m.Profile {
	case pki.ClientCAProfile, pki.ServiceCAProfile:
	default:
		return nil, fmt.Errorf("CA manifest %s: profile must be %q or %q, got %q",
			path, pki.ClientCAProfile, pki.ServiceCAProfile, m.Profile)
	}

	dir := filepath.Dir(path)
	read := func(name, what string) (string, error) {
		if name == "" {
			return "", fmt.Errorf("CA manifest %s: %s is required", path, what)
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		b, err := afero.ReadFile(fs, name)
		if err != nil {
			return "", fmt.Errorf("CA manifest %s: reading %s: %w", path, what, err)
		}
		return string(b), nil
	}

	ca := &pki.StaticAuthority{Name: m.Label, Kind: m.Profile}
	if ca.Config, err = read(m.SSLConfig, "ssl_config"); err != nil {
		return nil, err
	}
	if ca.CertPEM, err = read(m.Certificate, "certificate"); err != nil {
		return nil, err
	}
	for i, c := range m.Certificates {
		serial, err := pki.NormalizeSerial(c.Serial, pki.SerialHexDigits)
		if err != nil {
			return nil, fmt.Errorf("CA manifest %s: certificate %d: %w", path, i, err)
		}
		rec := pki.CertificateRecord{
			SerialHex: serial,
			Subject:   norm.NFC.String(c.Subject),
			ExpiresOn: c.ExpiresOn,
			RevokedOn: c.RevokedOn,
		}
		// Only revocation needs the PEM.
		if c.Certificate != "" {
			if rec.CertificatePEM, err = read(c.Certificate, "certificate of "+serial); err != nil {
				return nil, err
			}
		}
		ca.Records = append(ca.Records, rec)
	}
	return ca, nil
}
