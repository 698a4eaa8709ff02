package pki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/I85YL64/n6/internal/uuid"
)

// IssueRequest holds the parameters for signing a CSR.
type IssueRequest struct {
	// CSR is the certificate signing request in PEM form.
	CSR string

	// Serial is the serial number of the new certificate, in hex.
	Serial string

	// ServerComponentLogin must be set if and only if the certificate is
	// issued to a server component; such certificates are signed with the
	// server-component policy and require a service CA.
	ServerComponentLogin string
}

// IssueCertificate signs req.CSR with the environment's CA and returns the
// certificate PEM.
func IssueCertificate(ctx context.Context, env *Environment, req IssueRequest) (string, error) {
	serial, err := NormalizeSerial(req.Serial, SerialHexDigits)
	if err != nil {
		return "", err
	}
	serialOpenSSL, err := FormatSerial(serial)
	if err != nil {
		return "", err
	}
	if req.ServerComponentLogin != "" && env.ca.Profile() != ServiceCAProfile {
		return "", fmt.Errorf("issuing certificate: %w: CA profile is %q", ErrNotServiceCA, env.ca.Profile())
	}

	contents := env.base
	contents.CSR = req.CSR
	contents.Serial = serialOpenSSL
	contents.Index = ""

	log := env.opLogger("issue", slog.String("serial", serial))
	log.Debug("issuing certificate")
	var certPEM string
	err = withSandbox(env.fs, env.tempDir, contents, log, func(sb *Sandbox) error {
		var err error
		certPEM, err = env.toolchain().Sign(ctx, sb, env.ca.Profile(), req.ServerComponentLogin != "")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("issuing certificate: %w", err)
	}
	log.Info("certificate issued", slog.String("server_component", req.ServerComponentLogin))
	return certPEM, nil
}

// RevokeCertificate revokes cert and returns a CRL that includes it. The
// revocation only exists inside the sandbox, so the CRL is generated there
// too; recording the revocation is up to the caller.
func RevokeCertificate(ctx context.Context, env *Environment, cert CertificateRecord) (string, error) {
	index, err := env.renderIndex(ctx)
	if err != nil {
		return "", err
	}
	serialOpenSSL, err := FormatSerial(cert.SerialHex)
	if err != nil {
		return "", err
	}

	contents := env.base
	contents.Index = index
	contents.Serial = serialOpenSSL
	contents.RevokeCert = cert.CertificatePEM

	log := env.opLogger("revoke", slog.String("serial", cert.SerialHex))
	log.Debug("revoking certificate")
	var crlPEM string
	err = withSandbox(env.fs, env.tempDir, contents, log, func(sb *Sandbox) error {
		tc := env.toolchain()
		if err := tc.Revoke(ctx, sb); err != nil {
			return err
		}
		var err error
		crlPEM, err = tc.GenerateCRL(ctx, sb)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("revoking certificate: %w", err)
	}
	log.Info("certificate revoked")
	return crlPEM, nil
}

// GenerateCRL returns a fresh CRL for the environment's CA.
func GenerateCRL(ctx context.Context, env *Environment) (string, error) {
	index, err := env.renderIndex(ctx)
	if err != nil {
		return "", err
	}

	contents := env.base
	contents.Index = index
	contents.Serial = ""

	log := env.opLogger("crl")
	log.Debug("generating CRL")
	var crlPEM string
	err = withSandbox(env.fs, env.tempDir, contents, log, func(sb *Sandbox) error {
		var err error
		crlPEM, err = env.toolchain().GenerateCRL(ctx, sb)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generating CRL: %w", err)
	}
	log.Info("CRL generated")
	return crlPEM, nil
}

// RenderIndex renders the CA's current certificate database.
func (e *Environment) RenderIndex(ctx context.Context) (string, error) {
	return e.renderIndex(ctx)
}

func (e *Environment) renderIndex(ctx context.Context) (string, error) {
	records, err := e.ca.Certificates(ctx)
	if err != nil {
		return "", fmt.Errorf("listing certificates of CA %q: %w", e.ca.Label(), err)
	}
	return RenderIndex(records, e.now())
}

func (e *Environment) opLogger(op string, attrs ...any) *slog.Logger {
	attrs = append([]any{
		slog.String("op", op),
		slog.String("op_id", uuid.New()),
		slog.String("ca", e.ca.Label()),
	}, attrs...)
	return e.logger.With(attrs...)
}
