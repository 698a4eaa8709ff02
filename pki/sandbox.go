package pki

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/awnumar/memguard"
	"github.com/spf13/afero"
)

// SandboxInit holds the contents a Sandbox is populated with. Empty strings
// are not written, except Index and IndexAttr: "openssl ca" needs the
// database file even when it is empty.
type SandboxInit struct {
	SSLConfig  string
	IndexAttr  string
	CACert     string
	CAKey      *memguard.Enclave
	Engine     *EngineDescriptor
	CSR        string
	Index      string
	RevokeCert string
	Serial     string
}

// Sandbox is a temporary directory laid out for "openssl ca":
//
//	cacert.pem
//	private/cakey.pem
//	certs/            new certificates directory
//	certs/cert.pem    signed certificate output
//	csr/client.csr
//	index.txt
//	index.txt.attr
//	revoke_cert.pem
//	ca.crl
//	serial
//	openssl.cnf
//
// A Sandbox is never exposed half-built: OpenSandbox removes the directory
// when populating it fails. Close removes it after use.
type Sandbox struct {
	fs     afero.Fs
	root   string
	engine *EngineDescriptor
	logger *slog.Logger
	closed bool

	CACert     *Node
	CAKey      *Node
	CertsDir   *Node
	CSR        *Node
	Index      *Node
	IndexAttr  *Node
	RevokeCert *Node
	CRL        *Node
	Serial     *Node
	GenCert    *Node
	Config     *Node
}

// OpenSandbox creates a sandbox under baseDir (the system temporary directory
// when empty) and populates it from contents. On error nothing is left on disk.
func OpenSandbox(fs afero.Fs, baseDir string, contents SandboxInit) (*Sandbox, error) {
	return openSandbox(fs, baseDir, contents, slog.Default())
}

func openSandbox(fs afero.Fs, baseDir string, contents SandboxInit, logger *slog.Logger) (*Sandbox, error) {
	root, err := afero.TempDir(fs, baseDir, "caenv-")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	s := &Sandbox{fs: fs, root: root, engine: contents.Engine, logger: logger}
	if err := s.populate(contents); err != nil {
		if cerr := s.Close(); cerr != nil {
			logger.Warn("sandbox cleanup failed", slog.String("path", root), slog.Any("error", cerr))
		}
		return nil, err
	}
	logger.Debug("sandbox opened", slog.String("path", root))
	return s, nil
}

func (s *Sandbox) populate(contents SandboxInit) error {
	if err := s.layout(); err != nil {
		return err
	}

	writes := []struct {
		node   *Node
		value  string
		key    *memguard.Enclave
		always bool
	}{
		{node: s.CACert, value: contents.CACert},
		{node: s.CAKey, key: contents.CAKey},
		{node: s.CSR, value: contents.CSR},
		{node: s.Index, value: contents.Index, always: true},
		{node: s.IndexAttr, value: contents.IndexAttr, always: true},
		{node: s.RevokeCert, value: contents.RevokeCert},
		{node: s.Serial, value: contents.Serial},
		{node: s.Config, value: contents.SSLConfig},
	}
	for _, w := range writes {
		var err error
		switch {
		case w.key != nil:
			err = writeSealed(w.node, w.key)
		case w.value != "" || w.always:
			err = w.node.Set([]byte(w.value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// layout defines the nodes. The configuration node is created last since
// it needs the other nodes' paths.
func (s *Sandbox) layout() error {
	var err error
	node := func(rel, name string, adapt *adaptOptions) *Node {
		if err != nil {
			return nil
		}
		var n *Node
		n, err = newNode(s.fs, s.root, rel, name, adapt)
		return n
	}

	s.CACert = node("", "cacert.pem", nil)
	s.CAKey = node("private", "cakey.pem", nil)
	s.CertsDir = node("certs", "", nil)
	s.CSR = node("csr", "client.csr", nil)
	s.Index = node("", "index.txt", nil)
	s.IndexAttr = node("", "index.txt.attr", nil)
	s.RevokeCert = node("", "revoke_cert.pem", nil)
	s.CRL = node("", "ca.crl", nil)
	s.Serial = node("", "serial", nil)
	s.GenCert = node("certs", "cert.pem", nil)
	if err != nil {
		return err
	}
	s.Config = node("", "openssl.cnf", &adaptOptions{
		root: s.root,
		paths: []substitution{
			{"certificate", s.CACert.Path()},
			{"private_key", s.CAKey.Path()},
			{"new_certs_dir", s.CertsDir.Path()},
			{"database", s.Index.Path()},
			{"serial", s.Serial.Path()},
		},
		engine: s.engine,
	})
	return err
}

// writeSealed writes the content of an enclave to n without keeping a
// copy outside locked memory.
func writeSealed(n *Node, key *memguard.Enclave) error {
	buf, err := key.Open()
	if err != nil {
		return fmt.Errorf("opening CA key enclave: %w", err)
	}
	defer buf.Destroy()
	return n.Set(buf.Bytes())
}

// Root returns the sandbox directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Engine returns the PKCS#11 engine descriptor the sandbox was built with.
func (s *Sandbox) Engine() *EngineDescriptor {
	return s.engine
}

// Close removes the sandbox directory and everything in it. It is safe to
// call more than once.
func (s *Sandbox) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.fs.RemoveAll(s.root); err != nil {
		return fmt.Errorf("removing sandbox %s: %w", s.root, err)
	}
	s.logger.Debug("sandbox removed", slog.String("path", s.root))
	return nil
}

// WithSandbox opens a sandbox, passes it to fn and removes it afterwards,
// also when fn fails or panics. A removal failure is joined to fn's error.
func WithSandbox(fs afero.Fs, baseDir string, contents SandboxInit, fn func(*Sandbox) error) error {
	return withSandbox(fs, baseDir, contents, slog.Default(), fn)
}

func withSandbox(fs afero.Fs, baseDir string, contents SandboxInit, logger *slog.Logger, fn func(*Sandbox) error) (err error) {
	s, err := openSandbox(fs, baseDir, contents, logger)
	if err != nil {
		return err
	}
	defer func() {
		cerr := s.Close()
		if cerr == nil {
			return
		}
		if err == nil {
			err = cerr
			return
		}
		logger.Warn("sandbox cleanup failed", slog.String("path", s.root), slog.Any("error", cerr))
		err = errors.Join(err, cerr)
	}()
	return fn(s)
}
