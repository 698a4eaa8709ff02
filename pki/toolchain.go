package pki

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// serverComponentPolicy is the policy section used to sign certificates of
// server components under the service CA.
const serverComponentPolicy = "server_component_serviceCA_policy"

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Runner executes a Command and returns its combined stdout and stderr.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands as subprocesses. A started process always runs to
// completion; ctx only prevents it from being started.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	return c.CombinedOutput()
}

// ToolError reports a failed OpenSSL invocation together with everything it
// printed.
type ToolError struct {
	Args   []string
	Output []byte
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("CA env error (%s: %v; %q)", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *ToolError) Unwrap() []error {
	return []error{ErrCATool, e.Err}
}

// Toolchain builds and runs "openssl ca" command lines against a Sandbox.
type Toolchain struct {
	runner Runner
	binary string
	engine *EngineDescriptor
}

// NewToolchain returns a Toolchain running binary through runner. engine is
// nil unless the CA key lives in a PKCS#11 token.
func NewToolchain(runner Runner, binary string, engine *EngineDescriptor) *Toolchain {
	if runner == nil {
		runner = ExecRunner{}
	}
	if binary == "" {
		binary = "openssl"
	}
	return &Toolchain{runner: runner, binary: binary, engine: engine}
}

// Sign signs the sandbox's CSR and returns the certificate PEM. serverComponent
// selects the server-component policy, which only a service CA may use.
func (t *Toolchain) Sign(ctx context.Context, sb *Sandbox, profile string, serverComponent bool) (string, error) {
	var extra []string
	if serverComponent {
		if profile != ServiceCAProfile {
			return "", fmt.Errorf("%w: CA profile is %q", ErrNotServiceCA, profile)
		}
		extra = []string{"-policy", serverComponentPolicy}
	}
	args := []string{
		"ca",
		"-config", sb.Config.Path(),
		"-notext",
		"-in", sb.CSR.Path(),
		"-out", sb.GenCert.Path(),
		"-batch",
	}
	if err := t.run(ctx, sb, args, extra...); err != nil {
		return "", err
	}
	return sb.GenCert.Read()
}

// Revoke revokes the sandbox's revoke_cert.pem in the sandbox database.
func (t *Toolchain) Revoke(ctx context.Context, sb *Sandbox) error {
	args := []string{
		"ca",
		"-config", sb.Config.Path(),
		"-revoke", sb.RevokeCert.Path(),
		"-batch",
	}
	return t.run(ctx, sb, args)
}

// GenerateCRL generates a CRL from the sandbox database and returns its PEM.
func (t *Toolchain) GenerateCRL(ctx context.Context, sb *Sandbox) (string, error) {
	args := []string{
		"ca",
		"-config", sb.Config.Path(),
		"-gencrl",
		"-out", sb.CRL.Path(),
		"-batch",
	}
	if err := t.run(ctx, sb, args); err != nil {
		return "", err
	}
	return sb.CRL.Read()
}

func (t *Toolchain) run(ctx context.Context, sb *Sandbox, args []string, extra ...string) error {
	if sb.closed {
		return ErrSandboxClosed
	}
	engineArgs, err := t.engineArgs(sb)
	if err != nil {
		return err
	}
	args = append(append(args, engineArgs...), extra...)

	out, err := t.runner.Run(ctx, Command{Name: t.binary, Args: args, Dir: sb.Root()})
	if err != nil {
		return &ToolError{Args: append([]string{t.binary}, args...), Output: out, Err: err}
	}
	return nil
}

// engineArgs selects the PKCS#11 engine and names the active CA section so
// that the engine binds to the right key.
func (t *Toolchain) engineArgs(sb *Sandbox) ([]string, error) {
	if t.engine == nil {
		return nil, nil
	}
	doc := sb.Config.Document()
	if doc == nil {
		return nil, fmt.Errorf("%w: sandbox has no configuration", ErrInvalidCAConfig)
	}
	section, err := doc.Get(defaultCAPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCAConfig, err)
	}
	args := []string{"-engine", "pkcs11"}
	args = append(args, t.engine.ExtraArgs...)
	return append(args, "-name", section), nil
}
