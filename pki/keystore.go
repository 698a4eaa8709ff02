package pki

import (
	"fmt"
	"strings"
)

// PKCS11Prefix marks a CA key locator that refers to a key held in a
// PKCS#11 token instead of a key file. The full grammar is
//
//	pkcs11:<engine dynamic path>:<PKCS#11 module path>:<extra openssl args>
//
// e.g. "pkcs11:/usr/lib/engines/engine_pkcs11.so:/usr/lib/x86_64-linux-gnu/opensc-pkcs11.so:-keyform engine -keyfile 0:01".
const PKCS11Prefix = "pkcs11:"

// EngineDescriptor describes how OpenSSL reaches a CA key through its
// PKCS#11 engine. The private key never touches the sandbox.
type EngineDescriptor struct {
	// DynamicPath is the engine's shared object
	// (e.g. /usr/lib/engines/engine_pkcs11.so).
	DynamicPath string

	// ModulePath is the PKCS#11 module loaded by the engine
	// (e.g. /usr/lib/x86_64-linux-gnu/opensc-pkcs11.so).
	ModulePath string

	// ExtraArgs are appended to every "openssl ca" command line after
	// "-engine pkcs11" (typically -keyform and -keyfile).
	ExtraArgs []string
}

// KeyLocator is a parsed CA key locator: either a key file path or an engine
// descriptor.
type KeyLocator struct {
	Path   string
	Engine *EngineDescriptor
}

// ParseKeyLocator parses a key locator. Anything not starting with
// PKCS11Prefix is taken as a file path.
func ParseKeyLocator(locator string) (KeyLocator, error) {
	if !strings.HasPrefix(locator, PKCS11Prefix) {
		if locator == "" {
			return KeyLocator{}, fmt.Errorf("%w: empty locator", ErrInvalidKeyLocator)
		}
		return KeyLocator{Path: locator}, nil
	}
	parts := strings.SplitN(locator, ":", 4)
	if len(parts) != 4 {
		return KeyLocator{}, fmt.Errorf("%w: expected %s<dynamic path>:<module path>:<args>", ErrInvalidKeyLocator, PKCS11Prefix)
	}
	return KeyLocator{
		Engine: &EngineDescriptor{
			DynamicPath: parts[1],
			ModulePath:  parts[2],
			ExtraArgs:   strings.Fields(parts[3]),
		},
	}, nil
}

// String renders the locator back in its textual form.
func (l KeyLocator) String() string {
	if l.Engine == nil {
		return l.Path
	}
	return PKCS11Prefix + l.Engine.DynamicPath + ":" + l.Engine.ModulePath + ":" + strings.Join(l.Engine.ExtraArgs, " ")
}
