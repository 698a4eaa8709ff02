package pki

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyLocator(t *testing.T) {
	loc, err := ParseKeyLocator("/etc/n6/ca/client.key")
	require.NoError(t, err)
	assert.Equal(t, "/etc/n6/ca/client.key", loc.Path)
	assert.Nil(t, loc.Engine)
	assert.Equal(t, "/etc/n6/ca/client.key", loc.String())

	raw := "pkcs11:/usr/lib/engines/engine_pkcs11.so:/usr/lib/softhsm/libsofthsm2.so:-keyform engine  -keyfile 0:01"
	loc, err = ParseKeyLocator(raw)
	require.NoError(t, err)
	assert.Empty(t, loc.Path)
	assert.Equal(t, &EngineDescriptor{
		DynamicPath: "/usr/lib/engines/engine_pkcs11.so",
		ModulePath:  "/usr/lib/softhsm/libsofthsm2.so",
		ExtraArgs:   []string{"-keyform", "engine", "-keyfile", "0:01"},
	}, loc.Engine)
	assert.Equal(t,
		"pkcs11:/usr/lib/engines/engine_pkcs11.so:/usr/lib/softhsm/libsofthsm2.so:-keyform engine -keyfile 0:01",
		loc.String())

	loc, err = ParseKeyLocator("pkcs11:/a.so:/b.so:")
	require.NoError(t, err)
	assert.Empty(t, loc.Engine.ExtraArgs)
}

func TestParseKeyLocator_Invalid(t *testing.T) {
	for _, s := range []string{"", "pkcs11:", "pkcs11:/a.so", "pkcs11:/a.so:/b.so"} {
		_, err := ParseKeyLocator(s)
		assert.ErrorIs(t, err, ErrInvalidKeyLocator, s)
	}
}

func testAuthority() *StaticAuthority {
	return &StaticAuthority{
		Name:    "client-2",
		Config:  testSSLConfig,
		CertPEM: "CA CERT",
		Kind:    ClientCAProfile,
	}
}

func TestNewEnvironment_KeyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/keys/ca.key", []byte("CA KEY"), 0o600))

	env, err := NewEnvironment(testAuthority(), "/keys/ca.key", WithFs(fs))
	require.NoError(t, err)
	assert.Nil(t, env.Engine())
	assert.Equal(t, "client-2", env.CA().Label())
	assert.Equal(t, testSSLConfig, env.base.SSLConfig)
	assert.Equal(t, "CA CERT", env.base.CACert)
	assert.Equal(t, DefaultIndexAttr, env.base.IndexAttr)

	require.NotNil(t, env.base.CAKey)
	buf, err := env.base.CAKey.Open()
	require.NoError(t, err)
	defer buf.Destroy()
	assert.Equal(t, []byte("CA KEY"), buf.Bytes())
}

func TestNewEnvironment_PKCS11(t *testing.T) {
	// Nothing is read from the filesystem.
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	env, err := NewEnvironment(testAuthority(), "pkcs11:/a.so:/b.so:-keyform engine", WithFs(fs))
	require.NoError(t, err)
	assert.Nil(t, env.base.CAKey)
	require.NotNil(t, env.Engine())
	assert.Equal(t, "/b.so", env.Engine().ModulePath)
	assert.Equal(t, env.Engine(), env.toolchain().engine)
}

func TestNewEnvironment_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/keys/empty.key", nil, 0o600))

	_, err := NewEnvironment(testAuthority(), "/keys/empty.key", WithFs(fs))
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewEnvironment(testAuthority(), "/keys/missing.key", WithFs(fs))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading CA key")

	_, err = NewEnvironment(testAuthority(), "pkcs11:broken", WithFs(fs))
	assert.ErrorIs(t, err, ErrInvalidKeyLocator)

	_, err = NewEnvironment(nil, "/keys/empty.key", WithFs(fs))
	assert.Error(t, err)
}

func TestNewEnvironment_Options(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/k", []byte("k"), 0o600))
	runner := &fakeRunner{fs: fs}

	env, err := NewEnvironment(testAuthority(), "/k",
		WithFs(fs),
		WithTempDir("/sandboxes"),
		WithRunner(runner),
		WithOpenSSLPath("/opt/openssl/bin/openssl"),
	)
	require.NoError(t, err)
	tc := env.toolchain()
	assert.Same(t, runner, tc.runner)
	assert.Equal(t, "/opt/openssl/bin/openssl", tc.binary)
	assert.Equal(t, "/sandboxes", env.tempDir)
}
