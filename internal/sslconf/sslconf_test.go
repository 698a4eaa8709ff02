package sslconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# top comment
HOME = .

[ ca ]
default_ca = CA_default # The default ca section

[ CA_default ]
dir = /var/lib/n6/ca
database = $dir/index.txt
private_key = $dir/private/cakey.pem

[ policy_anything ]
commonName = supplied
`

func TestParse_GetValues(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	v, err := doc.Get("ca.default_ca")
	require.NoError(t, err)
	assert.Equal(t, "CA_default", v)

	v, err = doc.Get(".HOME")
	require.NoError(t, err)
	assert.Equal(t, ".", v)

	v, err = doc.Get("CA_default.database")
	require.NoError(t, err)
	assert.Equal(t, "$dir/index.txt", v)

	assert.Equal(t, []string{"ca", "CA_default", "policy_anything"}, doc.Sections())
}

func TestParse_RoundTripKeepsFormatting(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)
	assert.Equal(t, sample, doc.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("[ ca ]\nthis is not an option\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Parse("[ ca\n")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParse_DirectivesAndContinuations(t *testing.T) {
	text := ".include /etc/ssl/extra.cnf\n[ s ]\nlong = a \\\n  b\nnext = c\n"
	doc, err := Parse(text)
	require.NoError(t, err)

	v, err := doc.Get("s.next")
	require.NoError(t, err)
	assert.Equal(t, "c", v)

	require.NoError(t, doc.Set("s.long", "short"))
	assert.Equal(t, ".include /etc/ssl/extra.cnf\n[ s ]\nlong = short\nnext = c\n", doc.String())
}

func TestGet_Missing(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	_, err = doc.Get("CA_default.serial")
	assert.ErrorIs(t, err, ErrOptionNotFound)

	_, err = doc.Get("nope.serial")
	assert.ErrorIs(t, err, ErrSectionNotFound)

	_, err = doc.Get("nodot")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSet_ReplacesInPlace(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	require.NoError(t, doc.Set("CA_default.dir", "/tmp/sandbox"))
	v, err := doc.Get("CA_default.dir")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sandbox", v)
	assert.Contains(t, doc.String(), "[ CA_default ]\ndir = /tmp/sandbox\ndatabase = $dir/index.txt\n")
}

func TestSet_AppendsMissingOption(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	require.NoError(t, doc.Set("CA_default.serial", "/tmp/sandbox/serial"))
	assert.Contains(t, doc.String(),
		"private_key = $dir/private/cakey.pem\nserial = /tmp/sandbox/serial\n\n[ policy_anything ]")

	err = doc.Set("missing.serial", "x")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestInsertAbove(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	require.NoError(t, doc.InsertAbove("ca", "openssl_conf = openssl_def\n[ openssl_def ]\nengines = engine_section\n"))
	assert.Contains(t, doc.String(), "HOME = .\n\nopenssl_conf = openssl_def\n[ openssl_def ]\nengines = engine_section\n[ ca ]\n")

	v, err := doc.Get(".openssl_conf")
	require.NoError(t, err)
	assert.Equal(t, "openssl_def", v)

	// Lines after the insertion still resolve to their own sections.
	v, err = doc.Get("ca.default_ca")
	require.NoError(t, err)
	assert.Equal(t, "CA_default", v)

	err = doc.InsertAbove("missing", "a = b\n")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestRemove(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	require.NoError(t, doc.Remove("CA_default.private_key"))
	_, err = doc.Get("CA_default.private_key")
	assert.ErrorIs(t, err, ErrOptionNotFound)
	assert.NotContains(t, doc.String(), "private_key")

	// Idempotent.
	require.NoError(t, doc.Remove("CA_default.private_key"))
}

func TestStripComment(t *testing.T) {
	assert.Equal(t, "value", stripComment("value   # comment"))
	assert.Equal(t, `a\#b`, stripComment(`a\#b`))
	assert.Equal(t, "", stripComment("# only"))
}
