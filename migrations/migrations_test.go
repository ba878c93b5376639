package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSourceHasUpAndDownForEveryVersion(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "000001_init", versions[0])

	src, err := iofs.New(files, ".")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	for _, v := range versions {
		n, err := VersionNumber(v)
		require.NoError(t, err)
		up, ident, err := src.ReadUp(n)
		require.NoError(t, err, v)
		_ = up.Close()
		assert.Equal(t, "init", ident)
		down, _, err := src.ReadDown(n)
		require.NoError(t, err, v)
		_ = down.Close()
	}
}

func TestBetweenReportsNewlyAppliedVersions(t *testing.T) {
	versions := []string{"000001_init", "000002_audit", "000003_indexes"}

	got, err := Between(versions, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, versions, got)

	got, err = Between(versions, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_audit"}, got)

	got, err = Between(versions, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Between([]string{"init"}, 0, 1)
	assert.Error(t, err)
}

func TestInitCreatesEveryTable(t *testing.T) {
	src, err := iofs.New(files, ".")
	require.NoError(t, err)
	defer src.Close()
	r, _, err := src.ReadUp(1)
	require.NoError(t, err)
	defer r.Close()
	script, err := io.ReadAll(r)
	require.NoError(t, err)

	for _, table := range []string{
		"users", "employees", "cars", "customers", "items", "invoices", "invoice_items",
		"payments", "ledger_entries", "number_sequences", "idempotency_keys", "audit_logs",
	} {
		assert.Contains(t, string(script), "CREATE TABLE "+table+" (", table)
	}
	assert.False(t, strings.Contains(string(script), "BEGIN;"), "each file runs as one implicit transaction")
}
