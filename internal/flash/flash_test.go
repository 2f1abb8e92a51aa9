package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprint(s string) [buildTimestampSize]byte {
	var fp [buildTimestampSize]byte
	copy(fp[:], s)
	return fp
}

func TestFreshPartitionMountsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	m, err := NewManager(path, 16*1024, DefaultPageSize, fingerprint("2026-07-30T00:00:00Z"))
	require.NoError(t, err)
	defer m.Close()

	valid, err := m.Mount()
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestFreezeThenMountRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	fp := fingerprint("2026-07-30T00:00:00Z")
	m, err := NewManager(path, 16*1024, DefaultPageSize, fp)
	require.NoError(t, err)

	classesAddr, err := m.CopyToFlash([]byte("classes-blob"))
	require.NoError(t, err)
	constAddr, err := m.CopyToFlash([]byte("constant-heap-blob"))
	require.NoError(t, err)

	err = m.WriteHeader(Header{
		DataVersion:  3,
		DataHashCode: 0xABCD,
		Roots: RootOffsets{
			Classes:   uint32(classesAddr),
			Constants: uint32(constAddr),
		},
		StartupToken: 0x06000001,
	})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m2, err := NewManager(path, 16*1024, DefaultPageSize, fp)
	require.NoError(t, err)
	defer m2.Close()

	valid, err := m2.Mount()
	require.NoError(t, err)
	require.True(t, valid)
	assert.Equal(t, uint32(3), m2.Header().DataVersion)
	assert.Equal(t, uint32(0xABCD), m2.Header().DataHashCode)
	assert.Equal(t, uint32(0x06000001), m2.Header().StartupToken)
}

func TestFirmwareRebuildInvalidatesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	m, err := NewManager(path, 16*1024, DefaultPageSize, fingerprint("build-A"))
	require.NoError(t, err)
	require.NoError(t, m.WriteHeader(Header{DataVersion: 1}))
	require.NoError(t, m.Close())

	m2, err := NewManager(path, 16*1024, DefaultPageSize, fingerprint("build-B"))
	require.NoError(t, err)
	defer m2.Close()

	valid, err := m2.Mount()
	require.NoError(t, err)
	assert.False(t, valid, "a different build fingerprint must invalidate the stored image (spec invariant I11)")
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	fp := fingerprint("build-A")
	m, err := NewManager(path, 16*1024, DefaultPageSize, fp)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.WriteHeader(Header{DataVersion: 1}))
	require.NoError(t, m.Clear())
	require.NoError(t, m.Clear())

	valid, err := m.Mount()
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestAllocRejectsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	m, err := NewManager(path, 512, DefaultPageSize, fingerprint("build-A"))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Alloc(1024)
	assert.Error(t, err)
}
