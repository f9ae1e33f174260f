package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_Embedded(t *testing.T) {
	all, err := Pending(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "001_records", all[0].Name)
	assert.Contains(t, all[0].SQL, "CREATE TABLE IF NOT EXISTS records")
	assert.Equal(t, "002_ingested_files", all[1].Name)

	rest, err := Pending(1)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, 2, rest[0].Version)

	none, err := Pending(2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPending_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"10_late.up.sql":   {Data: []byte("-- 10")},
		"2_early.up.sql":   {Data: []byte("-- 2")},
		"2_early.down.sql": {Data: []byte("-- ignored")},
		"notes.txt":        {Data: []byte("ignored")},
	}

	got, err := pending(fsys, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int{2, 10}, []int{got[0].Version, got[1].Version})
}

func TestPending_Rejects(t *testing.T) {
	_, err := pending(fstest.MapFS{"records.up.sql": {}}, 0)
	assert.ErrorContains(t, err, "version number")

	_, err = pending(fstest.MapFS{"3_a.up.sql": {}, "003_b.up.sql": {}}, 0)
	assert.ErrorContains(t, err, "share version 3")
}
