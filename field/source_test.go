package field

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContainer(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	name := []byte("geopotential_height")

	require.NoError(t, binary.Write(&buf, binary.BigEndian, binaryMagic))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(len(name))))
	buf.Write(name)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint8(1)))   // isGeopot
	require.NoError(t, binary.Write(&buf, binary.BigEndian, 1.0))       // scale
	require.NoError(t, binary.Write(&buf, binary.BigEndian, 0.0))       // offset
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1))) // nTime
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2))) // nLat
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2))) // nLon
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int64(0)))  // unix seconds, overridden below
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []float64{1, 0}))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []float64{0, 1}))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, make([]int16, 4)))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestFileSourceUsesUnixSecondsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.bwx")
	writeContainer(t, path)

	raw, err := FileSource{Path: path}.Load()
	require.NoError(t, err)
	require.Len(t, raw.Times, 1)
	assert.Equal(t, time.Unix(0, 0).UTC(), raw.Times[0])
}

// A ".reftime" sidecar overrides the container's embedded time axis with
// day-of-year reference times, the convention archives distributed without
// a Unix epoch use (mirroring the teacher's GSF reference-time parsing).
func TestFileSourceOverridesTimesFromReftimeSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.bwx")
	writeContainer(t, path)
	require.NoError(t, os.WriteFile(path+".reftime", []byte("2026 211 12:00:00\n"), 0o644))

	raw, err := FileSource{Path: path}.Load()
	require.NoError(t, err)
	require.Len(t, raw.Times, 1)
	assert.Equal(t, time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC), raw.Times[0])
}

func TestFileSourceRejectsReftimeSidecarWithWrongLineCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.bwx")
	writeContainer(t, path)
	require.NoError(t, os.WriteFile(path+".reftime", []byte("2026 211 12:00:00\n2026 212 12:00:00\n"), 0o644))

	_, err := FileSource{Path: path}.Load()
	assert.Error(t, err)
}
