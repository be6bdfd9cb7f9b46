package field

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/weathercore/blockwatch/xerr"
)

// StaticSource is an in-memory Source, for any caller that has already
// decoded a RawField some other way.
type StaticSource struct {
	Raw RawField
}

// Load returns the wrapped RawField.
func (s StaticSource) Load() (RawField, error) {
	return s.Raw, nil
}

// binaryMagic tags blockwatch's own minimal framed container: a
// byte-for-byte record layout in the spirit of the teacher's hand-rolled
// RecordHdr decoding (decode/record.go), used here because no fetchable
// NetCDF/GRIB binding is wired (see DESIGN.md). Layout, all big-endian:
//
//	magic       [4]byte  "BWX1"
//	longName    uint16 length, then that many bytes
//	isGeopot    uint8 (0/1)
//	scale       float64
//	offset      float64
//	nTime       uint32
//	nLat        uint32
//	nLon        uint32
//	times       nTime * int64 (unix seconds)
//	lats        nLat * float64
//	lons        nLon * float64
//	data        nTime*nLat*nLon * int16
var binaryMagic = [4]byte{'B', 'W', 'X', '1'}

// FileSource reads blockwatch's own minimal gridded binary container from
// disk (the "self-describing gridded binary format" of spec §6).
type FileSource struct {
	Path string
}

// Load opens and decodes the container at s.Path.
func (s FileSource) Load() (RawField, error) {
	fh, err := os.Open(s.Path)
	if err != nil {
		return RawField{}, fmt.Errorf("opening %s: %w", s.Path, xerr.ErrIO)
	}
	defer fh.Close()

	r := bufio.NewReader(fh)

	var magic [4]byte
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return RawField{}, fmt.Errorf("reading magic: %w", xerr.ErrIO)
	}
	if magic != binaryMagic {
		return RawField{}, fmt.Errorf("%s is not a blockwatch container: %w", s.Path, xerr.ErrFormat)
	}

	var nameLen uint16
	if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
		return RawField{}, fmt.Errorf("reading long_name length: %w", xerr.ErrFormat)
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return RawField{}, fmt.Errorf("reading long_name: %w", xerr.ErrFormat)
	}

	var isGeopot uint8
	var scale, offset float64
	var nTime, nLat, nLon uint32

	for _, target := range []any{&isGeopot, &scale, &offset, &nTime, &nLat, &nLon} {
		if err := binary.Read(r, binary.BigEndian, target); err != nil {
			return RawField{}, fmt.Errorf("reading header field: %w", xerr.ErrFormat)
		}
	}

	times := make([]time.Time, nTime)
	for i := range times {
		var sec int64
		if err := binary.Read(r, binary.BigEndian, &sec); err != nil {
			return RawField{}, fmt.Errorf("reading time axis: %w", xerr.ErrFormat)
		}
		times[i] = time.Unix(sec, 0).UTC()
	}

	lats := make([]float64, nLat)
	if err := binary.Read(r, binary.BigEndian, &lats); err != nil {
		return RawField{}, fmt.Errorf("reading latitude axis: %w", xerr.ErrFormat)
	}
	lons := make([]float64, nLon)
	if err := binary.Read(r, binary.BigEndian, &lons); err != nil {
		return RawField{}, fmt.Errorf("reading longitude axis: %w", xerr.ErrFormat)
	}

	data := make([]int16, int(nTime)*int(nLat)*int(nLon))
	if err := binary.Read(r, binary.BigEndian, &data); err != nil {
		return RawField{}, fmt.Errorf("reading data variable: %w", xerr.ErrFormat)
	}

	if override, err := loadReferenceTimes(s.Path, len(times)); err != nil {
		return RawField{}, err
	} else if override != nil {
		times = override
	}

	return RawField{
		Times:          times,
		Lats:           lats,
		Lons:           lons,
		Data:           data,
		Scale:          scale,
		Offset:         offset,
		LongName:       string(nameBuf),
		IsGeopotential: isGeopot != 0,
	}, nil
}

// loadReferenceTimes overrides the container's embedded unix-second time
// axis with a sidecar "<path>.reftime" file, one "yyyy ddd hh:mm:ss" line
// per time step, when that sidecar exists. Some archives distribute frames
// labelled only by day-of-year reference time rather than a Unix epoch
// (spec §1's "self-describing container" leaves the time encoding to the
// source); this lets such an archive be read without re-deriving its
// calendar dates by hand. Returns (nil, nil) if no sidecar is present.
func loadReferenceTimes(path string, want int) ([]time.Time, error) {
	data, err := os.ReadFile(path + ".reftime")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s.reftime: %w", path, xerr.ErrIO)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != want {
		return nil, fmt.Errorf("%s.reftime has %d lines, want %d: %w", path, len(lines), want, xerr.ErrFormat)
	}

	times := make([]time.Time, len(lines))
	for i, line := range lines {
		t, err := ParseReferenceTime(line)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return times, nil
}
