// Package flash implements the flash memory manager (spec C7): a
// page-aligned bump allocator into an erase-block-sized partition, a
// header pinning all root-table offsets plus a build-timestamp
// fingerprint, and atomic-by-redo semantics (the header is stamped last,
// after every root is committed — a crash mid-freeze leaves the previous
// header, and therefore the previous image, intact).
//
// The partition is backed by a real file via the standard os package
// (the teacher's std/os is its own compiled-program runtime shim, not a
// dependency this engine process itself can import); this package plays
// the role original_source/FlashMemoryManager.cpp plays against real
// MCU flash, substituting a page-aligned file region for a flash device.
package flash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Identifier is the magic header value, spec.md §3.8.
const Identifier uint32 = 0x7AABCDBB

// DefaultPageSize is the erase-block alignment granularity assumed when
// the caller does not override it (spec.md §4.4 step 3: "flashAlloc(n)
// returns the next page-aligned address").
const DefaultPageSize = 256

// buildTimestampSize is the fixed width of the firmware build fingerprint
// embedded in the header (spec.md §3.8: "buildTimestamp[30]").
const buildTimestampSize = 30

// RootOffsets pins the page-aligned start of every frozen table inside
// the partition (spec.md §3.8 "roots={classes,methods,constants,clauses,
// stringHeap}").
type RootOffsets struct {
	Classes    uint32
	Methods    uint32
	Constants  uint32
	Clauses    uint32
	StringHeap uint32
}

// Header is the flash image header, spec.md §3.8.
type Header struct {
	Identifier             uint32
	DataVersion            uint32
	DataHashCode           uint32
	Roots                  RootOffsets
	EndOfHeap              uint32
	SpecialTokenListOffset uint32
	StartupToken           uint32
	StartupFlags           uint32
	StaticVectorMemorySize uint32
	BuildTimestamp         [buildTimestampSize]byte
}

// headerSize is Header's fixed on-disk width: 13 uint32 fields (52 bytes)
// plus the 30-byte timestamp.
const headerSize = 4*13 + buildTimestampSize

func (h *Header) marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h.Identifier)
	binary.Write(&buf, binary.LittleEndian, h.DataVersion)
	binary.Write(&buf, binary.LittleEndian, h.DataHashCode)
	binary.Write(&buf, binary.LittleEndian, h.Roots.Classes)
	binary.Write(&buf, binary.LittleEndian, h.Roots.Methods)
	binary.Write(&buf, binary.LittleEndian, h.Roots.Constants)
	binary.Write(&buf, binary.LittleEndian, h.Roots.Clauses)
	binary.Write(&buf, binary.LittleEndian, h.Roots.StringHeap)
	binary.Write(&buf, binary.LittleEndian, h.EndOfHeap)
	binary.Write(&buf, binary.LittleEndian, h.SpecialTokenListOffset)
	buf.Write(h.BuildTimestamp[:])
	binary.Write(&buf, binary.LittleEndian, h.StartupToken)
	binary.Write(&buf, binary.LittleEndian, h.StartupFlags)
	binary.Write(&buf, binary.LittleEndian, h.StaticVectorMemorySize)
	return buf.Bytes()
}

func unmarshalHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, fmt.Errorf("flash: header short read: %d < %d", len(b), headerSize)
	}
	var h Header
	r := bytes.NewReader(b)
	for _, f := range []*uint32{&h.Identifier, &h.DataVersion, &h.DataHashCode,
		&h.Roots.Classes, &h.Roots.Methods, &h.Roots.Constants, &h.Roots.Clauses,
		&h.Roots.StringHeap, &h.EndOfHeap, &h.SpecialTokenListOffset} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Header{}, err
		}
	}
	if _, err := r.Read(h.BuildTimestamp[:]); err != nil {
		return Header{}, err
	}
	for _, f := range []*uint32{&h.StartupToken, &h.StartupFlags, &h.StaticVectorMemorySize} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

// Manager is the flash memory manager (spec C7).
type Manager struct {
	file     *os.File
	size     int
	pageSize int

	fingerprint [buildTimestampSize]byte

	header Header
	valid  bool

	// next is the bump allocator's next free page-aligned offset, past
	// the header page (spec.md §4.4 step 3).
	next int
}

// NewManager opens (creating if necessary) a file-backed partition of
// size bytes at path. fingerprint is this firmware build's own
// build-timestamp fingerprint (spec.md I11), compared against any
// existing header on Mount.
func NewManager(path string, size, pageSize int, fingerprint [buildTimestampSize]byte) (*Manager, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flash: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("flash: stat %s: %w", path, err)
	}
	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("flash: truncate %s: %w", path, err)
		}
	}
	m := &Manager{file: f, size: size, pageSize: pageSize, fingerprint: fingerprint, next: pageAlign(headerSize, pageSize)}
	return m, nil
}

func pageAlign(n, pageSize int) int {
	if n%pageSize == 0 {
		return n
	}
	return (n/pageSize + 1) * pageSize
}

// Mount reads and validates the header (spec.md §4.4 steps 1-2): "map
// flash read-only; validate header. If header is valid, publish the root
// pointers; else return 'empty'." Returns valid=false, not an error, when
// the partition holds no recognizable image — a virgin or erased
// partition is an expected boot state, not a failure.
func (m *Manager) Mount() (valid bool, err error) {
	buf := make([]byte, headerSize)
	n, err := m.file.ReadAt(buf, 0)
	if err != nil && n < headerSize {
		return false, nil
	}
	h, err := unmarshalHeader(buf)
	if err != nil {
		return false, nil
	}
	if h.Identifier != Identifier {
		return false, nil
	}
	if !bytes.Equal(h.BuildTimestamp[:], m.fingerprint[:]) {
		// spec.md I11: a firmware rebuild invalidates every stored image.
		return false, nil
	}
	m.header = h
	m.valid = true
	m.next = pageAlign(int(h.EndOfHeap), m.pageSize)
	return true, nil
}

// Valid reports whether the mounted image passed Mount's checks.
func (m *Manager) Valid() bool { return m.valid }

// Header returns the currently mounted (or most recently written) header.
func (m *Manager) Header() Header { return m.header }

// Alloc returns the next page-aligned address inside flash; no write
// happens yet (spec.md §4.4 step 3).
func (m *Manager) Alloc(n int) (int, error) {
	addr := m.next
	end := addr + n
	if end > m.size {
		return 0, fmt.Errorf("flash: alloc %d bytes at %#x exceeds partition size %d", n, addr, m.size)
	}
	m.next = pageAlign(end, m.pageSize)
	return addr, nil
}

// CopyToFlash allocates room for data and writes it through to the
// partition (spec.md §4.4 step 4: "writes bytes through the board's flash
// writer. The destination must lie within the reserved extent. n == 0 is
// a no-op."). Returns the address data was written at.
func (m *Manager) CopyToFlash(data []byte) (int, error) {
	if len(data) == 0 {
		return m.next, nil
	}
	addr, err := m.Alloc(len(data))
	if err != nil {
		return 0, err
	}
	if _, err := m.file.WriteAt(data, int64(addr)); err != nil {
		return 0, fmt.Errorf("flash: write %d bytes at %#x: %w", len(data), addr, err)
	}
	return addr, nil
}

// WriteHeader stamps the header last, after every root is committed
// (spec.md §4.4 step 6), finalizing the image. EndOfHeap and
// BuildTimestamp are filled in from the manager's own bookkeeping rather
// than trusted from the caller, so a caller cannot accidentally mint an
// image that validates against a stale extent or the wrong firmware.
func (m *Manager) WriteHeader(h Header) error {
	h.Identifier = Identifier
	h.EndOfHeap = uint32(m.next)
	h.BuildTimestamp = m.fingerprint
	if _, err := m.file.WriteAt(h.marshal(), 0); err != nil {
		return fmt.Errorf("flash: write header: %w", err)
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("flash: sync header: %w", err)
	}
	m.header = h
	m.valid = true
	return nil
}

// Clear erases the entire flash partition in one range erase (spec.md
// §4.4 step 5); idempotent if already clear.
func (m *Manager) Clear() error {
	zero := make([]byte, m.size)
	if _, err := m.file.WriteAt(zero, 0); err != nil {
		return fmt.Errorf("flash: erase: %w", err)
	}
	m.valid = false
	m.header = Header{}
	m.next = pageAlign(headerSize, m.pageSize)
	return nil
}

// ReadAt reads n bytes back from the partition at addr, for restoring a
// frozen table after Mount (spec.md §4.4 step 2: "publish the root
// pointers").
func (m *Manager) ReadAt(addr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := m.file.ReadAt(buf, int64(addr)); err != nil {
		return nil, fmt.Errorf("flash: read %d bytes at %#x: %w", n, addr, err)
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (m *Manager) Close() error { return m.file.Close() }

// Size reports the partition's total byte capacity.
func (m *Manager) Size() int { return m.size }
