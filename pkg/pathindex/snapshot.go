package pathindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/klauspost/compress/zstd"

	"gfa_index/pkg/graph"
)

const (
	magicBytes = "GFAPIDX1"
	version    = uint32(1)
	maxNodes   = 1 << 31
	maxPaths   = 1 << 24
	maxSteps   = 1 << 32
	maxBlob    = 1 << 31
	maxName    = 1 << 16
)

var ErrBadSnapshot = errors.New("bad snapshot")

// fileHeader is stored uncompressed ahead of the zstd body.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumPaths uint32
	MinID    uint32
	MaxID    uint32
	_        uint32
	TotalLen uint64
}

// WriteSnapshot serializes idx to path. The file is written to a temporary
// name and renamed into place.
func WriteSnapshot(path string, idx *PathIndex) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(idx.nodeCount),
		NumPaths: uint32(len(idx.pathSteps)),
		MinID:    idx.segmentIDRange[0],
		MaxID:    idx.segmentIDRange[1],
		TotalLen: uint64(idx.sequenceTotalLen),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc, err := zstd.NewWriter(f,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	crcWriter := crc32Writer{w: enc, hash: crc32.NewIEEE()}
	w := &crcWriter

	if err := writeBitmap(w, idx.segmentOffsets); err != nil {
		return fmt.Errorf("write segment offsets: %w", err)
	}
	for p, steps := range idx.pathSteps {
		if err := writeLenPrefixed(w, []byte(idx.names[p])); err != nil {
			return fmt.Errorf("write path %d name: %w", p, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(idx.pathLens[p])); err != nil {
			return fmt.Errorf("write path %q length: %w", idx.names[p], err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(steps))); err != nil {
			return fmt.Errorf("write path %q step count: %w", idx.names[p], err)
		}
		if err := writeSlice(w, steps); err != nil {
			return fmt.Errorf("write path %q steps: %w", idx.names[p], err)
		}
		if err := writeBitmap(w, idx.pathStepOffsets[p]); err != nil {
			return fmt.Errorf("write path %q step offsets: %w", idx.names[p], err)
		}
		if err := writeBitmap(w, idx.pathNodeSets[p]); err != nil {
			return fmt.Errorf("write path %q node set: %w", idx.names[p], err)
		}
	}

	// The trailer goes through the compressor but not the hash.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(enc, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush zstd: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadSnapshot loads an index written by WriteSnapshot and validates it.
func ReadSnapshot(path string) (*PathIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var hdr fileHeader
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: invalid magic bytes %q", ErrBadSnapshot, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, hdr.Version)
	}
	if hdr.NumNodes == 0 || hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("%w: NumNodes %d out of range", ErrBadSnapshot, hdr.NumNodes)
	}
	if hdr.NumPaths > maxPaths {
		return nil, fmt.Errorf("%w: NumPaths %d exceeds limit %d", ErrBadSnapshot, hdr.NumPaths, maxPaths)
	}
	if hdr.MaxID-hdr.MinID != hdr.NumNodes-1 {
		return nil, fmt.Errorf("%w: id range %d..%d for %d nodes", ErrBadSnapshot, hdr.MinID, hdr.MaxID, hdr.NumNodes)
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	crcReader := crc32Reader{r: dec, hash: crc32.NewIEEE()}
	r := &crcReader

	idx := &PathIndex{
		nodeCount:        int(hdr.NumNodes),
		segmentOffsets:   roaring64.New(),
		sequenceTotalLen: graph.Bp(hdr.TotalLen),
		segmentIDRange:   [2]uint32{hdr.MinID, hdr.MaxID},
		pathNames:        make(map[string]graph.PathID, hdr.NumPaths),
	}
	if err := readBitmap(r, idx.segmentOffsets); err != nil {
		return nil, fmt.Errorf("read segment offsets: %w", err)
	}
	for p := range hdr.NumPaths {
		name, err := readLenPrefixed(r, maxName)
		if err != nil {
			return nil, fmt.Errorf("read path %d name: %w", p, err)
		}
		var pathLen, numSteps uint64
		if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
			return nil, fmt.Errorf("read path %q length: %w", name, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &numSteps); err != nil {
			return nil, fmt.Errorf("read path %q step count: %w", name, err)
		}
		if numSteps > maxSteps {
			return nil, fmt.Errorf("%w: path %q has %d steps", ErrBadSnapshot, name, numSteps)
		}
		steps, err := readSlice[graph.OrientedNode](r, int(numSteps))
		if err != nil {
			return nil, fmt.Errorf("read path %q steps: %w", name, err)
		}
		stepOffsets := roaring64.New()
		if err := readBitmap(r, stepOffsets); err != nil {
			return nil, fmt.Errorf("read path %q step offsets: %w", name, err)
		}
		nodes := roaring.New()
		if err := readBitmap(r, nodes); err != nil {
			return nil, fmt.Errorf("read path %q node set: %w", name, err)
		}
		if _, dup := idx.pathNames[string(name)]; dup {
			return nil, fmt.Errorf("%w: %w: %q", ErrBadSnapshot, ErrDuplicatePath, name)
		}
		idx.pathNames[string(name)] = graph.PathID(p)
		idx.names = append(idx.names, string(name))
		idx.pathSteps = append(idx.pathSteps, steps)
		idx.pathStepOffsets = append(idx.pathStepOffsets, stepOffsets)
		idx.pathNodeSets = append(idx.pathNodeSets, nodes)
		idx.pathLens = append(idx.pathLens, graph.Bp(pathLen))
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(dec, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrBadSnapshot, storedCRC, expectedCRC)
	}

	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	return idx, nil
}

type binaryBitmap interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

func writeBitmap(w io.Writer, bm binaryBitmap) error {
	b, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	return writeLenPrefixed(w, b)
}

func readBitmap(r io.Reader, bm binaryBitmap) error {
	b, err := readLenPrefixed(r, maxBlob)
	if err != nil {
		return err
	}
	return bm.UnmarshalBinary(b)
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader, limit uint64) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: length %d exceeds limit %d", ErrBadSnapshot, n, limit)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Zero-copy I/O helpers using unsafe.Slice. Snapshots use host byte order
// for these arrays; all supported targets are little-endian.

func writeSlice[T ~uint32 | ~uint64](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(s[0]))
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*size)
	_, err := w.Write(b)
	return err
}

func readSlice[T ~uint32 | ~uint64](r io.Reader, n int) ([]T, error) {
	if n == 0 {
		return []T{}, nil
	}
	s := make([]T, n)
	size := int(unsafe.Sizeof(s[0]))
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash hash.Hash32
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
