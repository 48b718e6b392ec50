package device

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

// Binary snapshot format for a preprocessed device graph, adapted from the
// teacher's pkg/graph/binary.go: a fixed header, flat CSR arrays written
// with unsafe.Slice for zero-copy I/O, and a CRC32 trailer validated on
// read. This is the one artifact a device-database reader (out of scope)
// would hand to the router; fpgaroute never constructs it from a real
// checkpoint, only from the in-memory fixtures tests build with New.
const (
	magicBytes = "FPGAROUT"
	version    = uint32(1)
	maxNodes   = 50_000_000
	maxEdges   = 500_000_000
)

type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	NumNodes    uint32
	NumDownEdge uint32
	NumUpEdge   uint32
}

// WriteBinary serializes g to path, writing to a temp file and renaming
// atomically on success.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	hdr := fileHeader{
		Version:     version,
		NumNodes:    g.NumNodes,
		NumDownEdge: uint32(len(g.DownHead)),
		NumUpEdge:   uint32(len(g.UpHead)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := writeUint32s(cw, g.DownFirstOut); err != nil {
		return fmt.Errorf("write DownFirstOut: %w", err)
	}
	if err := writeNodeIDs(cw, g.DownHead); err != nil {
		return fmt.Errorf("write DownHead: %w", err)
	}
	if err := writeUint32s(cw, g.UpFirstOut); err != nil {
		return fmt.Errorf("write UpFirstOut: %w", err)
	}
	if err := writeNodeIDs(cw, g.UpHead); err != nil {
		return fmt.Errorf("write UpHead: %w", err)
	}
	if err := writeIntents(cw, g.Intent); err != nil {
		return fmt.Errorf("write Intent: %w", err)
	}
	if err := writeInt32s(cw, g.X); err != nil {
		return fmt.Errorf("write X: %w", err)
	}
	if err := writeInt32s(cw, g.Y); err != nil {
		return fmt.Errorf("write Y: %w", err)
	}
	if err := writeInt32s(cw, g.Length); err != nil {
		return fmt.Errorf("write Length: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// ReadBinary deserializes a Graph from path, validating the header and
// trailing CRC32.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumDownEdge > maxEdges || hdr.NumUpEdge > maxEdges {
		return nil, fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}

	g := &Graph{NumNodes: hdr.NumNodes}
	if g.DownFirstOut, err = readUint32s(cr, int(hdr.NumNodes+1)); err != nil {
		return nil, fmt.Errorf("read DownFirstOut: %w", err)
	}
	if g.DownHead, err = readNodeIDs(cr, int(hdr.NumDownEdge)); err != nil {
		return nil, fmt.Errorf("read DownHead: %w", err)
	}
	if g.UpFirstOut, err = readUint32s(cr, int(hdr.NumNodes+1)); err != nil {
		return nil, fmt.Errorf("read UpFirstOut: %w", err)
	}
	if g.UpHead, err = readNodeIDs(cr, int(hdr.NumUpEdge)); err != nil {
		return nil, fmt.Errorf("read UpHead: %w", err)
	}
	if g.Intent, err = readIntents(cr, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read Intent: %w", err)
	}
	if g.X, err = readInt32s(cr, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read X: %w", err)
	}
	if g.Y, err = readInt32s(cr, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read Y: %w", err)
	}
	if g.Length, err = readInt32s(cr, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read Length: %w", err)
	}

	expected := cr.hash.Sum32()
	var stored uint32
	if err := binary.Read(f, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if stored != expected {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", stored, expected)
	}

	if err := validateCSR(g.DownFirstOut, g.NumNodes); err != nil {
		return nil, fmt.Errorf("downhill CSR invalid: %w", err)
	}
	if err := validateCSR(g.UpFirstOut, g.NumNodes); err != nil {
		return nil, fmt.Errorf("uphill CSR invalid: %w", err)
	}
	return g, nil
}

func validateCSR(firstOut []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	return nil
}

func writeUint32s(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32s(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeNodeIDs(w io.Writer, s []NodeID) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeIntents(w io.Writer, s []IntentCode) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s))
	_, err := w.Write(b)
	return err
}

func readUint32s(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	_, err := io.ReadFull(r, b)
	return s, err
}

func readInt32s(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	_, err := io.ReadFull(r, b)
	return s, err
}

func readNodeIDs(r io.Reader, n int) ([]NodeID, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]NodeID, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	_, err := io.ReadFull(r, b)
	return s, err
}

func readIntents(r io.Reader, n int) ([]IntentCode, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]IntentCode, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n)
	_, err := io.ReadFull(r, b)
	return s, err
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
