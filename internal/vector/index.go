// Package vector provides the persisted vector index and its query store.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrIndexCorrupt is returned when the on-disk index cannot be deserialized.
var ErrIndexCorrupt = errors.New("vector index corrupt")

// indexMagic identifies the index file format.
const indexMagic = uint32(0x41435256) // "ACRV"

// maxIDLen bounds the per-entry id length read from disk, so a corrupt
// length field cannot force a huge allocation before decoding fails.
const maxIDLen = 1024

// Result is a single nearest-neighbor hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64
}

// Index is a brute-force inner-product index over unit-length vectors.
// It holds (chunk ID, vector) pairs in insertion order and persists them in a
// little-endian binary format with a magic and dimension header.
type Index struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewIndex creates an empty index with the given dimension.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &Index{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs. Duplicate IDs are appended as-is;
// the index does not deduplicate.
func (x *Index) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != x.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), x.dimensions)
		}
		vec := make([]float32, x.dimensions)
		copy(vec, vectors[i])
		x.ids = append(x.ids, id)
		x.vectors = append(x.vectors, vec)
	}
	return nil
}

// Search returns the top-k entries by inner product, best first. Ties keep
// insertion order, so repeated searches against an unchanged index are
// deterministic.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(x.vectors))
	for i, vec := range x.vectors {
		var dot float64
		for j := 0; j < x.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		scores[i] = scored{pos: i, score: dot}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]*Result, k)
	for i := 0; i < k; i++ {
		results[i] = &Result{ID: x.ids[scores[i].pos], Score: scores[i].score}
	}
	return results, nil
}

// Size returns the number of vectors in the index.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Save persists the index to path atomically: the file is written to a
// temporary name in the same directory and renamed over the target, so a
// crash mid-write never leaves a partially written index behind.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if path == "" {
		return errors.New("index path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpName := tmp.Name()
	if err := x.writeTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap index file: %w", err)
	}
	return nil
}

func (x *Index) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, indexMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(x.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(x.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range x.ids {
		idBytes := []byte(id)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(x.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index at path, replacing in-memory contents. A missing file
// is reported via os.ErrNotExist; an undecodable file or a dimension header
// that disagrees with the index wraps ErrIndexCorrupt.
func (x *Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var magic, dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("%w: read header: %v", ErrIndexCorrupt, err)
	}
	if magic != indexMagic {
		return fmt.Errorf("%w: bad magic 0x%x", ErrIndexCorrupt, magic)
	}
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("%w: read dimensions: %v", ErrIndexCorrupt, err)
	}
	if int(dim) != x.dimensions {
		return fmt.Errorf("index dimension mismatch: file has %d, configured %d", dim, x.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: read count: %v", ErrIndexCorrupt, err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, x.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("%w: read id len: %v", ErrIndexCorrupt, err)
		}
		if idLen > maxIDLen {
			return fmt.Errorf("%w: id length %d exceeds limit %d", ErrIndexCorrupt, idLen, maxIDLen)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("%w: read id: %v", ErrIndexCorrupt, err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("%w: read vector: %v", ErrIndexCorrupt, err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = ids
	x.vectors = vectors
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
