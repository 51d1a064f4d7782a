package vectorindex

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/bull/news-rag/internal/rag"
)

// snapshotVersion is bumped when the snapshot layout changes.
const snapshotVersion = 1

// snapshot is the gob-encoded form of a built BruteForceIndex.
type snapshot struct {
	Version   int
	Model     string
	Dimension int
	Entries   []Entry
	Removed   []uint64
}

// Save writes a snapshot of the index. model records the embedding model
// that produced the vectors so a reload can detect a mismatch.
func (b *BruteForceIndex) Save(w io.Writer, model string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.built {
		return rag.ErrIndexNotBuilt
	}

	snap := snapshot{
		Version:   snapshotVersion,
		Model:     model,
		Dimension: b.dim,
		Entries:   b.entries,
	}
	for h := range b.removed {
		snap.Removed = append(snap.Removed, h)
	}

	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadBruteForce restores an index written by Save. It returns the index
// and the embedding model name recorded in the snapshot.
func LoadBruteForce(r io.Reader) (*BruteForceIndex, string, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, "", fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	dim, err := validateEntries(snap.Entries)
	if err != nil {
		return nil, "", err
	}
	if dim != snap.Dimension {
		return nil, "", fmt.Errorf("%w: snapshot records %d dimensions, entries have %d",
			rag.ErrDimensionMismatch, snap.Dimension, dim)
	}

	idx := &BruteForceIndex{
		built:   true,
		dim:     dim,
		entries: snap.Entries,
		removed: make(map[uint64]bool, len(snap.Removed)),
	}
	for _, h := range snap.Removed {
		if h >= uint64(len(snap.Entries)) {
			return nil, "", fmt.Errorf("snapshot removes unknown handle %d of %d", h, len(snap.Entries))
		}
		idx.removed[h] = true
	}
	return idx, snap.Model, nil
}
