// Package dedup implements the Deduplication Index: exact-hit and near-hit
// lookups over the corpus's fingerprints.
//
// Per the "shared mutable SimHash index" redesign note, the database is the
// source of truth; Index is a per-process, per-worker-run cache rebuilt from
// it at startup (see NewFromStore) rather than a persistent structure of its
// own.
package dedup

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/normalize"
)

// DefaultThreshold is the default Hamming-distance cutoff for a near-hit.
const DefaultThreshold = 3

type entry struct {
	id      uuid.UUID
	hash    string
	simhash uint64
}

// Index answers exact-hit and near-hit predicates against the corpus's
// fingerprints. It is safe for concurrent reads; writes (Add) are expected
// to come from a single ingestion path at a time, matching the
// single-cooperative-worker concurrency model in SPEC_FULL.md §5.
type Index struct {
	threshold int

	byHash map[string]entry
	byID   map[uuid.UUID]entry

	// blocks[b][blockValue] -> candidate ids, the pigeonhole acceleration
	// structure. blockShift/blockMask carve the 64-bit SimHash into
	// len(blocks) = threshold+1 contiguous partitions, sized as evenly as
	// possible: any two fingerprints within Hamming distance threshold
	// differ on at most threshold bits, so by the pigeonhole principle at
	// least one of the threshold+1 partitions must agree on both sides
	// exactly. This is what makes the blocked scan a sound (not just
	// fast) approximation of the full linear scan at the configured
	// threshold, rather than only at the threshold the block width was
	// tuned for. Rebuilt alongside byHash/byID; never persisted.
	blocks     []map[uint64][]uuid.UUID
	blockShift []uint
	blockMask  []uint64
}

// New creates an empty index with the given near-duplicate threshold (bits).
func New(threshold int) *Index {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	shift, mask := blockLayout(threshold)
	idx := &Index{
		threshold:  threshold,
		byHash:     make(map[string]entry),
		byID:       make(map[uuid.UUID]entry),
		blockShift: shift,
		blockMask:  mask,
		blocks:     make([]map[uint64][]uuid.UUID, len(shift)),
	}
	for b := range idx.blocks {
		idx.blocks[b] = make(map[uint64][]uuid.UUID)
	}
	return idx
}

// blockLayout partitions the 64 SimHash bits into threshold+1 contiguous
// blocks (capped at 64, so every block keeps at least one bit), as evenly
// sized as possible, and returns each block's shift and mask.
func blockLayout(threshold int) (shifts []uint, masks []uint64) {
	n := threshold + 1
	if n > 64 {
		n = 64
	}
	base, rem := 64/n, 64%n
	shifts = make([]uint, n)
	masks = make([]uint64, n)

	shift := uint(0)
	for b := 0; b < n; b++ {
		width := base
		if b < rem {
			width++
		}
		shifts[b] = shift
		masks[b] = (uint64(1) << uint(width)) - 1
		shift += uint(width)
	}
	return shifts, masks
}

// StoredFingerprint is the minimal shape NewFromStore needs from a
// persisted prompt; pkg/models.Prompt satisfies it structurally via the
// caller's own adapter (kept decoupled so this package never imports
// pkg/database, per the "break cycles via persistence interface" redesign
// note).
type StoredFingerprint struct {
	ID        uuid.UUID
	DedupHash string
	SimHash   string
}

// NewFromStore rebuilds an Index from every fingerprint currently
// persisted. Call this once per worker run at startup.
func NewFromStore(threshold int, rows []StoredFingerprint) (*Index, error) {
	idx := New(threshold)
	for _, row := range rows {
		fp, err := normalize.ParseSimHashHex(row.SimHash)
		if err != nil {
			return nil, err
		}
		idx.insert(row.ID, row.DedupHash, fp)
	}
	return idx, nil
}

func (idx *Index) insert(id uuid.UUID, hash string, fp uint64) {
	e := entry{id: id, hash: hash, simhash: fp}
	idx.byHash[hash] = e
	idx.byID[id] = e
	for b := range idx.blocks {
		bv := idx.blockValue(fp, b)
		idx.blocks[b][bv] = append(idx.blocks[b][bv], id)
	}
}

func (idx *Index) blockValue(fp uint64, block int) uint64 {
	return (fp >> idx.blockShift[block]) & idx.blockMask[block]
}

// Add records a newly-kept prompt's fingerprints in the index.
func (idx *Index) Add(id uuid.UUID, hash string, simhash uint64) {
	idx.insert(id, hash, simhash)
}

// Size returns the number of indexed prompts.
func (idx *Index) Size() int {
	return len(idx.byID)
}

// ExactHit reports whether hash matches a stored fingerprint, returning the
// matching prompt ID.
func (idx *Index) ExactHit(hash string) (uuid.UUID, bool) {
	e, ok := idx.byHash[hash]
	if !ok {
		return uuid.Nil, false
	}
	return e.id, true
}

// NearHit returns the ID of the smallest-distance stored prompt whose
// SimHash lies within the index's threshold, and the distance. The second
// return is false ("⊥") if no fingerprint qualifies.
//
// The blocked scan below only ever visits candidates guaranteed by the
// pigeonhole property to share a block with fp, so its result set is
// identical to a full O(n) scan at the same threshold — it is a permitted
// optimization, not a relaxation of the contract.
func (idx *Index) NearHit(fp uint64) (uuid.UUID, int, bool) {
	best := uuid.Nil
	bestDist := idx.threshold + 1
	seen := make(map[uuid.UUID]struct{})

	for b := range idx.blocks {
		bv := idx.blockValue(fp, b)
		for _, id := range idx.blocks[b][bv] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			e := idx.byID[id]
			d := normalize.HammingDistance(fp, e.simhash)
			if d <= idx.threshold && d < bestDist {
				bestDist = d
				best = id
			}
		}
	}

	if best == uuid.Nil {
		return uuid.Nil, 0, false
	}
	return best, bestDist, true
}

// NearHitScan is the reference linear-scan implementation of NearHit,
// retained to verify the blocked index's result set matches it exactly.
func (idx *Index) NearHitScan(fp uint64) (uuid.UUID, int, bool) {
	type hit struct {
		id   uuid.UUID
		dist int
	}
	var hits []hit
	for id, e := range idx.byID {
		d := normalize.HammingDistance(fp, e.simhash)
		if d <= idx.threshold {
			hits = append(hits, hit{id, d})
		}
	}
	if len(hits) == 0 {
		return uuid.Nil, 0, false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	return hits[0].id, hits[0].dist, true
}

// Outcome classifies the result of submitting a candidate to the index.
type Outcome int

const (
	// Kept means the candidate was neither an exact nor a near duplicate
	// and has been recorded in the index.
	Kept Outcome = iota
	ExactDuplicate
	NearDuplicate
)

// Candidate is the result of evaluating a new prompt against the index.
type Candidate struct {
	Outcome  Outcome
	MatchID  uuid.UUID // set for ExactDuplicate/NearDuplicate
	Distance int       // set for NearDuplicate
}

// Evaluate implements the behavior spec.md §4.B describes for a new
// candidate: exact-hit wins over near-hit; otherwise the candidate is
// admitted and indexed under id.
func (idx *Index) Evaluate(id uuid.UUID, normalizedText string) Candidate {
	hash := normalize.ExactFingerprint(normalizedText)
	if matchID, ok := idx.ExactHit(hash); ok {
		return Candidate{Outcome: ExactDuplicate, MatchID: matchID}
	}

	fp := normalize.SimHash(normalizedText)
	if matchID, dist, ok := idx.NearHit(fp); ok {
		return Candidate{Outcome: NearDuplicate, MatchID: matchID, Distance: dist}
	}

	idx.Add(id, hash, fp)
	return Candidate{Outcome: Kept}
}
