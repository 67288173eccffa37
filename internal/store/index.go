package store

import (
	"github.com/coder/hnsw"

	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// hammingMaxNeighbors is the HNSW M parameter.
const hammingMaxNeighbors = 16

// hammingIndex is an in-memory HNSW accelerator over stored fingerprints.
// Bits are unpacked to 0/1 float32 vectors, where Euclidean distance is the
// square root of Hamming distance, so graph neighborhoods follow Hamming
// neighborhoods exactly. Search is approximate: callers must re-verify every
// candidate with an exact distance, and a true match can still be missed.
//
// Not safe for concurrent use; the owning store serializes access.
type hammingIndex struct {
	graph   *hnsw.Graph[string]
	idToRec map[string]*Record
}

func newHammingIndex() *hammingIndex {
	g := hnsw.NewGraph[string]()
	g.M = hammingMaxNeighbors
	g.Ml = 1.0 / float64(hammingMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return &hammingIndex{
		graph:   g,
		idToRec: make(map[string]*Record),
	}
}

// Add indexes one record. The record is retained by reference.
func (h *hammingIndex) Add(rec *Record) {
	h.graph.Add(hnsw.MakeNode(rec.ID, bitVector(rec.Fingerprint)))
	h.idToRec[rec.ID] = rec
}

// Delete drops a record from search results. The graph node stays behind
// (HNSW has no true deletion) and is filtered out by the idToRec lookup.
func (h *hammingIndex) Delete(id string) {
	delete(h.idToRec, id)
}

// Search returns up to k nearest stored records to the query fingerprint.
func (h *hammingIndex) Search(fp *fingerprint.Fingerprint, k int) []Record {
	neighbors := h.graph.Search(bitVector(fp), k)

	records := make([]Record, 0, len(neighbors))
	for _, n := range neighbors {
		if rec, ok := h.idToRec[n.Key]; ok {
			records = append(records, *rec)
		}
	}
	return records
}

// Count returns the number of searchable records.
func (h *hammingIndex) Count() int {
	return len(h.idToRec)
}

// bitVector unpacks a fingerprint to the 0/1 float32 form the graph stores.
func bitVector(fp *fingerprint.Fingerprint) []float32 {
	v := make([]float32, fp.Len())
	for i := range v {
		if fp.Bit(i) {
			v[i] = 1
		}
	}
	return v
}
