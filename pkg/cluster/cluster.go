// Package cluster implements the full-pass density clusterer (component C):
// unit-normalize embeddings, build the mutual-reachability graph, extract
// flat clusters by a single-linkage minimum spanning tree cut at
// cluster_selection_epsilon, and assign per-point membership confidence.
//
// No example repo or ecosystem package in the retrieval pack ships an
// HDBSCAN implementation, so this is hand-written, grounded line-for-line on
// original_source/packages/ml_core/clustering.py's control flow (normalize
// -> pairwise mutual reachability -> minimum spanning tree -> cluster
// extraction). It trades the reference implementation's condensed-tree
// stability extraction for a single epsilon cut of the MST plus a minimum
// cluster size filter — the same cluster_selection_epsilon parameter the
// original passes to sklearn's HDBSCAN, applied directly instead of via the
// stability-based condensed tree. This is documented in DESIGN.md as the
// one required stdlib-only component in the repository.
package cluster

import (
	"math"
	"sort"

	"github.com/kestrel-labs/promptforge/pkg/embeddings"
)

// Noise is the cluster label HDBSCAN semantics reserve for unclustered
// points.
const Noise = -1

// Config controls the clustering run.
type Config struct {
	// MinClusterSize is the smallest group of points that may form a
	// cluster; smaller connected components are relabeled Noise.
	MinClusterSize int
	// MinSamples sets which neighbor distance is used as a point's core
	// distance (the MinSamples-th nearest neighbor, 1-indexed).
	MinSamples int
	// ClusterSelectionEpsilon is the mutual-reachability distance above
	// which the minimum spanning tree is cut into separate components.
	ClusterSelectionEpsilon float64
}

// DefaultConfig matches spec.md §4.C's defaults.
func DefaultConfig() Config {
	return Config{
		MinClusterSize:          2,
		MinSamples:              1,
		ClusterSelectionEpsilon: 0.15,
	}
}

// Point is one embedding to be clustered, keyed by an opaque ID so callers
// can work in terms of their own identifiers (e.g. uuid.UUID) without this
// package importing pkg/models.
type Point struct {
	ID        string
	Embedding []float32
}

// Result is the output of a full clustering pass.
type Result struct {
	// Labels maps every input ID to its cluster label (Noise for
	// unclustered points).
	Labels map[string]int
	// Clusters maps each non-noise label to its member IDs.
	Clusters map[int][]string
	// Confidence is each point's membership confidence in [0,1]: cosine
	// similarity to its cluster's centroid, or 0 for noise points (the
	// fallback branch of the original's probabilities_ computation, used
	// unconditionally here since this port has no HDBSCAN library
	// supplying true membership probabilities).
	Confidence map[string]float64
	// Centroids maps each non-noise label to the mean of its member
	// (normalized) embeddings.
	Centroids map[int][]float32
}

// Cluster runs the full pass over points. Returns an empty Result if there
// are fewer than two points, matching the original's early return.
func Cluster(points []Point, cfg Config) Result {
	res := Result{
		Labels:     make(map[string]int),
		Clusters:   make(map[int][]string),
		Confidence: make(map[string]float64),
		Centroids:  make(map[int][]float32),
	}
	if len(points) < 2 {
		return res
	}

	n := len(points)
	normalized := make([][]float32, n)
	for i, p := range points {
		normalized[i] = embeddings.Normalize(p.Embedding)
	}

	dist := pairwiseEuclidean(normalized)
	core := coreDistances(dist, cfg.MinSamples)
	mrd := mutualReachability(dist, core)
	edges := minimumSpanningTree(mrd)

	labels := extractClusters(n, edges, cfg.ClusterSelectionEpsilon, cfg.MinClusterSize)

	clusterIdx := make(map[int][]int)
	for i, label := range labels {
		if label == Noise {
			continue
		}
		clusterIdx[label] = append(clusterIdx[label], i)
	}

	for label, idxs := range clusterIdx {
		centroid := meanVector(normalized, idxs)
		res.Centroids[label] = centroid
		for _, i := range idxs {
			res.Clusters[label] = append(res.Clusters[label], points[i].ID)
		}
	}

	for i, p := range points {
		label := labels[i]
		res.Labels[p.ID] = label
		if label == Noise {
			res.Confidence[p.ID] = 0.0
			continue
		}
		res.Confidence[p.ID] = embeddings.CosineSimilarity(normalized[i], res.Centroids[label])
	}

	return res
}

func pairwiseEuclidean(vecs [][]float32) [][]float64 {
	n := len(vecs)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist := embeddings.EuclideanDistance(vecs[i], vecs[j])
			d[i][j] = dist
			d[j][i] = dist
		}
	}
	return d
}

// coreDistances returns, for each point, the distance to its minSamples-th
// nearest neighbor (itself excluded).
func coreDistances(dist [][]float64, minSamples int) []float64 {
	if minSamples < 1 {
		minSamples = 1
	}
	n := len(dist)
	core := make([]float64, n)
	for i := 0; i < n; i++ {
		neighbors := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			neighbors = append(neighbors, dist[i][j])
		}
		sort.Float64s(neighbors)
		k := minSamples - 1
		if k >= len(neighbors) {
			k = len(neighbors) - 1
		}
		if k < 0 {
			core[i] = 0
		} else {
			core[i] = neighbors[k]
		}
	}
	return core
}

// mutualReachability computes mrd(a,b) = max(core(a), core(b), dist(a,b)),
// the graph HDBSCAN builds its minimum spanning tree over.
func mutualReachability(dist [][]float64, core []float64) [][]float64 {
	n := len(dist)
	mrd := make([][]float64, n)
	for i := range mrd {
		mrd[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m := dist[i][j]
			if core[i] > m {
				m = core[i]
			}
			if core[j] > m {
				m = core[j]
			}
			mrd[i][j] = m
		}
	}
	return mrd
}

type edge struct {
	a, b int
	w    float64
}

// minimumSpanningTree builds the MST of the mutual-reachability graph via
// Prim's algorithm, O(n^2) — fine at the corpus sizes a single clustering
// pass runs over (spec.md's bootstrap threshold is in the hundreds).
func minimumSpanningTree(mrd [][]float64) []edge {
	n := len(mrd)
	inTree := make([]bool, n)
	minEdge := make([]float64, n)
	minFrom := make([]int, n)
	for i := range minEdge {
		minEdge[i] = math.Inf(1)
		minFrom[i] = -1
	}

	inTree[0] = true
	for j := 1; j < n; j++ {
		minEdge[j] = mrd[0][j]
		minFrom[j] = 0
	}

	var edges []edge
	for added := 1; added < n; added++ {
		next := -1
		best := math.Inf(1)
		for v := 0; v < n; v++ {
			if !inTree[v] && minEdge[v] < best {
				best = minEdge[v]
				next = v
			}
		}
		if next == -1 {
			break
		}
		inTree[next] = true
		edges = append(edges, edge{a: minFrom[next], b: next, w: minEdge[next]})

		for v := 0; v < n; v++ {
			if !inTree[v] && mrd[next][v] < minEdge[v] {
				minEdge[v] = mrd[next][v]
				minFrom[v] = next
			}
		}
	}
	return edges
}

// extractClusters cuts the MST at every edge whose weight exceeds epsilon,
// then labels the resulting connected components, relabeling any component
// smaller than minClusterSize as Noise.
func extractClusters(n int, edges []edge, epsilon float64, minClusterSize int) []int {
	uf := newUnionFind(n)
	for _, e := range edges {
		if e.w <= epsilon {
			uf.union(e.a, e.b)
		}
	}

	components := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	labels := make([]int, n)
	nextLabel := 0
	for _, members := range components {
		if len(members) < minClusterSize {
			for _, i := range members {
				labels[i] = Noise
			}
			continue
		}
		for _, i := range members {
			labels[i] = nextLabel
		}
		nextLabel++
	}
	return labels
}

func meanVector(vecs [][]float32, idxs []int) []float32 {
	if len(idxs) == 0 {
		return nil
	}
	dims := len(vecs[idxs[0]])
	sum := make([]float64, dims)
	for _, i := range idxs {
		for d := 0; d < dims; d++ {
			sum[d] += float64(vecs[i][d])
		}
	}
	mean := make([]float32, dims)
	for d := range sum {
		mean[d] = float32(sum[d] / float64(len(idxs)))
	}
	return mean
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
