package cluster

import "testing"

func vec(xs ...float32) []float32 { return xs }

func TestCluster_TooFewPoints(t *testing.T) {
	res := Cluster([]Point{{ID: "a", Embedding: vec(1, 0)}}, DefaultConfig())
	if len(res.Labels) != 0 {
		t.Errorf("expected empty result for <2 points, got %+v", res)
	}
}

func TestCluster_TwoTightGroupsSeparate(t *testing.T) {
	points := []Point{
		{ID: "a1", Embedding: vec(1, 0, 0)},
		{ID: "a2", Embedding: vec(0.99, 0.01, 0)},
		{ID: "a3", Embedding: vec(0.98, 0.02, 0)},
		{ID: "b1", Embedding: vec(0, 1, 0)},
		{ID: "b2", Embedding: vec(0.01, 0.99, 0)},
		{ID: "b3", Embedding: vec(0, 0.98, 0.02)},
	}
	cfg := Config{MinClusterSize: 2, MinSamples: 1, ClusterSelectionEpsilon: 0.15}
	res := Cluster(points, cfg)

	aLabel := res.Labels["a1"]
	bLabel := res.Labels["b1"]
	if aLabel == Noise || bLabel == Noise {
		t.Fatalf("expected both groups to form clusters, got labels %+v", res.Labels)
	}
	if aLabel == bLabel {
		t.Fatalf("expected two distinct clusters, got same label %d for both groups", aLabel)
	}
	for _, id := range []string{"a2", "a3"} {
		if res.Labels[id] != aLabel {
			t.Errorf("expected %s to share a1's cluster", id)
		}
	}
	for _, id := range []string{"b2", "b3"} {
		if res.Labels[id] != bLabel {
			t.Errorf("expected %s to share b1's cluster", id)
		}
	}
	if len(res.Clusters) != 2 {
		t.Errorf("expected 2 clusters, got %d", len(res.Clusters))
	}
}

func TestCluster_OutlierIsNoise(t *testing.T) {
	points := []Point{
		{ID: "a1", Embedding: vec(1, 0, 0)},
		{ID: "a2", Embedding: vec(0.99, 0.01, 0)},
		{ID: "a3", Embedding: vec(0.98, 0.02, 0)},
		{ID: "outlier", Embedding: vec(0, 0, 1)},
	}
	cfg := Config{MinClusterSize: 2, MinSamples: 1, ClusterSelectionEpsilon: 0.15}
	res := Cluster(points, cfg)

	if res.Labels["outlier"] != Noise {
		t.Errorf("expected outlier to be noise, got label %d", res.Labels["outlier"])
	}
	if res.Confidence["outlier"] != 0.0 {
		t.Errorf("expected noise confidence 0, got %v", res.Confidence["outlier"])
	}
}

func TestCluster_ConfidenceInRange(t *testing.T) {
	points := []Point{
		{ID: "a1", Embedding: vec(1, 0, 0)},
		{ID: "a2", Embedding: vec(0.99, 0.01, 0)},
		{ID: "a3", Embedding: vec(0.97, 0.03, 0)},
	}
	res := Cluster(points, DefaultConfig())
	for id, conf := range res.Confidence {
		if conf < -1.0001 || conf > 1.0001 {
			t.Errorf("confidence for %s out of range: %v", id, conf)
		}
	}
}

func TestFallbackName(t *testing.T) {
	if got := FallbackName(3); got != "Cluster-3" {
		t.Errorf("FallbackName(3) = %q, want %q", got, "Cluster-3")
	}
}

func TestName_NilProviderUsesFallback(t *testing.T) {
	if got := Name(nil, 7, nil); got != "Cluster-7" {
		t.Errorf("Name with nil provider = %q, want %q", got, "Cluster-7")
	}
}

func TestName_EmptyProviderResultUsesFallback(t *testing.T) {
	provider := func(label int, samples []string) string { return "" }
	if got := Name(provider, 2, []string{"x"}); got != "Cluster-2" {
		t.Errorf("Name with empty provider result = %q, want %q", got, "Cluster-2")
	}
}

func TestName_ProviderResultUsed(t *testing.T) {
	provider := func(label int, samples []string) string { return "Recipe Requests" }
	if got := Name(provider, 1, []string{"x"}); got != "Recipe Requests" {
		t.Errorf("Name() = %q, want %q", got, "Recipe Requests")
	}
}
