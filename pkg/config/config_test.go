package config

import "testing"

func TestLoad_AppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cluster.MinClusterSize != 2 {
		t.Errorf("MinClusterSize = %d, want 2", cfg.Cluster.MinClusterSize)
	}
	if cfg.Assigner.AssignmentThreshold != 0.60 {
		t.Errorf("AssignmentThreshold = %f, want 0.60", cfg.Assigner.AssignmentThreshold)
	}
	if cfg.Template.CreateThreshold != 3 {
		t.Errorf("CreateThreshold = %d, want 3", cfg.Template.CreateThreshold)
	}
	if cfg.Template.UpdateDelta != 5 {
		t.Errorf("UpdateDelta = %d, want 5", cfg.Template.UpdateDelta)
	}
	if cfg.Dedup.HammingThreshold != 3 {
		t.Errorf("HammingThreshold = %d, want 3", cfg.Dedup.HammingThreshold)
	}
}

func TestValidate_RejectsOutOfRangeThreshold(t *testing.T) {
	cfg := &Config{
		Cluster:  ClusterConfig{MinClusterSize: 2, MinSamples: 1},
		Assigner: AssignerConfig{BootstrapThreshold: 1, BatchSize: 1, AssignmentThreshold: 1.5},
		Template: TemplateConfig{CreateThreshold: 3, UpdateDelta: 5},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for assignment_threshold > 1")
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := &Config{
		Cluster:  ClusterConfig{MinClusterSize: 2, MinSamples: 1, ClusterSelectionEpsilon: 0.15},
		Assigner: AssignerConfig{BootstrapThreshold: 500, BatchSize: 500, AssignmentThreshold: 0.60},
		Template: TemplateConfig{CreateThreshold: 3, UpdateDelta: 5},
		Dedup:    DedupConfig{HammingThreshold: 3},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
