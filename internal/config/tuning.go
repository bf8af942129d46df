package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/fusion.report/internal/fusion"
)

// TuningConfig represents the fusion tuning parameters as an overlay over
// the built-in production defaults. Every field is a pointer so a partial
// JSON file only overrides what it names; FusionParams fills the rest from
// fusion.DefaultParams.
type TuningConfig struct {
	// Occlusion graph
	IoUThreshold *float64 `json:"iou_threshold,omitempty"`

	// Frustum clipping
	MinFrustumX        *float64 `json:"min_frustum_x,omitempty"`
	MinOverlapFrustumX *float64 `json:"min_overlap_frustum_x,omitempty"`

	// Clustering
	NormalRadius       *float64 `json:"normal_radius,omitempty"`
	ClusterTolerance   *float64 `json:"cluster_tolerance,omitempty"`
	MinClusterFraction *float64 `json:"min_cluster_fraction,omitempty"`
	MinClusterSize     *int     `json:"min_cluster_size,omitempty"`
	IntensityGateNear  *float64 `json:"intensity_gate_near,omitempty"`
	IntensityGateFar   *float64 `json:"intensity_gate_far,omitempty"`
	NormalDotGate      *float64 `json:"normal_dot_gate,omitempty"`

	// L-shape fitting
	AngleResolutionDeg *float64 `json:"angle_resolution_deg,omitempty"`
	BucketPointCount   *int     `json:"bucket_point_count,omitempty"`

	// Box reconstruction
	RoofClipZ *float64 `json:"roof_clip_z,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the size cap. Fields omitted from
// the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have been set.
func (c *TuningConfig) Validate() error {
	if c.IoUThreshold != nil {
		if *c.IoUThreshold <= 0 || *c.IoUThreshold >= 1 {
			return fmt.Errorf("iou_threshold must be in (0, 1), got %f", *c.IoUThreshold)
		}
	}
	if c.ClusterTolerance != nil && *c.ClusterTolerance <= 0 {
		return fmt.Errorf("cluster_tolerance must be positive, got %f", *c.ClusterTolerance)
	}
	if c.NormalRadius != nil && *c.NormalRadius <= 0 {
		return fmt.Errorf("normal_radius must be positive, got %f", *c.NormalRadius)
	}
	if c.MinClusterFraction != nil {
		if *c.MinClusterFraction < 0 || *c.MinClusterFraction > 1 {
			return fmt.Errorf("min_cluster_fraction must be in [0, 1], got %f", *c.MinClusterFraction)
		}
	}
	if c.MinClusterSize != nil && *c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", *c.MinClusterSize)
	}
	if c.BucketPointCount != nil && *c.BucketPointCount < 1 {
		return fmt.Errorf("bucket_point_count must be at least 1, got %d", *c.BucketPointCount)
	}
	return nil
}

// FusionParams materialises the overlay over fusion.DefaultParams.
func (c *TuningConfig) FusionParams() fusion.Params {
	p := fusion.DefaultParams()
	if c.IoUThreshold != nil {
		p.IoUThreshold = *c.IoUThreshold
	}
	if c.MinFrustumX != nil {
		p.MinFrustumX = *c.MinFrustumX
	}
	if c.MinOverlapFrustumX != nil {
		p.MinOverlapFrustumX = *c.MinOverlapFrustumX
	}
	if c.NormalRadius != nil {
		p.NormalRadius = *c.NormalRadius
	}
	if c.ClusterTolerance != nil {
		p.ClusterTolerance = *c.ClusterTolerance
	}
	if c.MinClusterFraction != nil {
		p.MinClusterFraction = *c.MinClusterFraction
	}
	if c.MinClusterSize != nil {
		p.MinClusterSize = *c.MinClusterSize
	}
	if c.IntensityGateNear != nil {
		p.IntensityGateNear = *c.IntensityGateNear
	}
	if c.IntensityGateFar != nil {
		p.IntensityGateFar = *c.IntensityGateFar
	}
	if c.NormalDotGate != nil {
		p.NormalDotGate = *c.NormalDotGate
	}
	if c.AngleResolutionDeg != nil {
		p.AngleReso = *c.AngleResolutionDeg
	}
	if c.BucketPointCount != nil {
		p.BucketPointCount = *c.BucketPointCount
	}
	if c.RoofClipZ != nil {
		p.RoofClipZ = *c.RoofClipZ
	}
	return p
}
