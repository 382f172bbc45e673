package config

import (
	"fmt"
	"time"
)

// AnalysisConfig bounds the analysis aggregator and tunes its scoring.
type AnalysisConfig struct {
	CacheTTL        time.Duration   `yaml:"cache_ttl" validate:"required,min=1s,max=24h"`
	CacheEntries    int             `yaml:"cache_entries" validate:"required,min=1,max=100000"`
	JanitorInterval time.Duration   `yaml:"janitor_interval" validate:"min=0"`
	AnalyzerTimeout time.Duration   `yaml:"analyzer_timeout" validate:"required,min=100ms,max=1h"`
	Concurrency     int             `yaml:"concurrency" validate:"required,min=1,max=64"`
	QualityWeights  QualityWeights  `yaml:"quality_weights"`
	SeverityWeights SeverityWeights `yaml:"severity_weights"`
	Cycles          CycleConfig     `yaml:"cycles"`
}

type QualityWeights struct {
	Maintainability float64 `yaml:"maintainability" validate:"gte=0"`
	Reliability     float64 `yaml:"reliability" validate:"gte=0"`
	Security        float64 `yaml:"security" validate:"gte=0"`
	Coverage        float64 `yaml:"coverage" validate:"gte=0"`
	Documentation   float64 `yaml:"documentation" validate:"gte=0"`
}

func (w QualityWeights) check() error {
	if w.Maintainability+w.Reliability+w.Security+w.Coverage+w.Documentation <= 0 {
		return fmt.Errorf("config validation failed: analysis.quality_weights must not all be zero")
	}
	return nil
}

type SeverityWeights struct {
	Low      float64 `yaml:"low" validate:"gte=0"`
	Medium   float64 `yaml:"medium" validate:"gte=0"`
	High     float64 `yaml:"high" validate:"gte=0"`
	Critical float64 `yaml:"critical" validate:"gte=0"`
}

type CycleConfig struct {
	// MediumMaxNodes is the largest cycle still reported as medium severity
	MediumMaxNodes int `yaml:"medium_max_nodes" validate:"min=1,max=1000"`
	// Boundaries maps an architectural group to the directory prefixes it
	// owns. A cycle whose members fall into more than one group is high.
	Boundaries map[string][]string `yaml:"boundaries"`
}

func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		CacheTTL:        10 * time.Minute,
		CacheEntries:    256,
		JanitorInterval: time.Minute,
		AnalyzerTimeout: 30 * time.Second,
		Concurrency:     4,
		QualityWeights: QualityWeights{
			Maintainability: 0.25,
			Reliability:     0.20,
			Security:        0.25,
			Coverage:        0.15,
			Documentation:   0.15,
		},
		SeverityWeights: SeverityWeights{
			Low:      1,
			Medium:   5,
			High:     15,
			Critical: 30,
		},
		Cycles: CycleConfig{
			MediumMaxNodes: 2,
		},
	}
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"omitempty,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"omitempty,min=1,max=100"`
}
