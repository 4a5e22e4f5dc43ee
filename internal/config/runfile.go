package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunFile is the optional YAML description of one evaluation run. Zero
// values fall back to the environment configuration.
type RunFile struct {
	Strategies         []string `yaml:"strategies"`
	PriorityMetric     string   `yaml:"priority_metric"`
	GoldenSize         int      `yaml:"golden_size"`
	GoldenSeed         int64    `yaml:"golden_seed"`
	TopK               int      `yaml:"top_k"`
	Concurrency        int      `yaml:"concurrency"`
	CallTimeoutSeconds int      `yaml:"call_timeout_seconds"`
	OutputMarkdown     string   `yaml:"output_markdown"`
	OutputWorkbook     string   `yaml:"output_workbook"`
}

func LoadRunFile(path string) (RunFile, error) {
	var rf RunFile
	data, err := os.ReadFile(path)
	if err != nil {
		return rf, fmt.Errorf("read run file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("parse run file %s: %w", path, err)
	}
	return rf, nil
}

// Apply overlays non-zero run file values onto the environment config.
func (rf RunFile) Apply(cfg Config) Config {
	if rf.PriorityMetric != "" {
		cfg.EvalPriorityMetric = rf.PriorityMetric
	}
	if rf.GoldenSize > 0 {
		cfg.GoldenSize = rf.GoldenSize
	}
	if rf.GoldenSeed != 0 {
		cfg.GoldenSeed = rf.GoldenSeed
	}
	if rf.TopK > 0 {
		cfg.RetrievalTopK = rf.TopK
	}
	if rf.Concurrency > 0 {
		cfg.EvalConcurrency = rf.Concurrency
	}
	if rf.CallTimeoutSeconds > 0 {
		cfg.EvalCallTimeoutSec = rf.CallTimeoutSeconds
	}
	return cfg
}
