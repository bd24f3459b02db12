package command

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the matcher's numeric knobs. Defaults are empirical; tests pin
// them explicitly rather than relying on DefaultTuning.
type Tuning struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	TieMargin           float64 `yaml:"tie_margin" json:"tie_margin"`
	RequiredWeight      float64 `yaml:"required_weight" json:"required_weight"`
	OptionalWeight      float64 `yaml:"optional_weight" json:"optional_weight"`
	FuzzyWeight         float64 `yaml:"fuzzy_weight" json:"fuzzy_weight"`
	MaxEditDistance     int     `yaml:"max_edit_distance" json:"max_edit_distance"`
	ShortKeywordLen     int     `yaml:"short_keyword_len" json:"short_keyword_len"`
	NearMissFloor       float64 `yaml:"near_miss_floor" json:"near_miss_floor"`
}

func DefaultTuning() Tuning {
	return Tuning{
		ConfidenceThreshold: 0.5,
		TieMargin:           0.05,
		RequiredWeight:      1.0,
		OptionalWeight:      0.3,
		FuzzyWeight:         0.7,
		MaxEditDistance:     2,
		ShortKeywordLen:     4,
		NearMissFloor:       0.3,
	}
}

// LoadTuning reads a YAML file over DefaultTuning. A missing path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.ConfidenceThreshold <= 0 || t.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in (0,1], got %v", t.ConfidenceThreshold)
	}
	if t.TieMargin < 0 || t.TieMargin >= 1 {
		return fmt.Errorf("tie_margin must be in [0,1), got %v", t.TieMargin)
	}
	if t.RequiredWeight <= 0 {
		return fmt.Errorf("required_weight must be positive, got %v", t.RequiredWeight)
	}
	if t.OptionalWeight < 0 || t.FuzzyWeight < 0 {
		return errors.New("optional_weight and fuzzy_weight must not be negative")
	}
	if t.FuzzyWeight > t.RequiredWeight {
		return errors.New("fuzzy_weight must not exceed required_weight")
	}
	if t.MaxEditDistance < 0 || t.MaxEditDistance > 3 {
		return fmt.Errorf("max_edit_distance must be between 0 and 3, got %d", t.MaxEditDistance)
	}
	if t.NearMissFloor < 0 || t.NearMissFloor > t.ConfidenceThreshold {
		return fmt.Errorf("near_miss_floor must be between 0 and confidence_threshold, got %v", t.NearMissFloor)
	}
	return nil
}
