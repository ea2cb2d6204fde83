// Package engine is the in-process device path for the entrywise
// scale-bias test graph: x = x0 + input, y = scale ⊙ x + bias, z = ||y||².
package engine

import (
	"fmt"
	"strings"
)

// Mode selects which reader a pass consumes and which checks run after it.
type Mode int

const (
	ModeTraining Mode = iota
	ModeValidation
	ModeTesting
)

func (m Mode) String() string {
	switch m {
	case ModeTraining:
		return "train"
	case ModeValidation:
		return "validate"
	case ModeTesting:
		return "test"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// ParseMode accepts train|training, validate|validation, test|testing.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "train", "training":
		return ModeTraining, nil
	case "validate", "validation":
		return ModeValidation, nil
	case "test", "testing":
		return ModeTesting, nil
	default:
		return 0, fmt.Errorf("engine: unknown execution mode %q (want train|validate|test)", raw)
	}
}

// ParseModes parses a comma- or space-separated mode list.
func ParseModes(raw string) ([]Mode, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })

	modes := make([]Mode, 0, len(fields))
	for _, f := range fields {
		m, err := ParseMode(f)
		if err != nil {
			return nil, err
		}

		modes = append(modes, m)
	}

	return modes, nil
}

// Layout is the engine's internal data distribution for one branch. It does
// not change the mathematical result.
type Layout int

const (
	// DataParallel splits a mini-batch's samples across workers.
	DataParallel Layout = iota
	// ModelParallel splits every sample's elements across workers and
	// reduces the partial sums.
	ModelParallel
)

func (l Layout) String() string {
	switch l {
	case DataParallel:
		return "data_parallel"
	case ModelParallel:
		return "model_parallel"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(text []byte) error {
	parsed, err := ParseLayout(string(text))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

func ParseLayout(raw string) (Layout, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")) {
	case "data_parallel":
		return DataParallel, nil
	case "model_parallel":
		return ModelParallel, nil
	default:
		return 0, fmt.Errorf("engine: unknown data layout %q (want data_parallel|model_parallel)", raw)
	}
}
