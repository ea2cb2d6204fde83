package fixture

import (
	"fmt"
	"strconv"

	"github.com/example/go-layercheck/internal/runtime/tensor"
	"github.com/example/go-layercheck/internal/safetensors"
)

const (
	samplesKey = "samples"
	scaleKey   = "scale"
	biasKey    = "bias"
	seedKey    = "seed"
)

// Save writes the set to a safetensors file.
func (s *Set) Save(path string) error {
	tensors := []safetensors.Tensor{
		{Name: samplesKey, Shape: s.samples.Shape(), Data: s.samples.RawData()},
		{Name: scaleKey, Shape: s.scale.Shape(), Data: s.scale.RawData()},
		{Name: biasKey, Shape: s.bias.Shape(), Data: s.bias.RawData()},
	}

	meta := map[string]string{seedKey: strconv.FormatUint(s.seed, 10)}

	if err := safetensors.WriteFile(path, tensors, meta); err != nil {
		return fmt.Errorf("fixture: save: %w", err)
	}

	return nil
}

// Load reads a set written by Save.
func Load(path string) (*Set, error) {
	store, err := safetensors.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: load: %w", err)
	}

	var seed uint64
	if raw, ok := store.Metadata()[seedKey]; ok {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fixture: load: bad seed %q: %w", raw, err)
		}
	}

	samples, err := store.Tensor(samplesKey)
	if err != nil {
		return nil, fmt.Errorf("fixture: load: %w", err)
	}

	scale, err := store.Tensor(scaleKey)
	if err != nil {
		return nil, fmt.Errorf("fixture: load: %w", err)
	}

	bias, err := store.Tensor(biasKey)
	if err != nil {
		return nil, fmt.Errorf("fixture: load: %w", err)
	}

	if len(samples.Shape) != 2 || len(scale.Data) == 0 || samples.Shape[1] != int64(len(scale.Data)) {
		return nil, fmt.Errorf("%w: samples shape %v does not match scale shape %v", ErrInvalidShape, samples.Shape, scale.Shape)
	}

	if len(bias.Data) != len(scale.Data) {
		return nil, fmt.Errorf("%w: bias shape %v does not match scale shape %v", ErrInvalidShape, bias.Shape, scale.Shape)
	}

	if _, err := validate(int(samples.Shape[0]), scale.Shape); err != nil {
		return nil, err
	}

	set, err := newSet(seed, scale.Shape, samples.Data, scale.Data, bias.Data)
	if err != nil {
		return nil, err
	}

	for name, t := range map[string]*tensor.Tensor{samplesKey: set.samples, scaleKey: set.scale, biasKey: set.bias} {
		if err := tensor.CheckFinite(t); err != nil {
			return nil, fmt.Errorf("fixture: load: %s: %w", name, err)
		}
	}

	return set, nil
}
