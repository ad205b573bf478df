package workload

import (
	"fmt"
	"sort"
)

// Named operation mixes for benchmark sweeps and quick scenario runs,
// so common shapes do not need hand-written weight tables.
var presetMixes = map[string]map[string]float64{
	"read_heavy": {
		"create_order": 10,
		"read_order":   70,
		"update_order": 10,
		"analytics":    10,
	},
	"write_heavy": {
		"create_order": 50,
		"read_order":   20,
		"update_order": 20,
		"analytics":    10,
	},
	"balanced": {
		"create_order": 30,
		"read_order":   40,
		"update_order": 20,
		"analytics":    10,
	},
	"analytics_heavy": {
		"create_order": 10,
		"read_order":   20,
		"update_order": 10,
		"analytics":    60,
	},
}

// PresetMix returns a copy of the named mix so callers can modify it
func PresetMix(name string) (map[string]float64, error) {
	mix, ok := presetMixes[name]
	if !ok {
		return nil, fmt.Errorf("unknown workload preset: %q (available: %v)", name, PresetNames())
	}

	out := make(map[string]float64, len(mix))
	for k, v := range mix {
		out[k] = v
	}
	return out, nil
}

// PresetNames lists the available presets in stable order
func PresetNames() []string {
	names := make([]string, 0, len(presetMixes))
	for name := range presetMixes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
