package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	WorldWidth         int `yaml:"world_width"`
	WorldHeight        int `yaml:"world_height"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Storage StorageDefaults `yaml:"storage"`
}

// StorageDefaults apply to structures whose definition carries no explicit
// storage block.
type StorageDefaults struct {
	DefaultInputCapacity  int `yaml:"default_input_capacity"`
	DefaultOutputCapacity int `yaml:"default_output_capacity"`
}

// Defaults are the values used when no tuning file is given.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		WorldWidth:         256,
		WorldHeight:        256,
		SnapshotEveryTicks: 600,
		Storage: StorageDefaults{
			DefaultInputCapacity:  50,
			DefaultOutputCapacity: 50,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.WorldWidth <= 0 || t.WorldHeight <= 0 {
		return fmt.Errorf("world dimensions must be positive, got %dx%d", t.WorldWidth, t.WorldHeight)
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must not be negative, got %d", t.SnapshotEveryTicks)
	}
	if t.Storage.DefaultInputCapacity < 0 || t.Storage.DefaultOutputCapacity < 0 {
		return fmt.Errorf("storage capacities must not be negative")
	}
	return nil
}
