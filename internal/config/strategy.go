package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ApplyStrategyFile decodes a TOML strategy file over the current values.
// Keys the file omits keep their current value; unknown keys are an error.
//
//	universe = ["KO", "PEP"]
//
//	[scan]
//	significance = 0.05
//
//	[backtest]
//	entry_threshold = 1.5
//
//	[backtest.spread]
//	normalization = "rolling"
//	window = 60
func (c *Config) ApplyStrategyFile(path string) error {
	// Decode into a copy so a malformed file leaves c untouched
	next := *c

	md, err := toml.DecodeFile(path, &next)
	if err != nil {
		return fmt.Errorf("failed to read strategy file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("strategy file %s has unknown keys: %v", path, undecoded)
	}

	c.Universe = next.Universe
	c.Scan = next.Scan
	c.Backtest = next.Backtest
	c.Schedule = next.Schedule

	return nil
}
