package config

import "dario.cat/mergo"

// Overlay copies every non-zero field of src onto cfg. Command line flags are
// collected into a sparse Config and applied this way.
func Overlay(cfg *Config, src Config) error {
	return mergo.Merge(cfg, src, mergo.WithOverride)
}
