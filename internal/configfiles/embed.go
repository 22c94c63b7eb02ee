// Package configfiles provides the embedded configuration template.
package configfiles

import (
	_ "embed"
)

//go:embed codesync.example.yaml
var configExample []byte

// GetConfigExample returns the example configuration file content
func GetConfigExample() []byte {
	out := make([]byte, len(configExample))
	copy(out, configExample)
	return out
}
