package output

import (
	"github.com/ericogr/mcp3021-reader/pkg/config"
	"github.com/ericogr/mcp3021-reader/pkg/sensor"
)

// Output receives every reading the sampling loop produces.
type Output interface {
	// Start runs once before the first reading (banner, discovery).
	Start(cfg config.Config) error
	Publish(r sensor.Reading) error
	Close() error
}

// helper constructors are in subpackages
