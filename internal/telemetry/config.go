// Package telemetry wires OpenTelemetry metrics and tracing for the catalog sync.
// Metrics are exposed through a Prometheus endpoint and traces are exported over OTLP.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "thv-catalog-sync"

	// DefaultEndpoint is the default OTLP endpoint for traces
	DefaultEndpoint = "localhost:4318"

	// DefaultMetricsAddress is the default listen address of the Prometheus endpoint
	DefaultMetricsAddress = ":9090"

	// DefaultSampling is the default trace sampling rate (5%)
	DefaultSampling = 0.05
)

// Config represents the telemetry section of the configuration file
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "thv-catalog-sync"
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the binary version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector endpoint ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows plain HTTP to the collector
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0.0 and 1.0
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines the Prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Address is the listen address of the /metrics endpoint
	Address string `yaml:"address,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// MetricsEnabled reports whether the Prometheus exporter should be started
func (c *Config) MetricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// TracingEnabled reports whether spans should be exported
func (c *Config) TracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// GetAddress returns the metrics listen address
func (c *MetricsConfig) GetAddress() string {
	if c == nil || c.Address == "" {
		return DefaultMetricsAddress
	}
	return c.Address
}

// GetSampling returns the sampling ratio. 0 means unset and maps to DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	return errors.Join(errs...)
}
