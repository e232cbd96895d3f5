package config

// OTLPConfig holds trace exporter configuration.
// Traces are shipped to a local OTLP/HTTP collector endpoint; the collector
// handles authentication and forwarding, so no API key lives here.
type OTLPConfig struct {
	// Endpoint is the OTLP HTTP endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (dev, staging, prod)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name attached to exported spans
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
