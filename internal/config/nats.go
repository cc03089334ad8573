package config

import "time"

// NATSConfig configures the NATS transport used by serve mode.
type NATSConfig struct {
	URL          string `yaml:"url"`
	Subject      string `yaml:"subject"`
	Queue        string `yaml:"queue"`
	MaxInFlight  int    `yaml:"max_in_flight"`
	DrainTimeout string `yaml:"drain_timeout"`
}

// GetDrainTimeout returns the drain timeout as a duration.
func (n NATSConfig) GetDrainTimeout() time.Duration {
	d, err := time.ParseDuration(n.DrainTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
