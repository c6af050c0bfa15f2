package circuitbreaker

import "time"

// DefaultConfig provides balanced settings for most services.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		MonitoringPeriod: 2 * time.Minute,
	}
}

// AggressiveConfig for services requiring fast failure detection.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     10 * time.Second,
		MonitoringPeriod: 1 * time.Minute,
	}
}

// ConservativeConfig for services that should tolerate more failures.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold: 10,
		ResetTimeout:     60 * time.Second,
		MonitoringPeriod: 5 * time.Minute,
	}
}

// HTTPServiceConfig optimized for external HTTP APIs.
// Faster failure detection with a shorter cool-down suitable for HTTP calls.
func HTTPServiceConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		MonitoringPeriod: 2 * time.Minute,
	}
}

// DatabaseConfig optimized for database connections.
// More tolerant of failures since databases should be stable and temporary
// network issues shouldn't immediately trip the breaker.
func DatabaseConfig() Config {
	return Config{
		FailureThreshold: 8,
		ResetTimeout:     45 * time.Second,
		MonitoringPeriod: 3 * time.Minute,
	}
}
