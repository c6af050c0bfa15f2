package coordinator

import "errors"

// Kind classifies what a dependency is, which drives the circuit breaker
// preset it gets.
type Kind string

const (
	KindDatabase        Kind = "database"
	KindExternalAPI     Kind = "external-api"
	KindInternalService Kind = "internal-service"
)

// Criticality describes how important a dependency is to overall service
// health.
type Criticality string

const (
	CriticalityCritical  Criticality = "critical"
	CriticalityImportant Criticality = "important"
	CriticalityOptional  Criticality = "optional"
)

var (
	// ErrEmptyDependencyName is returned when a dependency is registered
	// without a name.
	ErrEmptyDependencyName = errors.New("dependency name must not be empty")

	// ErrDependencyAlreadyRegistered is returned on duplicate registration.
	ErrDependencyAlreadyRegistered = errors.New("dependency is already registered")
)

// DependencyDescriptor declares an external dependency managed by the
// coordinator.
type DependencyDescriptor struct {
	// Name uniquely identifies the dependency.
	Name string `json:"name"`

	// Kind selects the circuit breaker preset. Defaults to
	// KindInternalService.
	Kind Kind `json:"kind"`

	// Criticality drives health aggregation. Defaults to
	// CriticalityImportant.
	Criticality Criticality `json:"criticality"`

	// HealthCheckTarget is an optional address or URL a health checker can
	// probe for this dependency.
	HealthCheckTarget string `json:"health_check_target,omitempty"`
}

// Validate reports whether the descriptor is usable.
func (d DependencyDescriptor) Validate() error {
	if d.Name == "" {
		return ErrEmptyDependencyName
	}

	return nil
}

// normalize fills in defaults for optional fields.
func (d DependencyDescriptor) normalize() DependencyDescriptor {
	if d.Kind == "" {
		d.Kind = KindInternalService
	}

	if d.Criticality == "" {
		d.Criticality = CriticalityImportant
	}

	return d
}

// IsCritical reports whether an unhealthy dependency of this criticality
// should mark the whole service unhealthy.
func (d DependencyDescriptor) IsCritical() bool {
	return d.Criticality == CriticalityCritical
}
