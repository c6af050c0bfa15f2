// Package recovery executes prioritized fallback strategies for failed
// operations and tracks error history for cascade-risk scoring.
//
// Collaborators register Actions at init time; ExecuteRecovery records the
// failure and runs the highest-priority eligible action. CheckCascadeRisk
// scores recent error volume for an (operation, service) pair so callers
// can react before localized failures spread.
package recovery
