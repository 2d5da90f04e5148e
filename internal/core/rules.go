package core

import "bookcore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in booking
// policy set: slot conflict detection, the appointment status state machine
// backstop, and availability record identity.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSlotConflictRule())
	engine.Register(NewStatusTransitionRule())
	engine.Register(NewAvailabilityIdentityRule())
	return engine
}
