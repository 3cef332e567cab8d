// Package physics provides the plant models the wheel controller is
// simulated against.
//
// [Motor] implements [dynamo.System] with state [theta, omega] and a single
// duty input, and [dynamo.Configurable] for runtime parameter adjustment.
// [Counts] and [ERPM] turn the shaft state into what a motor drive reports.
package physics
