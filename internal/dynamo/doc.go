// Package dynamo provides the primitives shared by the wheel simulation.
//
//   - [State]: plant state vector
//   - [System]: plant dynamics (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper for a [System]
//   - [Sample]: one control tick of the closed loop
//   - [Metric] and [Observer]: consumers of samples
//   - [Configurable]: components whose parameters can be tuned at runtime
//
// Nothing here knows about hall counters or duty cycles; see package control
// for the loop itself.
package dynamo
