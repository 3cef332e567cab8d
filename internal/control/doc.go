// Package control implements the duty-cycle velocity loop for a single
// wheel motor driven from a coarse hall counter.
//
// The pieces are deliberately small and free of I/O:
//
//   - [Gains]: PID gains, integral clamp, duty limit and control rate
//   - [Geometry]: pole pairs, gear ratio and torque constant, plus the
//     unit conversions between counts, radians and rad/s
//   - [Estimator]: run-length (M/T style) rate estimate from a counter that
//     changes less often than the control tick
//   - [DutyPID]: the PID step that turns a velocity reference into a duty
//     command, operating on an explicit [State]
//
// # Usage
//
//	pid := control.NewDutyPID(control.DefaultGains())
//	var st control.State
//	duty := pid.Step(&st, geom, 10.0, pulses, true) // first call resets
//
// [DutyPID] implements [dynamo.Configurable] so gains can be tuned live.
package control
