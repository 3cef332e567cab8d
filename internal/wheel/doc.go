// Package wheel runs the velocity loop for one wheel motor against a motor
// drive.
//
// A [Controller] owns the loop state. [Controller.Tick] is called at the
// control rate and commands a duty cycle through a [Driver];
// [Controller.ApplyTelemetry] consumes the [Packet] values the drive sends
// back. The two may be called from different goroutines. [Runner] wires
// both to a ticker and a packet channel.
package wheel
