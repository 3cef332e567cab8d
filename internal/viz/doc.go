// Package viz is the live terminal view of the wheel controller, built on
// Bubble Tea.
//
// [Model] runs a [wheel.Runner] against a simulated drive in real time and
// lets the user steer the velocity reference and retune gains while the
// loop is running. [Canvas] is a Braille pixel canvas used for the wheel
// dial.
//
// # Key Bindings
//
//	Up/Down - change the reference
//	0       - release the motor
//	Tab     - select a parameter, +/- to scale it
//	G       - inject a hall count glitch
//	?       - show help overlay
package viz
