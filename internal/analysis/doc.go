// Package analysis characterises recorded runs of the velocity loop.
//
//   - [PowerSpectrum] and [DominantOscillation]: limit cycles caused by the
//     coarse counter show up as a peak in the velocity error spectrum
//   - [Step]: rise time, overshoot and settling time of a step response
package analysis
