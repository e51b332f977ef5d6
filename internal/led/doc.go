// Package led holds the pixel model of the controller: colours, gradient
// expansion, and the crossfade engine that moves the strip from one
// commanded state to the next.
//
// Every transition is a fixed 350 ms linear fade. Progress is quantised to a
// byte (0..255) and a frame is only pushed to the Driver when that byte
// advances, so a busy loop does not flood the strip with identical frames.
// A new command during a fade starts a fresh fade from whatever the strip is
// currently showing.
//
// All channel arithmetic is integer and truncating.
package led
