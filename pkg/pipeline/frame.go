// Package pipeline sequences one call's media into a strict causal
// chain: inbound audio feeds recognition, final transcripts drive the
// conversation one at a time, and each response is fully synthesized and
// flushed back to the caller before the next transcript is handled.
//
// Only settled transcripts, lifecycle signals and fatal stage failures
// travel through the per-call queue. Inbound audio goes straight to the
// recognizer and interim transcripts are counted and discarded; neither
// may wait behind a playing response.
package pipeline

// Kind tags a frame flowing through the per-call queue.
type Kind int

const (
	// KindFinal is a settled caller utterance. The sole trigger for
	// orchestrator action.
	KindFinal Kind = iota

	// KindControl is a lifecycle signal (start, stop).
	KindControl

	// KindError is a fatal stage failure. It ends the call.
	KindError
)

// Control signals carried by KindControl frames.
const (
	ControlStart = "start"
	ControlStop  = "stop"
)

// Frame is one tagged unit in the pipeline. Frames for a call are
// processed strictly in arrival order.
type Frame struct {
	Kind Kind

	// Text holds the transcript for final frames.
	Text string

	// Confidence accompanies final frames.
	Confidence float64

	// Control names the lifecycle signal for control frames.
	Control string

	// Err carries the failure for error frames.
	Err error
}

func (k Kind) String() string {
	switch k {
	case KindFinal:
		return "final"
	case KindControl:
		return "control"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}
