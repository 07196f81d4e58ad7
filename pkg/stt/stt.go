// Package stt provides streaming speech recognition over a live
// websocket session.
//
// One Recognizer serves one call and is the single authority for that
// call's recognition stream: callers feed it raw telephony audio and
// receive interim and final transcripts through callbacks. The websocket
// session is kept alive with heartbeats and reopened transparently after
// transient failures, so a mid-call network blip does not surface to the
// conversation.
//
// Example usage:
//
//	rec, _ := stt.NewDeepgram(
//	    stt.WithAPIKey(os.Getenv("DEEPGRAM_API_KEY")),
//	    stt.WithEncoding("mulaw", 8000),
//	)
//	rec.OnTranscript = func(r stt.Result) { ... }
//	rec.Start(ctx)
//	defer rec.Close()
package stt

import "context"

// Result is one recognition event from the live session.
type Result struct {
	// Text is the transcript for the processed audio window.
	Text string

	// Confidence is the recognizer's confidence in Text (0.0-1.0).
	Confidence float64

	// IsFinal reports whether this window's transcript is settled.
	// Interim results for the same audio may be revised.
	IsFinal bool

	// SpeechFinal reports that endpointing detected the caller finished
	// speaking. This is the signal a turn-taking loop should act on.
	SpeechFinal bool

	// Start is the window's offset from session start, in seconds.
	Start float64

	// Duration is the length of the audio window, in seconds.
	Duration float64
}

// Recognizer is a live speech recognition session.
// Implementations are safe for one concurrent audio writer.
type Recognizer interface {
	// Start opens the recognition session. Callbacks must be assigned
	// before Start.
	Start(ctx context.Context) error

	// SendAudio feeds raw audio in the configured encoding.
	SendAudio(data []byte) error

	// Finish flushes buffered audio and asks the recognizer to emit any
	// remaining transcript. The session stays open.
	Finish() error

	// Close tears the session down. Safe to call more than once.
	Close() error
}
