// Package tts provides streaming text-to-speech for telephony playback.
//
// Each utterance is synthesized over its own fresh HTTP connection and
// consumed chunk by chunk, so the first audio frames reach the caller
// while the tail of the utterance is still being generated. Output
// defaults to 8kHz μ-law, the encoding carrier media streams expect.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	    tts.WithVoice("your-voice-id"),
//	)
//	defer provider.Close()
//
//	stream, _ := provider.Stream(ctx, "Hello! How can I help?")
//	for {
//	    chunk, err := stream.Read()
//	    if chunk == nil || err != nil {
//	        break
//	    }
//	    // forward chunk to the caller
//	}
package tts

import (
	"context"
	"time"
)

// Provider defines the synthesis provider interface.
// All implementations must satisfy this interface for seamless provider
// switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio
	// buffer. Use this for short canned phrases.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Stream converts text to audio with streaming output for lowest
	// latency. Audio chunks are returned as they become available.
	Stream(ctx context.Context, text string) (AudioStream, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioStream represents a streaming audio response.
// Callers should read until Read returns nil, then call Close.
type AudioStream interface {
	// Read returns the next audio chunk.
	// Returns nil when the stream is complete (not an error).
	Read() ([]byte, error)

	// Close stops the stream and releases resources.
	Close() error

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., ulaw_8000, pcm_16000).
	Encoding Encoding

	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth in bits per sample (8 for μ-law, 16 for PCM).
	BitDepth int
}

// Encoding represents audio output encodings.
// These match ElevenLabs output format options.
type Encoding string

const (
	// EncodingULaw is μ-law 8kHz, the telephony carrier format.
	EncodingULaw Encoding = "ulaw_8000"

	// PCM formats, for non-telephony playback and tests.
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM24 Encoding = "pcm_24000"

	// EncodingMP3 is compressed output for recordings.
	EncodingMP3 Encoding = "mp3_44100_128"
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingULaw:
		return 8000
	case EncodingPCM16:
		return 16000
	case EncodingPCM24:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 8000
	}
}

// BitDepthFromEncoding returns bits per sample for an encoding.
func BitDepthFromEncoding(enc Encoding) int {
	if enc == EncodingULaw {
		return 8
	}
	return 16
}

// VoiceSettings controls voice characteristics for providers that
// support it.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	// Lower values = more expressive/variable, higher = more consistent.
	Stability float64

	// SimilarityBoost controls how closely the voice matches the
	// original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	// SpeakerBoost enhances speaker clarity. Helps over narrow-band
	// telephony audio.
	SpeakerBoost bool
}

// DefaultVoiceSettings returns defaults tuned for a steady agent voice.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.6,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}
