// Package telephony implements the carrier media-stream protocol: the
// JSON envelopes exchanged over a call's websocket and a duplex bridge
// that turns them into typed events and outbound audio writes.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope event names on the wire.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventClear     = "clear"
)

// MediaFormat describes the audio encoding negotiated for a stream.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// envelope is the wire shape of every media-stream message, inbound and
// outbound. Only the fields for the named event are populated.
type envelope struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSID      string `json:"streamSid,omitempty"`

	Start *startPayload `json:"start,omitempty"`
	Media *mediaPayload `json:"media,omitempty"`
	Stop  *stopPayload  `json:"stop,omitempty"`
	Mark  *markPayload  `json:"mark,omitempty"`
}

type startPayload struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type mediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type stopPayload struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

type markPayload struct {
	Name string `json:"name"`
}

// Event is one decoded inbound message from the media stream.
type Event struct {
	// Kind is one of the Event* wire names.
	Kind string

	// Start is set for start events.
	Start *StreamStart

	// Audio is the decoded payload of a media event.
	Audio []byte

	// Timestamp is the media event's position in the stream, in
	// milliseconds. Zero when the carrier omits it.
	Timestamp int

	// Mark is the name echoed back by a mark event.
	Mark string
}

// StreamStart carries the call identity delivered with a start event.
type StreamStart struct {
	StreamSID  string
	AccountSID string
	CallSID    string
	Format     MediaFormat
	Custom     map[string]string
}

// ParseEvent decodes one inbound envelope.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("telephony: malformed envelope: %w", err)
	}

	switch env.Event {
	case EventConnected:
		return Event{Kind: EventConnected}, nil

	case EventStart:
		if env.Start == nil {
			return Event{}, fmt.Errorf("telephony: start event without payload")
		}
		return Event{
			Kind: EventStart,
			Start: &StreamStart{
				StreamSID:  env.Start.StreamSID,
				AccountSID: env.Start.AccountSID,
				CallSID:    env.Start.CallSID,
				Format:     env.Start.MediaFormat,
				Custom:     env.Start.CustomParameters,
			},
		}, nil

	case EventMedia:
		if env.Media == nil {
			return Event{}, fmt.Errorf("telephony: media event without payload")
		}
		audio, err := base64.StdEncoding.DecodeString(env.Media.Payload)
		if err != nil {
			return Event{}, fmt.Errorf("telephony: media payload: %w", err)
		}
		ts, _ := strconv.Atoi(env.Media.Timestamp)
		return Event{Kind: EventMedia, Audio: audio, Timestamp: ts}, nil

	case EventStop:
		return Event{Kind: EventStop}, nil

	case EventMark:
		if env.Mark == nil {
			return Event{}, fmt.Errorf("telephony: mark event without payload")
		}
		return Event{Kind: EventMark, Mark: env.Mark.Name}, nil

	default:
		return Event{}, fmt.Errorf("telephony: unknown event %q", env.Event)
	}
}

// marshalMedia encodes an outbound audio envelope.
func marshalMedia(streamSID string, seq uint64, audio []byte) ([]byte, error) {
	return json.Marshal(envelope{
		Event:          EventMedia,
		SequenceNumber: strconv.FormatUint(seq, 10),
		StreamSID:      streamSID,
		Media: &mediaPayload{
			Payload: base64.StdEncoding.EncodeToString(audio),
		},
	})
}

// marshalMark encodes an outbound playback marker.
func marshalMark(streamSID string, seq uint64, name string) ([]byte, error) {
	return json.Marshal(envelope{
		Event:          EventMark,
		SequenceNumber: strconv.FormatUint(seq, 10),
		StreamSID:      streamSID,
		Mark:           &markPayload{Name: name},
	})
}

// marshalClear encodes a request to drop the carrier's buffered audio.
func marshalClear(streamSID string) ([]byte, error) {
	return json.Marshal(envelope{
		Event:     EventClear,
		StreamSID: streamSID,
	})
}
