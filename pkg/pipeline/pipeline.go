package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carelane/voicedesk/internal/metrics"
	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/stt"
	"github.com/carelane/voicedesk/pkg/telephony"
	"github.com/carelane/voicedesk/pkg/tts"
)

// DefaultQueueSize bounds final-transcript frames waiting for the
// respond loop while an earlier response is still playing.
const DefaultQueueSize = 16

// Transport is the telephony side of a call's pipeline.
// *telephony.Bridge satisfies it.
type Transport interface {
	Events() <-chan telephony.Event
	WriteAudio(audio []byte) error
	WriteMark(name string) error
	Close() error
}

// Notifier dispatches the appointment confirmation. Fire-and-forget;
// failures are the notifier's problem, never the call's.
type Notifier interface {
	Notify(ctx context.Context, st *dialog.State) error
}

// Options configures a per-call pipeline.
type Options struct {
	Transport    Transport
	Recognizer   stt.Recognizer
	Synthesizer  tts.Provider
	Orchestrator *dialog.Orchestrator
	State        *dialog.State

	// Notifier is optional.
	Notifier Notifier

	// OnTurn runs after each orchestration turn with the updated state.
	// The session owner uses it to persist snapshots.
	OnTurn func(*dialog.State)

	// Metrics is optional.
	Metrics *metrics.Metrics

	Logger    *slog.Logger
	QueueSize int
}

// Pipeline runs one call. The respond loop inside Run is the only
// goroutine that mutates the call's conversation state.
type Pipeline struct {
	transport Transport
	rec       stt.Recognizer
	synth     tts.Provider
	orch      *dialog.Orchestrator
	state     *dialog.State
	notifier  Notifier
	onTurn    func(*dialog.State)
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// frames carries final-transcript, control and error frames from
	// the ingestion flows into the sequential respond loop.
	frames chan Frame

	marks int
}

// New assembles a pipeline for one call.
func New(opts Options) (*Pipeline, error) {
	if opts.Transport == nil || opts.Recognizer == nil || opts.Synthesizer == nil {
		return nil, fmt.Errorf("pipeline: transport, recognizer and synthesizer are required")
	}
	if opts.Orchestrator == nil || opts.State == nil {
		return nil, fmt.Errorf("pipeline: orchestrator and state are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Pipeline{
		transport: opts.Transport,
		rec:       opts.Recognizer,
		synth:     opts.Synthesizer,
		orch:      opts.Orchestrator,
		state:     opts.State,
		notifier:  opts.Notifier,
		onTurn:    opts.OnTurn,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("call_id", opts.State.CallID),
		frames:    make(chan Frame, opts.QueueSize),
	}, nil
}

// Run drives the call until it ends. It returns nil on a normal hangup
// and a StageError when a component failed fatally.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.wireRecognizer(ctx)
	if err := p.rec.Start(ctx); err != nil {
		return stageErr(StageRecognition, err)
	}
	defer p.rec.Close()

	go p.readTransport(ctx)

	return p.respondLoop(ctx)
}

// wireRecognizer bridges recognition callbacks into the frame queue.
// Settled segments accumulate until endpointing marks the utterance
// complete; only then does a final frame enter the queue.
func (p *Pipeline) wireRecognizer(ctx context.Context) {
	var segments []string

	type transcriptSink interface {
		SetOnTranscript(func(stt.Result))
	}

	attach := func(r stt.Result) {
		if !r.IsFinal {
			p.count(func(m *metrics.Metrics) { m.Transcriptions.WithLabelValues("interim").Inc() })
			return
		}
		p.count(func(m *metrics.Metrics) { m.Transcriptions.WithLabelValues("final").Inc() })

		if text := strings.TrimSpace(r.Text); text != "" {
			segments = append(segments, text)
		}
		if !r.SpeechFinal {
			return
		}
		utterance := strings.Join(segments, " ")
		segments = segments[:0]
		if utterance == "" {
			return
		}

		select {
		case p.frames <- Frame{Kind: KindFinal, Text: utterance, Confidence: r.Confidence}:
		case <-ctx.Done():
		default:
			// Queue full means the caller is far ahead of playback.
			// Dropping the oldest would reorder; dropping the newest
			// keeps the conversation consistent.
			p.logger.Warn("frame queue full, dropping utterance")
		}
	}

	failed := func(err error) {
		p.count(func(m *metrics.Metrics) { m.RecognitionErrors.Inc() })

		var connErr *stt.ConnectionError
		if errors.As(err, &connErr) && !connErr.Retryable {
			// Reconnects are exhausted; nothing more will be heard on
			// this call. Surface it so the session tears down instead
			// of leaving the caller in dead air.
			p.logger.Error("recognition lost", "error", err)
			select {
			case p.frames <- Frame{Kind: KindError, Err: stageErr(StageRecognition, err)}:
			case <-ctx.Done():
			}
			return
		}
		p.logger.Error("recognition error", "error", err)
	}

	switch r := p.rec.(type) {
	case *stt.Deepgram:
		r.OnTranscript = attach
		r.OnError = failed
		r.OnReconnect = func(attempt int) {
			p.count(func(m *metrics.Metrics) { m.RecognitionReopens.Inc() })
		}
	case *stt.Mock:
		r.OnTranscript = attach
		r.OnError = failed
	case transcriptSink:
		r.SetOnTranscript(attach)
	}
}

// readTransport is the ingestion flow: media frames feed recognition
// directly, lifecycle events become control frames for the respond loop.
func (p *Pipeline) readTransport(ctx context.Context) {
	for ev := range p.transport.Events() {
		switch ev.Kind {
		case telephony.EventStart:
			p.enqueueControl(ctx, ControlStart)

		case telephony.EventMedia:
			p.count(func(m *metrics.Metrics) { m.MediaFramesIn.Inc() })
			if err := p.rec.SendAudio(ev.Audio); err != nil {
				// The recognizer reopens its own session; a failed
				// write here loses at most one 20ms frame.
				p.logger.Debug("audio forward failed", "error", err)
			}

		case telephony.EventStop:
			p.enqueueControl(ctx, ControlStop)
			return

		case telephony.EventMark:
			p.logger.Debug("playback mark", "name", ev.Mark)
		}
	}
	// Channel closed without a stop event: transport dropped.
	p.enqueueControl(ctx, ControlStop)
}

func (p *Pipeline) enqueueControl(ctx context.Context, control string) {
	select {
	case p.frames <- Frame{Kind: KindControl, Control: control}:
	case <-ctx.Done():
	}
}

// respondLoop is the sequential orchestration path: the sole writer of
// conversation state. A final transcript that arrives while a response
// is still being synthesized waits in the queue until the flush
// finishes.
func (p *Pipeline) respondLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case f := <-p.frames:
			switch f.Kind {
			case KindControl:
				if f.Control == ControlStop {
					return nil
				}
				if f.Control == ControlStart {
					p.speakAll(ctx, dialog.Greeting())
					p.state.Advance(dialog.PhaseInsurance)
				}

			case KindFinal:
				done, err := p.handleFinal(ctx, f)
				if err != nil {
					return err
				}
				if done {
					return nil
				}

			case KindError:
				return f.Err
			}
		}
	}
}

// handleFinal runs one orchestration turn and flushes its response.
// done reports that the call reached its end.
func (p *Pipeline) handleFinal(ctx context.Context, f Frame) (done bool, err error) {
	p.logger.Info("caller utterance",
		"text", f.Text,
		"confidence", f.Confidence,
		"phase", p.state.Phase.String(),
	)

	outcome, err := p.orch.HandleFinal(ctx, p.state, f.Text)
	if err != nil {
		if errors.Is(err, dialog.ErrCallEnded) {
			return true, nil
		}
		return false, stageErr(StageDialog, err)
	}

	p.speakAll(ctx, outcome.Responses)

	if p.onTurn != nil {
		p.onTurn(p.state)
	}

	if outcome.Notify && p.notifier != nil {
		// Confirmation delivery must never hold up the goodbye.
		go func() {
			nctx, ncancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer ncancel()
			if err := p.notifier.Notify(nctx, p.state); err != nil {
				p.logger.Error("confirmation notify failed", "error", err)
			}
		}()
	}

	return outcome.HangUp, nil
}

// speakAll synthesizes and flushes each utterance in order. A failed
// utterance is replaced by one spoken fallback; playback order is never
// violated.
func (p *Pipeline) speakAll(ctx context.Context, utterances []string) {
	for _, text := range utterances {
		if err := p.speak(ctx, text); err != nil {
			p.count(func(m *metrics.Metrics) { m.SynthesisErrors.Inc() })
			p.logger.Error("synthesis failed", "error", err)

			if fbErr := p.speak(ctx, dialog.SynthesisFallback()); fbErr != nil {
				p.logger.Error("synthesis fallback failed", "error", fbErr)
			}
			return
		}
	}
}

// speak streams one response to the caller, splitting long text at
// sentence boundaries so playback starts early.
func (p *Pipeline) speak(ctx context.Context, text string) error {
	for _, piece := range tts.SplitUtterance(text) {
		if err := p.speakPiece(ctx, piece); err != nil {
			return err
		}
	}

	p.marks++
	if err := p.transport.WriteMark(fmt.Sprintf("utt-%d", p.marks)); err != nil {
		p.logger.Debug("mark write failed", "error", err)
	}
	return nil
}

func (p *Pipeline) speakPiece(ctx context.Context, piece string) error {
	p.count(func(m *metrics.Metrics) { m.SynthesisUtterances.Inc() })

	started := time.Now()
	stream, err := p.synth.Stream(ctx, piece)
	if err != nil {
		return stageErr(StageSynthesis, err)
	}
	defer stream.Close()

	first := true
	for {
		chunk, err := stream.Read()
		if err != nil {
			return stageErr(StageSynthesis, err)
		}
		if chunk == nil {
			return nil
		}
		if first {
			first = false
			p.count(func(m *metrics.Metrics) {
				m.SynthesisFirstChunk.Observe(time.Since(started).Seconds())
			})
		}

		if err := p.transport.WriteAudio(chunk); err != nil {
			return stageErr(StageTransport, err)
		}
		p.count(func(m *metrics.Metrics) { m.MediaFramesOut.Inc() })
	}
}

func (p *Pipeline) count(fn func(*metrics.Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}
