package dialog

import (
	"context"
	"log/slog"
	"time"
)

// Orchestrator defaults.
const (
	// DefaultMaxRepeat is how many times the identical response may be
	// spoken consecutively before it is altered.
	DefaultMaxRepeat = 2

	// DefaultErrorCeiling is the call-wide consecutive-invalid-input
	// limit. Crossing it ends the call with an apology.
	DefaultErrorCeiling = 5

	// DefaultRetryLimit is the per-phase retry budget before handlers
	// accept best-effort data.
	DefaultRetryLimit = 3
)

// Outcome is the orchestrator's verdict for one final transcript.
type Outcome struct {
	// Responses are the utterances to speak, in order.
	Responses []string

	// Notify requests the confirmation notification.
	Notify bool

	// HangUp ends the call once the responses have been flushed.
	HangUp bool
}

// Options configures an Orchestrator.
type Options struct {
	Chooser    Chooser
	Verifier   AddressVerifier
	Providers  ProviderSource
	Production bool
	TestEmail  string

	MaxRepeat    int
	ErrorCeiling int
	RetryLimit   int

	// OnTransition is invoked after every phase advance. Metrics hook.
	OnTransition func(Phase)

	// OnRetryExhausted is invoked when a phase accepts best-effort data
	// after burning its retry limit. Metrics hook.
	OnRetryExhausted func(Phase)

	Logger *slog.Logger
	Now    func() time.Time
}

// Orchestrator routes final transcripts to phase handlers and enforces
// the conversation-wide guards: forward-only phase ordering, the
// repetition guard, and the global error ceiling. It must only be called
// from a single goroutine per call; that goroutine is the sole writer of
// the call's State.
type Orchestrator struct {
	handlers         map[Phase]Handler
	maxRepeat        int
	errorCeiling     int
	onTransition     func(Phase)
	onRetryExhausted func(Phase)
	logger           *slog.Logger
}

// NewOrchestrator builds the orchestrator and its fixed phase → handler
// mapping.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.MaxRepeat <= 0 {
		opts.MaxRepeat = DefaultMaxRepeat
	}
	if opts.ErrorCeiling <= 0 {
		opts.ErrorCeiling = DefaultErrorCeiling
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = DefaultRetryLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	insurance := &insuranceHandler{retryLimit: opts.RetryLimit}
	scheduling := &schedulingHandler{
		source:  opts.Providers,
		chooser: opts.Chooser,
		now:     opts.Now,
	}

	handlers := map[Phase]Handler{
		PhaseGreeting:       &greetingHandler{insurance: insurance},
		PhaseInsurance:      insurance,
		PhaseChiefComplaint: &complaintHandler{},
		PhaseDemographics:   &demographicsHandler{verifier: opts.Verifier},
		PhaseContactInfo: &contactHandler{
			production: opts.Production,
			testEmail:  opts.TestEmail,
		},
		PhaseProviderSelection: scheduling,
		PhaseScheduling:        scheduling,
		PhaseConfirmation:      &confirmationHandler{},
	}

	return &Orchestrator{
		handlers:         handlers,
		maxRepeat:        opts.MaxRepeat,
		errorCeiling:     opts.ErrorCeiling,
		onTransition:     opts.OnTransition,
		onRetryExhausted: opts.OnRetryExhausted,
		logger:           opts.Logger.With("component", "dialog"),
	}
}

// SetHandler replaces the handler for a phase. Tests use this to install
// stubs; production code keeps the fixed mapping from NewOrchestrator.
func (o *Orchestrator) SetHandler(p Phase, h Handler) {
	o.handlers[p] = h
}

// HandleFinal processes one final transcript against the call's state.
// It is the single mutation path for State.
func (o *Orchestrator) HandleFinal(ctx context.Context, st *State, text string) (Outcome, error) {
	if st == nil {
		return Outcome{}, ErrNoState
	}
	if st.Phase.Terminal() {
		return Outcome{}, ErrCallEnded
	}

	st.AddTranscript("caller", text)

	handler, ok := o.handlers[st.Phase]
	if !ok {
		return Outcome{}, ErrNoHandler
	}

	before := st.Phase
	res, err := handler.Process(ctx, text, st)
	if err != nil {
		// Handlers absorb collaborator failures themselves; an error
		// here is a programming fault. Keep the call alive.
		o.logger.Error("phase handler failed",
			"call_id", st.CallID,
			"phase", st.Phase.String(),
			"error", err,
		)
		res = Result{Response: promptNotUnderstood, Next: st.Phase}
	}

	if res.BestEffort {
		o.logger.Warn("retry limit reached, accepting best-effort input",
			"call_id", st.CallID,
			"phase", before.String(),
		)
		if o.onRetryExhausted != nil {
			o.onRetryExhausted(before)
		}
	}

	// Call-wide consecutive-error ceiling, independent of the per-phase
	// retry counters.
	if res.Accepted {
		st.ErrorCount = 0
	} else {
		st.ErrorCount++
		if st.ErrorCount >= o.errorCeiling {
			o.logger.Warn("error ceiling reached, closing call",
				"call_id", st.CallID,
				"errors", st.ErrorCount,
			)
			o.advance(st, PhaseCompleted)
			st.AddTranscript("agent", promptApologyClose)
			return Outcome{Responses: []string{promptApologyClose}, HangUp: true}, nil
		}
	}

	if res.Next > st.Phase {
		o.advance(st, res.Next)
	}

	response := o.guardRepetition(st, res.Response)
	if response == "" {
		return Outcome{Notify: res.Notify, HangUp: res.HangUp || st.Phase.Terminal()}, nil
	}

	st.AddTranscript("agent", response)

	if before != st.Phase {
		o.logger.Info("phase transition",
			"call_id", st.CallID,
			"from", before.String(),
			"to", st.Phase.String(),
		)
	}

	return Outcome{
		Responses: []string{response},
		Notify:    res.Notify,
		HangUp:    res.HangUp || st.Phase.Terminal(),
	}, nil
}

func (o *Orchestrator) advance(st *State, to Phase) {
	if st.Advance(to) && o.onTransition != nil {
		o.onTransition(to)
	}
}

// guardRepetition alters a response that would be spoken more than
// maxRepeat times in a row, so a misbehaving handler cannot put the call
// into an infinite loop.
func (o *Orchestrator) guardRepetition(st *State, response string) string {
	if response == "" {
		return ""
	}

	if response != st.lastResponse {
		st.lastResponse = response
		st.RepeatCount = 1
		return response
	}

	st.RepeatCount++
	if st.RepeatCount <= o.maxRepeat {
		return response
	}

	escalated := escalationFor(response, st)
	o.logger.Warn("repetition guard fired",
		"call_id", st.CallID,
		"phase", st.Phase.String(),
		"repeats", st.RepeatCount,
	)
	st.lastResponse = escalated
	st.RepeatCount = 1
	return escalated
}
