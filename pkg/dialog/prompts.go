package dialog

// Spoken prompt text. Kept in one place so wording changes do not touch
// handler logic.

const (
	greetingLine1 = "Hello! Thank you for calling. I'm the automated scheduling assistant."
	greetingLine2 = "I'm here to help you schedule your appointment today."

	promptInsurance = "To get started, could you please tell me your insurance provider name and your member ID number?"

	promptNotUnderstood = "I'm sorry, I didn't quite catch that. Could you please repeat?"

	promptApologyClose = "I'm sorry, I seem to be having trouble understanding you today. " +
		"Please call back and one of our staff will be happy to help. Goodbye."

	promptSynthesisFallback = "I'm sorry, something went wrong on my end. Could you say that again?"

	promptCompleted = "Your appointment has been scheduled. You'll receive a confirmation shortly. " +
		"Thank you for calling. Goodbye!"
)

// SynthesisFallback is the line spoken when an utterance fails to
// synthesize mid-call.
func SynthesisFallback() string {
	return promptSynthesisFallback
}

// escalationFor returns a replacement response when the same prompt would
// be spoken too many times in a row. The replacement either explains the
// request differently or nudges the conversation forward.
func escalationFor(repeated string, st *State) string {
	switch st.Phase {
	case PhaseInsurance:
		return "I understand you may be having trouble. I need the name of your insurance company, " +
			"like Kaiser Permanente, Blue Cross, Aetna, Cigna, or UnitedHealthcare, " +
			"and the member ID printed on your card. Which insurance company do you have?"
	case PhaseDemographics:
		return "Let me try this differently. Please say just your street address first, " +
			"for example 'one fifty Van Ness Avenue'. We can do the city and zip code after."
	case PhaseContactInfo:
		return "Let's try the phone number one digit at a time. " +
			"Please say the ten digits of your phone number slowly."
	default:
		return "I understand this might be confusing. Let me know if you need any clarification, " +
			"or say 'help' if you'd like me to explain what information I need."
	}
}
