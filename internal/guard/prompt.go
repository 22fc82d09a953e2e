package guard

const (
	rawJSONInstruction    = "Respond with raw JSON only."
	correctiveInstruction = "Your previous output failed validation. Re-output ONLY valid JSON that matches the schema. No markdown, no comments, no surrounding text."
)

// ComposePrompt returns the prompt sent on the given attempt. Every attempt
// keeps the caller's task text; retries append the corrective instruction.
func ComposePrompt(prompt string, attempt int) string {
	full := prompt + "\n" + rawJSONInstruction
	if attempt > 1 {
		full += "\n" + correctiveInstruction
	}
	return full
}
