// Package conversation holds the in-memory interview transcript, the token
// budget used to trim it and the session that drives provider turns.
package conversation

// charsPerToken is the rough English ratio used for budgeting.
const charsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(bytes/4).
// It is used for budgeting only, never for billing.
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}
