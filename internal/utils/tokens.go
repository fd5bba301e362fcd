package utils

// charsPerToken approximates common LLM tokenizers for English text.
const charsPerToken = 4

// CountTokens estimates the number of tokens in text; any non-empty text
// counts as at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly limit tokens, preferring to end
// on a line break when one falls in the last quarter of the budget.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	cut := charLimit
	for i := charLimit - 1; i >= charLimit*3/4; i-- {
		if runes[i] == '\n' {
			cut = i + 1
			break
		}
	}
	return string(runes[:cut])
}
