/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import "strings"

// QuestionPrefixes are the accepted openings of a question-form response.
var QuestionPrefixes = []string{
	"what is",
	"what are",
	"who is",
	"who are",
	"where is",
	"where are",
	"when is",
	"when are",
}

// NormalizeResponse trims, lowercases, and drops trailing ?, . and !.
func NormalizeResponse(response string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(response)), "?.!")
}

func IsQuestionForm(response string) bool {
	normalized := NormalizeResponse(response)
	for _, prefix := range QuestionPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}

	return false
}
