// Package tokens approximates token usage for engines that do not report it.
package tokens

import (
	"math"
)

const charsPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// EstimatingCounter approximates token count as ~4 bytes per token.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

func Estimate(text string) int {
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}

// Exchange estimates the tokens spent on one query: the prompt sent plus the
// response received.
func Exchange(c Counter, systemPrompt, prompt, response string) int {
	if c == nil {
		c = &EstimatingCounter{}
	}
	return c.Count(systemPrompt) + c.Count(prompt) + c.Count(response)
}
