// Package chatbot defines the local reply-suggestion bots, their response records
// and processing results, and loads bots from their bundle directories.
package chatbot

import (
	"sort"
	"strings"
)

// ResponseKey is the only key present in a Response produced by the processor.
const ResponseKey = "response"

// Response is a single suggested reply fragment.
type Response map[string]string

// NewResponse wraps token as {"response": token}.
func NewResponse(token string) Response {
	return Response{ResponseKey: token}
}

// Text returns the value stored under ResponseKey.
func (r Response) Text() string {
	return r[ResponseKey]
}

// Bot is a loaded chat bot. It is immutable after Load returns and may be shared
// between goroutines.
type Bot struct {
	ID          int
	Title       string
	Description string
	Tags        []string

	// Words is the bot's lexicon in file order.
	Words []string
	// Responses are the canned responses in file order.
	Responses []Response

	Dir       string
	ModelPath string
	IconPath  string
}

// Equal reports whether b and other name the same bot. Titles compare
// case-insensitively.
func (b *Bot) Equal(other *Bot) bool {
	if b == nil || other == nil {
		return b == other
	}
	return strings.EqualFold(b.Title, other.Title)
}

// Result is the outcome of processing one batch of messages for one bot.
// Responses carry no ordering guarantee.
type Result struct {
	Bot       *Bot
	Responses []Response
}

// Empty reports whether the result carries no responses.
func (r *Result) Empty() bool {
	return r == nil || len(r.Responses) == 0
}

// Counts returns the multiset of response texts.
func (r *Result) Counts() map[string]int {
	counts := make(map[string]int)
	if r == nil {
		return counts
	}
	for _, resp := range r.Responses {
		counts[resp.Text()]++
	}
	return counts
}

// TokenCount pairs a response text with how many times it occurred.
type TokenCount struct {
	Text  string
	Count int
}

// Top returns up to n response texts ordered by descending frequency, ties broken
// alphabetically. n <= 0 returns all of them.
func (r *Result) Top(n int) []TokenCount {
	counts := r.Counts()
	top := make([]TokenCount, 0, len(counts))
	for text, count := range counts {
		top = append(top, TokenCount{Text: text, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Text < top[j].Text
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top
}
