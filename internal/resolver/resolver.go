// Package resolver maps a free-text task reference onto one of the caller's tasks.
package resolver

import (
	"strings"
	"unicode/utf8"

	"github.com/zealmehta21/nevermiss/internal/task"
)

// Threshold is the score a candidate must exceed to count as a match.
const Threshold = 0.3

// Score rates how well phrase refers to title, in [0, 1].
// It is the larger of the word-overlap ratio and the substring-containment ratio.
func Score(phrase, title string) float64 {
	ref := strings.ToLower(strings.TrimSpace(phrase))
	ttl := strings.ToLower(strings.TrimSpace(title))
	if ref == "" {
		return 0
	}
	return max(wordOverlap(ref, ttl), containment(ref, ttl))
}

// Resolve returns the id of the candidate whose title best matches phrase.
// The highest score wins; on ties the first candidate seen is kept.
// ok is false when no candidate scores above Threshold.
func Resolve(phrase string, candidates []task.Task) (id string, ok bool) {
	if strings.TrimSpace(phrase) == "" {
		return "", false
	}

	var best float64
	for _, c := range candidates {
		if s := Score(phrase, c.Title); s > best {
			best, id = s, c.ID
		}
	}
	if id == "" || best <= Threshold {
		return "", false
	}
	return id, true
}

// ResolveReference accepts either an exact task id or a phrase.
func ResolveReference(ref string, candidates []task.Task) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	for _, c := range candidates {
		if c.ID == ref {
			return c.ID, true
		}
	}
	return Resolve(ref, candidates)
}

// wordOverlap is |shared| / max(|ref|, |title|), or 0 when nothing is shared.
func wordOverlap(ref, title string) float64 {
	refWords := wordSet(ref)
	titleWords := wordSet(title)

	shared := 0
	for w := range refWords {
		if titleWords[w] {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(max(len(refWords), len(titleWords)))
}

// containment is min(len)/max(len) in characters when one string contains the other.
func containment(ref, title string) float64 {
	if !strings.Contains(title, ref) && !strings.Contains(ref, title) {
		return 0
	}
	refLen, titleLen := utf8.RuneCountInString(ref), utf8.RuneCountInString(title)
	longest := max(refLen, titleLen)
	if longest == 0 {
		return 0
	}
	return float64(min(refLen, titleLen)) / float64(longest)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
