package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultMinWords = 30
	DefaultMaxWords = 60
)

// ErrEmptyRewrite is returned when a provider answered without a usable prompt.
var ErrEmptyRewrite = errors.New("prompt: rewrite returned no text")

// RewriteRequest asks for a policy-safe version of a rejected scene prompt.
type RewriteRequest struct {
	Prompt      string
	TargetModel string
	MinWords    int
	MaxWords    int
}

func (r RewriteRequest) band() (int, int) {
	minWords, maxWords := r.MinWords, r.MaxWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if maxWords < minWords {
		maxWords = minWords
	}
	return minWords, maxWords
}

// Rewriter is the auxiliary service used to recover from content-policy
// rejections.
type Rewriter interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// RewriterFunc adapts a plain function to Rewriter.
type RewriterFunc func(ctx context.Context, req RewriteRequest) (string, error)

func (f RewriterFunc) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	return f(ctx, req)
}

// ProviderError is a non-2xx answer from a rewrite provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}

// flaggedTerms are stripped by the offline rewriter. Matching is done on
// lower-cased words with surrounding punctuation removed.
var flaggedTerms = map[string]struct{}{
	"blood": {}, "bloody": {}, "gore": {}, "gory": {}, "corpse": {}, "dead": {},
	"kill": {}, "killing": {}, "murder": {}, "weapon": {}, "gun": {}, "guns": {},
	"knife": {}, "stab": {}, "shooting": {}, "violent": {}, "violence": {},
	"nude": {}, "naked": {}, "nsfw": {}, "sexy": {}, "explicit": {},
	"drug": {}, "drugs": {}, "suicide": {}, "torture": {}, "terrorist": {},
}

var neutralDetails = []string{
	"cinematic composition", "soft natural lighting", "rich atmospheric detail",
	"balanced color palette", "clear focal subject", "gentle depth of field",
	"high detail", "calm mood",
}

// safeSuffix closes every offline rewrite. A suffix left by an earlier
// rewrite is removed first so it never stacks.
var safeSuffix = []string{"rendered", "in", "a", "safe,", "family-friendly", "style"}

// StaticRewriter rewrites prompts offline by stripping flagged vocabulary and
// padding or truncating to the target length band. It is used when no remote
// rewrite provider is configured. The result always differs from the input.
type StaticRewriter struct {
	lower cases.Caser
}

func NewStaticRewriter() *StaticRewriter {
	return &StaticRewriter{lower: cases.Lower(language.Und)}
}

func (s *StaticRewriter) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	minWords, maxWords := req.band()
	var body []string
	for _, word := range strings.Fields(req.Prompt) {
		key := strings.Trim(s.lower.String(word), ".,;:!?\"'()[]")
		if _, flagged := flaggedTerms[key]; flagged {
			continue
		}
		body = append(body, word)
	}
	body = trimSuffixWords(body, safeSuffix)

	original := strings.Join(strings.Fields(req.Prompt), " ")
	out := composeSafe(body, nil, minWords, maxWords)
	// Two distinct details cannot both reproduce the input.
	for i := 0; out == original && i < len(neutralDetails); i++ {
		out = composeSafe(body, strings.Fields(neutralDetails[i]+","), minWords, maxWords)
	}
	return out, nil
}

func composeSafe(body, extra []string, minWords, maxWords int) string {
	limit := maxWords - len(safeSuffix) - len(extra)
	if limit < 1 {
		limit = 1
	}
	if len(body) > limit {
		body = body[:limit]
	}
	words := append(append([]string(nil), body...), extra...)
	for i := 0; len(words)+len(safeSuffix) < minWords; i++ {
		words = append(words, strings.Fields(neutralDetails[i%len(neutralDetails)]+",")...)
	}
	words = append(words, safeSuffix...)
	return clampWords(strings.Join(words, " "), maxWords)
}

func trimSuffixWords(words, suffix []string) []string {
	if len(words) < len(suffix) {
		return words
	}
	tail := words[len(words)-len(suffix):]
	for i := range suffix {
		if !strings.EqualFold(tail[i], suffix[i]) {
			return words
		}
	}
	return words[:len(words)-len(suffix)]
}

var _ Rewriter = (*StaticRewriter)(nil)

func (s *StaticRewriter) Name() string { return staticProviderName }
