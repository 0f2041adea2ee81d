package batch

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"studio/internal/domain"
)

// statusCoder is implemented by provider errors that carry the HTTP status
// of the failed call.
type statusCoder interface {
	HTTPStatus() int
}

type vocabulary struct {
	category domain.ErrorCategory
	terms    []string
	// codes match only as standalone numbers, so ids that merely contain
	// the digits do not count.
	codes []string
}

// Checked in order; the first match wins.
var vocabularies = []vocabulary{
	{
		category: domain.CategoryCredentialExpired,
		terms: []string{
			"session expired", "session has expired", "session invalid", "invalid session",
			"unauthenticated", "unauthorized", "authentication", "invalid api key",
			"api key not valid", "api key expired", "token expired", "token has expired",
			"login required", "please log in", "sign in again",
		},
	},
	{
		category: domain.CategoryContentPolicy,
		terms: []string{
			"blocked", "unsafe content", "safety", "content policy", "policy violation",
			"prohibited", "inappropriate", "responsible ai", "data inspection failed",
		},
	},
	{
		category: domain.CategoryRateLimited,
		terms: []string{
			"too many requests", "throttled", "throttling", "rate limit",
			"rate-limit", "resource exhausted", "resource_exhausted", "quota exceeded",
		},
		codes: []string{"429"},
	},
}

// Classify maps a failure onto the closed error taxonomy. It is total: nil
// yields CategoryNone and anything unrecognised is CategoryUnknown.
//
// Structured signals are consulted before message text. Wrapped domain
// sentinels win first, then the HTTP status of provider errors, then the
// case-folded vocabulary.
func Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryNone
	}

	switch {
	case errors.Is(err, domain.ErrCredentialExpired):
		return domain.CategoryCredentialExpired
	case errors.Is(err, domain.ErrContentPolicy):
		return domain.CategoryContentPolicy
	case errors.Is(err, domain.ErrRateLimited):
		return domain.CategoryRateLimited
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusUnauthorized:
			return domain.CategoryCredentialExpired
		case http.StatusTooManyRequests:
			return domain.CategoryRateLimited
		}
	}

	// cases.Caser keeps state, so each call gets its own.
	text := cases.Fold().String(err.Error())
	for _, v := range vocabularies {
		for _, term := range v.terms {
			if strings.Contains(text, term) {
				return v.category
			}
		}
		for _, code := range v.codes {
			if containsCode(text, code) {
				return v.category
			}
		}
	}
	return domain.CategoryUnknown
}

func containsCode(text, code string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], code)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(code)
		if (i == 0 || !isDigit(text[i-1])) && (end == len(text) || !isDigit(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
