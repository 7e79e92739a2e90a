package agent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
	"github.com/zhouzirui/shopdesk/backend/internal/service/cache"
	"github.com/zhouzirui/shopdesk/backend/internal/service/tools"
)

// DefaultNegativeMarkers keep apologies and failures out of the cache.
var DefaultNegativeMarkers = []string{
	"problem", "error", "not found", "sorry", "contact support",
	"sorun", "hata", "bulunamadı", "üzgünüm",
}

// privative suffixes turn a marker into its opposite ("hatasız", "sorunsuz").
var privative = []string{"sız", "siz", "suz", "süz"}

// TraitLookup resolves operation traits by name.
type TraitLookup interface {
	Traits(name string) tools.Traits
}

// CachePolicy decides whether a finished turn's answer may be reused for
// any other user asking the same question.
type CachePolicy struct {
	Traits          TraitLookup
	NegativeMarkers []string
}

// NewCachePolicy builds a policy with the default negative markers.
func NewCachePolicy(traits TraitLookup) *CachePolicy {
	return &CachePolicy{Traits: traits, NegativeMarkers: DefaultNegativeMarkers}
}

// Decide returns the cache key and answer to store, or ok=false when the
// answer must not be cached.
func (p *CachePolicy) Decide(state *chat.TurnState) (key, answer string, ok bool) {
	if state.Cached || state.ValidationError || state.Err != nil {
		return "", "", false
	}
	// With history the answer is not a function of the query text alone.
	if state.HasHistory() {
		return "", "", false
	}

	answer, ok = state.FinalAnswer()
	if !ok || strings.TrimSpace(answer) == "" {
		return "", "", false
	}

	if p.usedPrivateData(state) {
		return "", "", false
	}

	lower := strings.ToLower(answer)
	for _, marker := range p.NegativeMarkers {
		if containsMarker(lower, marker) {
			return "", "", false
		}
	}

	query, found := state.LatestUser()
	if !found || cache.Normalize(query.Content) == "" {
		return "", "", false
	}
	return cache.Key(query.Content), answer, true
}

// usedPrivateData reports whether any tool batch of the current turn called
// a volatile or user-scoped operation. Such answers are not valid for every
// asker of the same question.
func (p *CachePolicy) usedPrivateData(state *chat.TurnState) bool {
	if p.Traits == nil {
		return false
	}
	for i := len(state.Messages) - 1; i >= 0; i-- {
		msg := state.Messages[i]
		if msg.Role == chat.RoleUser {
			break
		}
		for _, call := range msg.ToolCalls {
			traits := p.Traits.Traits(call.Name)
			if traits.Volatile || traits.UserScoped {
				return true
			}
		}
	}
	return false
}

// containsMarker reports whether marker starts a word of text. Inflected
// forms match ("hatası", "errors"); privative forms do not ("hatasız").
func containsMarker(text, marker string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], marker)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(marker)
		from = start + 1

		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:start])
			if unicode.IsLetter(prev) || unicode.IsNumber(prev) {
				continue
			}
		}
		if negated(text[end:]) {
			continue
		}
		return true
	}
	return false
}

// negated reports whether the word continuing after a marker is a privative
// suffix.
func negated(rest string) bool {
	word := rest
	if i := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		word = rest[:i]
	}
	for _, suffix := range privative {
		if strings.HasPrefix(word, suffix) {
			return true
		}
	}
	return false
}
