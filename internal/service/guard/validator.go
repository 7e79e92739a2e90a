package guard

import (
	"strings"
	"unicode/utf8"
)

// Rule names the check that rejected a message.
type Rule string

const (
	RuleNone      Rule = ""
	RuleEmpty     Rule = "empty"
	RuleTooLong   Rule = "too_long"
	RuleTooWordy  Rule = "too_many_words"
	RuleHarmful   Rule = "harmful"
	RuleProfanity Rule = "profanity"
)

// Canned replies sent instead of an LLM answer.
const (
	ReplyEmpty     = "Lütfen bir soru veya mesaj yazın."
	ReplyTooLong   = "Mesajınız çok uzun. Lütfen daha kısa bir mesaj gönderin."
	ReplyTooWordy  = "Lütfen sorunuzu daha kısa ve öz bir şekilde yazın."
	ReplyHarmful   = "Bu tür içerikler için yardım sağlayamam. Lütfen uygun bir soru sorun."
	ReplyProfanity = "Üzgünüm, bu tür bir ifadeye yanıt veremem. Lütfen daha uygun bir dil kullanın."
)

// DefaultHarmfulKeywords are matched as case-insensitive substrings.
var DefaultHarmfulKeywords = []string{"hack", "spam", "virus", "malware", "phishing", "scam"}

// DefaultProfanity is matched against whole lower-cased words.
var DefaultProfanity = []string{
	"amk", "mk", "siktir", "aq", "aptal", "salak", "gerizekalı", "pezevenk",
	"orospu", "kahpe", "ibne", "piç", "yavşak", "göt", "sikerim", "sikeyim",
	"ananı", "babanı", "sikik", "amına", "götveren", "şerefsiz", "bok", "sıçmak",
	"zavallı", "dangalak", "mal", "öküz", "eşşek", "keriz", "kaltak", "puşt",
}

// Options configures a Validator. Zero values fall back to defaults.
type Options struct {
	MaxChars        int
	MaxWords        int
	HarmfulKeywords []string
	Profanity       []string
	// DisableProfanity turns off the word-set check.
	DisableProfanity bool
}

// Result is the outcome of Validate.
type Result struct {
	OK    bool
	Rule  Rule
	Reply string
}

// Validator is a stateless, ordered rule gate on user messages.
type Validator struct {
	maxChars  int
	maxWords  int
	harmful   []string
	profanity map[string]struct{}
}

// New builds a Validator.
func New(opts Options) *Validator {
	v := &Validator{
		maxChars: opts.MaxChars,
		maxWords: opts.MaxWords,
	}
	if v.maxChars <= 0 {
		v.maxChars = 1000
	}
	if v.maxWords <= 0 {
		v.maxWords = 200
	}

	harmful := opts.HarmfulKeywords
	if len(harmful) == 0 {
		harmful = DefaultHarmfulKeywords
	}
	for _, kw := range harmful {
		v.harmful = append(v.harmful, strings.ToLower(kw))
	}

	if !opts.DisableProfanity {
		words := opts.Profanity
		if len(words) == 0 {
			words = DefaultProfanity
		}
		v.profanity = make(map[string]struct{}, len(words))
		for _, w := range words {
			v.profanity[strings.ToLower(w)] = struct{}{}
		}
	}
	return v
}

// Validate applies the rules in order; the first match wins.
func (v *Validator) Validate(content string) Result {
	if strings.TrimSpace(content) == "" {
		return reject(RuleEmpty, ReplyEmpty)
	}

	if utf8.RuneCountInString(content) > v.maxChars {
		return reject(RuleTooLong, ReplyTooLong)
	}

	words := strings.Fields(strings.ToLower(content))
	if len(words) > v.maxWords {
		return reject(RuleTooWordy, ReplyTooWordy)
	}

	lowered := strings.ToLower(content)
	for _, kw := range v.harmful {
		if strings.Contains(lowered, kw) {
			return reject(RuleHarmful, ReplyHarmful)
		}
	}

	for _, w := range words {
		if _, bad := v.profanity[w]; bad {
			return reject(RuleProfanity, ReplyProfanity)
		}
	}

	return Result{OK: true}
}

func reject(rule Rule, reply string) Result {
	return Result{Rule: rule, Reply: reply}
}
