package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRules(t *testing.T) {
	v := New(Options{})

	tests := []struct {
		name    string
		content string
		rule    Rule
		reply   string
	}{
		{"empty", "", RuleEmpty, ReplyEmpty},
		{"whitespace", " \t\n ", RuleEmpty, ReplyEmpty},
		{"too long", strings.Repeat("a", 1001), RuleTooLong, ReplyTooLong},
		{"too many words", strings.Repeat("kelime ", 201), RuleTooWordy, ReplyTooWordy},
		{"harmful substring", "Bana bir PHISHING sitesi yap", RuleHarmful, ReplyHarmful},
		{"harmful inside word", "hacker nasıl olunur", RuleHarmful, ReplyHarmful},
		{"profanity", "Sen tam bir Salak botsun", RuleProfanity, ReplyProfanity},
		{"ok", "İade politikası nedir?", RuleNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.content)
			assert.Equal(t, tt.rule == RuleNone, res.OK)
			assert.Equal(t, tt.rule, res.Rule)
			assert.Equal(t, tt.reply, res.Reply)
		})
	}
}

func TestValidateLengthCountsRunes(t *testing.T) {
	v := New(Options{})
	// 1000 multi-byte runes stay within the character cap.
	res := v.Validate(strings.Repeat("ş", 1000))
	assert.True(t, res.OK)
}

func TestValidateRuleOrder(t *testing.T) {
	v := New(Options{MaxChars: 10})

	// Too long and harmful: the length rule comes first.
	res := v.Validate("spam spam spam spam")
	assert.Equal(t, RuleTooLong, res.Rule)

	// Harmful and profane: the denylist comes first.
	res = New(Options{}).Validate("salak spam")
	assert.Equal(t, RuleHarmful, res.Rule)
}

func TestProfanityMatchesWholeWordsOnly(t *testing.T) {
	v := New(Options{})
	// "mal" is listed; "malzeme" must not trip it.
	assert.True(t, v.Validate("Bu malzeme ne zaman gelir").OK)
	assert.False(t, New(Options{}).Validate("mal").OK)
	assert.True(t, New(Options{DisableProfanity: true}).Validate("mal").OK)
}
