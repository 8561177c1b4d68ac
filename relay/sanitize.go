package relay

import (
	"regexp"
	"strings"
)

// Models in a shared room routinely echo speaker labels ("Ava: ..."), and
// sometimes echo another model's echo ("Ava: Ava: ..."). SanitizeResponse
// strips those artifacts; StripReasoning removes leaked reasoning blocks.
// Both are idempotent: applying either to already-clean text is a no-op.

var (
	thinkingBlockPattern = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
	thinkBlockPattern    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkingTagPattern   = regexp.MustCompile(`(?is)\[thinking\].*?\[/thinking\]`)
	stageDirectionRe     = regexp.MustCompile(`\*[^*]+\*`)

	// Generic "SomeName:" fallback for speakers not in the roster.
	// 2-15 latin or hangul word characters followed by a colon.
	genericPrefixRe = regexp.MustCompile(`^\s*[\p{Hangul}A-Za-z]{2,15}\s*:\s*`)
)

// sanitizePasses bounds prefix stripping. Three passes handle doubled and
// nested prefixes; clean text is a fixed point after that.
const sanitizePasses = 3

// StripReasoning removes <thinking>/<think>/[thinking] blocks and *stage
// direction* spans a model may leak into its reply.
func StripReasoning(text string) string {
	text = thinkingBlockPattern.ReplaceAllString(text, "")
	text = thinkBlockPattern.ReplaceAllString(text, "")
	text = thinkingTagPattern.ReplaceAllString(text, "")
	text = stageDirectionRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SanitizeResponse removes leading speaker-name prefixes from a generated
// reply. For every roster name it strips "Name:", "[Name]:" and "Name님:"
// (case-insensitive, optional leading whitespace), then one generic
// "word-chars:" prefix per pass. Content that is not a leading name prefix is
// never touched. The result is trimmed of surrounding whitespace.
func SanitizeResponse(raw string, names []string) string {
	prefixes := make([]*regexp.Regexp, 0, len(names)*3)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		quoted := regexp.QuoteMeta(name)
		prefixes = append(prefixes,
			regexp.MustCompile(`(?i)^\s*`+quoted+`\s*:\s*`),
			regexp.MustCompile(`(?i)^\s*\[`+quoted+`\]\s*:\s*`),
			regexp.MustCompile(`(?i)^\s*`+quoted+`님\s*:\s*`),
		)
	}

	out := raw
	for pass := 0; pass < sanitizePasses; pass++ {
		for _, re := range prefixes {
			out = re.ReplaceAllString(out, "")
		}
		out = genericPrefixRe.ReplaceAllString(out, "")
	}
	return strings.TrimSpace(out)
}
