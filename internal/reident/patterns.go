package reident

import (
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
)

// Pattern recognizes pseudonyms of one value type in free text.
type Pattern struct {
	Type pseudonym.ValueType
	Re   *regexp.Regexp
}

var tokenClass = fmt.Sprintf("[a-z2-7]{%d}", pseudonym.TokenLength)

// DefaultPatterns returns the shapes of every pseudonym format the engine
// derives, followed by the numbered placeholder tokens (HOST_12, USER_03,
// IP_07, ...) found in older reports.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{pseudonym.TypeEmail, regexp.MustCompile(
			`\b` + regexp.QuoteMeta(pseudonym.EmailPrefix) + tokenClass + `@` + regexp.QuoteMeta(pseudonym.EmailDomain) + `\b`)},
		{pseudonym.TypeHostname, regexp.MustCompile(
			`\b` + regexp.QuoteMeta(pseudonym.HostnamePrefix) + tokenClass + regexp.QuoteMeta(pseudonym.HostnameSuffix) + `\b`)},
		{pseudonym.TypeUsername, regexp.MustCompile(
			`\b` + regexp.QuoteMeta(pseudonym.UsernamePrefix) + tokenClass + `\b`)},
		{pseudonym.TypeGeneric, regexp.MustCompile(
			fmt.Sprintf(`\b%s[a-z2-7]{%d}\b`, regexp.QuoteMeta(pseudonym.GenericPrefix), pseudonym.GenericTokenLength))},
		{pseudonym.TypeIP, regexp.MustCompile(
			`\b(?:24[0-9]|25[0-4])(?:\.(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])){3}\b`)},

		{pseudonym.TypeHostname, regexp.MustCompile(`\bHOST_[0-9]+\b`)},
		{pseudonym.TypeUsername, regexp.MustCompile(`\bUSER_[0-9]+\b`)},
		{pseudonym.TypeIP, regexp.MustCompile(`\bIP_[0-9]+\b`)},
		{pseudonym.TypeEmail, regexp.MustCompile(`\bEMAIL_[0-9]+\b`)},
		{pseudonym.TypeGeneric, regexp.MustCompile(`\bANON_[0-9]+\b`)},
	}
}
