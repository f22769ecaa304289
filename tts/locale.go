package tts

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// FallbackLocale is used when the environment names no usable locale.
var FallbackLocale = language.AmericanEnglish

// SystemLocale returns the process default locale derived from the
// POSIX locale variables, in their usual precedence order.
func SystemLocale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if tag, ok := ParseLocale(os.Getenv(key)); ok {
			return tag
		}
	}
	return FallbackLocale
}

// ParseLocale converts a POSIX locale name such as "de_DE.UTF-8@euro" or a
// BCP 47 tag such as "pt-BR" into a language tag. The "C" and "POSIX"
// locales carry no language and are rejected.
func ParseLocale(s string) (language.Tag, bool) {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}

	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}
