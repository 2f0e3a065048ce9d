// Package translate renders user-visible text in the host locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fallback is the locale used when the host reports none.
const Fallback = "en-US"

var (
	tag     language.Tag
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("tricpu: locale: %v", err)
	}

	tag = Match(locales...)
	printer = message.NewPrinter(tag)
}

// Match returns the best supported language for the locales, or
// Fallback if there are none.
func Match(locales ...string) language.Tag {
	if len(locales) == 0 {
		locales = []string{Fallback}
	}

	return message.MatchLanguage(locales...)
}

// Tag returns the language the package printer settled on.
func Tag() language.Tag {
	return tag
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
