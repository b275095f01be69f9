// Package translate localises diagnostic and runtime messages.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	mutex   sync.RWMutex
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("re2: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// SetLanguage overrides the detected locale with a BCP 47 tag.
// An empty tag keeps the current printer.
func SetLanguage(tag string) (err error) {
	if len(tag) == 0 {
		return
	}

	lang, err := language.Parse(tag)
	if err != nil {
		return
	}

	mutex.Lock()
	printer = message.NewPrinter(lang)
	mutex.Unlock()

	return
}

// From an en-US Sprintf() format, translate to string.
//
// Callers pass numbers pre-formatted as strings; the printer would otherwise
// apply locale digit grouping.
func From(key message.Reference, args ...any) string {
	mutex.RLock()
	defer mutex.RUnlock()

	return printer.Sprintf(key, args...)
}
