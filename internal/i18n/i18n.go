// Package i18n resolves user-facing strings from the embedded en-GB catalogue.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	goLocale "github.com/jeandeaual/go-locale"
	i18nLib "github.com/kaptinlin/go-i18n"
	"golang.org/x/text/language"
)

//go:embed lang/en-GB.json
var catalogue embed.FS

const (
	catalogueLocale = "en-GB"
	cataloguePath   = "lang/en-GB.json"
	// testModeEnv makes T return the key and its variables so tests do not
	// depend on catalogue wording.
	testModeEnv = "COVGATE_TEST"
)

// Vars are the placeholder values interpolated into a message.
type Vars map[string]any

var (
	systemLocales = goLocale.GetLocales

	// mu guards localizer; go-i18n's lookup cache is not safe for concurrent use.
	mu        sync.Mutex
	localizer *i18nLib.Localizer
)

func reset() {
	mu.Lock()
	defer mu.Unlock()
	localizer = nil
	systemLocales = goLocale.GetLocales
}

// T returns the catalogue message for key. Unknown keys come back unchanged.
func T(key string, vars ...Vars) string {
	if len(vars) > 1 {
		panic("i18n.T accepts at most one Vars")
	}
	if _, present := os.LookupEnv(testModeEnv); present {
		if len(vars) == 0 {
			return key
		}
		return fmt.Sprintf("%s %v", key, map[string]any(vars[0]))
	}

	mu.Lock()
	defer mu.Unlock()
	if localizer == nil {
		localizer = newLocalizer()
	}
	if len(vars) == 0 {
		return localizer.Get(key)
	}
	return localizer.Get(key, i18nLib.Vars(vars[0]))
}

func newLocalizer() *i18nLib.Localizer {
	bundle := i18nLib.NewBundle(
		i18nLib.WithDefaultLocale(catalogueLocale),
		i18nLib.WithLocales(catalogueLocale),
	)
	if err := bundle.LoadFS(catalogue, cataloguePath); err != nil {
		panic(err)
	}
	return bundle.NewLocalizer(preferredLocales(userLocales())...)
}

// userLocales prefers LANG over what the operating system reports.
func userLocales() []string {
	if lang, present := os.LookupEnv("LANG"); present {
		return []string{lang}
	}
	detected, err := systemLocales()
	if err != nil {
		return nil
	}
	return detected
}

// preferredLocales turns POSIX and BCP 47 names into canonical tags, dropping
// anything unparseable.
func preferredLocales(raw []string) []string {
	locales := make([]string, 0, len(raw))
	for _, name := range raw {
		name, _, _ = strings.Cut(name, ".")
		if name == "" {
			continue
		}
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		locales = append(locales, tag.String())
	}
	return locales
}
