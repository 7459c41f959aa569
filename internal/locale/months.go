// Package locale rewrites localized month names into the English names the
// date parser understands.
package locale

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// monthNames lists, per language, the spellings accepted for each month
// (index 0 = January). Abbreviations may end in a dot in the input.
var monthNames = map[language.Tag][12][]string{
	language.English: {
		{"january", "jan"}, {"february", "feb"}, {"march", "mar"}, {"april", "apr"},
		{"may"}, {"june", "jun"}, {"july", "jul"}, {"august", "aug"},
		{"september", "sep", "sept"}, {"october", "oct"}, {"november", "nov"}, {"december", "dec"},
	},
	language.German: {
		{"januar", "jänner", "jaenner"}, {"februar", "feber"}, {"märz", "maerz", "marz", "mrz"}, {"april"},
		{"mai"}, {"juni"}, {"juli"}, {"august"},
		{"september"}, {"oktober", "okt"}, {"november"}, {"dezember", "dez"},
	},
	language.French: {
		{"janvier", "janv"}, {"février", "fevrier", "févr", "fevr"}, {"mars"}, {"avril", "avr"},
		{"mai"}, {"juin"}, {"juillet", "juil"}, {"août", "aout"},
		{"septembre"}, {"octobre"}, {"novembre"}, {"décembre", "decembre", "déc"},
	},
	language.Spanish: {
		{"enero", "ene"}, {"febrero"}, {"marzo"}, {"abril", "abr"},
		{"mayo"}, {"junio"}, {"julio"}, {"agosto", "ago"},
		{"septiembre", "setiembre", "set"}, {"octubre"}, {"noviembre"}, {"diciembre", "dic"},
	},
	language.Dutch: {
		{"januari"}, {"februari"}, {"maart", "mrt"}, {"april"},
		{"mei"}, {"juni"}, {"juli"}, {"augustus"},
		{"september"}, {"oktober"}, {"november"}, {"december"},
	},
}

var supported = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
	language.Dutch,
}

var matcher = language.NewMatcher(supported)

// Translator maps localized month names to English ones. Names from the
// preferred language win when two languages spell a month the same way.
type Translator struct {
	lookup map[string]time.Month
}

// NewTranslator builds a translator preferring the languages listed in an
// Accept-Language style string. An empty string prefers English.
func NewTranslator(acceptLanguage string) *Translator {
	preferred := language.English
	if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			preferred = supported[idx]
		}
	}

	t := &Translator{lookup: make(map[string]time.Month)}
	for _, tag := range supported {
		if tag == preferred {
			continue
		}
		t.add(tag)
	}
	// Added last so its spellings overwrite any collision.
	t.add(preferred)
	return t
}

func (t *Translator) add(tag language.Tag) {
	for i, names := range monthNames[tag] {
		for _, n := range names {
			t.lookup[n] = time.Month(i + 1)
		}
	}
}

// TranslateMonthNames replaces every recognized month word in text with its
// English name. Everything else is left untouched.
func (t *Translator) TranslateMonthNames(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsLetter(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if m, ok := t.lookup[cases.Fold().String(word)]; ok {
			b.WriteString(m.String())
			// Drop the abbreviation dot: "févr." -> "February".
			if j < len(runes) && runes[j] == '.' {
				j++
			}
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String()
}
