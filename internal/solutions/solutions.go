package solutions

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/subseries/internal/dataset"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Language versions as they appear in the lang column.
const (
	Java7      = "java7"
	Java8      = "java8"
	Java9      = "java9"
	Java11     = "java11"
	Python3    = "python3"
	Kotlin     = "kotlin"
	JavaScript = "javascript"
)

// KnownLanguages is every language version a dataset may be filtered by.
var KnownLanguages = mapset.NewSet(Java7, Java8, Java9, Java11, Python3, Kotlin, JavaScript)

// ParseLanguages parses a comma separated list such as "python3,java11".
func ParseLanguages(value string) (mapset.Set[string], error) {
	langs := mapset.NewSet[string]()
	for _, name := range strings.Split(strings.ToLower(value), ",") {
		name = strings.TrimSpace(name)
		if !KnownLanguages.Contains(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
		}
		langs.Add(name)
	}
	return langs, nil
}

// ReadFile reads a solutions dataset. Only code and lang are required, every
// other column is carried through untouched.
func ReadFile(path string) (*dataset.Table, error) {
	return dataset.ReadTable(path, dataset.ColCode, dataset.ColLang)
}

// FilterByLanguage keeps the rows whose language is in langs.
func FilterByLanguage(t *dataset.Table, langs mapset.Set[string]) *dataset.Table {
	lang := t.Column(dataset.ColLang)
	kept := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if langs.Contains(t.Cell(row, lang)) {
			kept = append(kept, row)
		}
	}
	return t.WithRows(kept)
}

// DropDuplicates removes rows whose code repeats a later one, so the last
// occurrence of each code survives. Survivors keep their relative order.
func DropDuplicates(t *dataset.Table) *dataset.Table {
	code := t.Column(dataset.ColCode)
	lastSeen := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		lastSeen[t.Cell(row, code)] = i
	}
	kept := make([][]string, 0, len(lastSeen))
	for i, row := range t.Rows {
		if lastSeen[t.Cell(row, code)] == i {
			kept = append(kept, row)
		}
	}
	return t.WithRows(kept)
}
