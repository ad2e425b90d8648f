package solutions_test

import (
	"os"
	"path/filepath"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/subseries/internal/dataset"
	"github.com/programme-lv/subseries/internal/solutions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(t *dataset.Table) []string {
	res := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		res = append(res, row[0])
	}
	return res
}

func table() *dataset.Table {
	return dataset.NewTable([]string{"id", "code", "lang", "grade"}, [][]string{
		{"1", "a", "python3", "GOOD"},
		{"2", "b", "java11", "BAD"},
		{"3", "a", "python3", "MODERATE"},
		{"4", "c", "kotlin", "GOOD"},
		{"5", "b", "java8", ""},
	})
}

func TestParseLanguages(t *testing.T) {
	langs, err := solutions.ParseLanguages("Python3, java11,python3")
	require.NoError(t, err)
	assert.True(t, langs.Equal(mapset.NewSet("python3", "java11")))

	_, err = solutions.ParseLanguages("python3,cobol")
	assert.ErrorIs(t, err, solutions.ErrUnknownLanguage)
}

func TestFilterByLanguage(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(solutions.FilterByLanguage(table(), solutions.KnownLanguages)))
	assert.Empty(t, solutions.FilterByLanguage(table(), mapset.NewSet[string]()).Rows)
	assert.Equal(t, []string{"1", "3"}, ids(solutions.FilterByLanguage(table(), mapset.NewSet(solutions.Python3))))
	assert.Equal(t, []string{"1", "2", "3"}, ids(solutions.FilterByLanguage(table(), mapset.NewSet(solutions.Python3, solutions.Java11))))
}

func TestFilterKeepsEveryColumn(t *testing.T) {
	got := solutions.FilterByLanguage(table(), mapset.NewSet(solutions.Java11))
	assert.Equal(t, []string{"id", "code", "lang", "grade"}, got.Header)
	assert.Equal(t, [][]string{{"2", "b", "java11", "BAD"}}, got.Rows)
}

func TestDropDuplicatesKeepsLast(t *testing.T) {
	assert.Equal(t, []string{"3", "4", "5"}, ids(solutions.DropDuplicates(table())))
	assert.Empty(t, solutions.DropDuplicates(dataset.NewTable([]string{"code", "lang"}, nil)).Rows)
}

func TestReadFileNeedsOnlyCodeAndLang(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solutions.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,code,lang,grade\n1,\"a = 1\",python3,GOOD\n"), 0644))

	tbl, err := solutions.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "a = 1", "python3", "GOOD"}}, tbl.Rows)

	bad := filepath.Join(dir, "no-lang.csv")
	require.NoError(t, os.WriteFile(bad, []byte("id,code\n1,x\n"), 0644))
	_, err = solutions.ReadFile(bad)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}
