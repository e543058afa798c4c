package service

import (
	"fmt"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestVocabularyNormalize(t *testing.T) {
	t.Parallel()

	v := NewVocabulary([]string{"Groceries", "Electronics", "Entertainment", "Transport", "Other"})

	cases := []struct {
		in      string
		want    string
		matched bool
	}{
		{"groceries", "Groceries", true},
		{"  GROCERIES  ", "Groceries", true},
		{"grocery", "Groceries", true},  // close typo
		{"grocries", "Groceries", true}, // dropped letter
		{"electronic", "Electronics", true},
		{"transprot", "Transport", true},
		{"vacation fund", "Vacation Fund", false}, // too far from anything known
		{"ñoño stuff", "Ñoño Stuff", false},       // multibyte first letter survives title-casing
		{"électricité", "Électricité", false},
	}
	for _, tc := range cases {
		got, matched := v.Normalize(tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
		require.Equal(t, tc.matched, matched, "input %q", tc.in)
		require.True(t, utf8.ValidString(got), "input %q", tc.in)
	}
}

func TestVocabularyConcurrentUse(t *testing.T) {
	t.Parallel()

	v := NewVocabulary([]string{"Groceries", "Transport"})

	// chat interpretation and a statement import may grow the vocabulary at
	// the same time
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v.Add(fmt.Sprintf("Category %d-%d", i, j))
				v.Normalize("grocries")
				v.Names()
			}
		}(i)
	}
	wg.Wait()

	names := v.Names()
	require.Contains(t, names, "Groceries")
	require.Contains(t, names, "Category 0-0")
	require.Len(t, names, 2+8*50)
}

func TestVocabularyAddDeduplicates(t *testing.T) {
	t.Parallel()

	v := NewVocabulary([]string{"Groceries"})
	v.Add("groceries")
	v.Add("Travel")
	v.Add(" Travel ")
	require.Equal(t, []string{"Groceries", "Travel"}, v.Names())
}
