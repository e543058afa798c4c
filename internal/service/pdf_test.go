package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func span(x, w float64, s string) textSpan {
	return textSpan{X: x, W: w, S: s}
}

func TestClusterColumns(t *testing.T) {
	t.Parallel()

	// "01/03/2026 | Weekly shop ALDI | -42.17" with word gaps inside the
	// description and column gaps between fields
	spans := []textSpan{
		span(50, 40, "01/03/2026"),
		span(120, 30, "Weekly"),
		span(152, 20, "shop"),
		span(174, 22, "ALDI"),
		span(420, 28, "-42.17"),
	}
	require.Equal(t, []string{"01/03/2026", "Weekly shop ALDI", "-42.17"}, clusterColumns(spans))
}

func TestClusterColumnsTightFragments(t *testing.T) {
	t.Parallel()

	// glyph-level fragments abutting each other join without spaces
	spans := []textSpan{
		span(50, 8, "4"),
		span(58, 8, "2"),
		span(66.5, 4, "."),
		span(71, 8, "1"),
		span(79, 8, "7"),
	}
	require.Equal(t, []string{"42.17"}, clusterColumns(spans))

	require.Empty(t, clusterColumns(nil))
}

func TestReconstructRow(t *testing.T) {
	t.Parallel()

	row, ok, err := reconstructRow(7, []string{"01/03/2026", "Weekly shop ALDI", "-42.17", "1,203.40"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, row.Line)
	require.Equal(t, "01/03/2026", row.Date)
	require.Equal(t, "Weekly shop ALDI", row.Description)
	require.Equal(t, "-42.17", row.Amount, "first amount column is the transaction; trailing one is the running balance")
	require.Equal(t, "Groceries", row.Category)
}

func TestReconstructRowNoise(t *testing.T) {
	t.Parallel()

	for _, cols := range [][]string{
		{"ACCOUNT STATEMENT"},
		{"Date", "Description", "Amount", "Balance"},
		{"Closing balance", "1,203.40"},
		{"Page 2 of 3"},
		{},
	} {
		_, ok, err := reconstructRow(1, cols)
		require.NoError(t, err, "cols %v", cols)
		require.False(t, ok, "cols %v must be treated as noise", cols)
	}
}

func TestReconstructRowDateWithoutAmount(t *testing.T) {
	t.Parallel()

	_, ok, err := reconstructRow(4, []string{"01/03/2026", "Pending card hold"})
	require.Error(t, err, "a dated line without an amount is reported, not silently dropped")
	require.False(t, ok)
}

func TestGuessCategory(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"ALDI SUED 104":       "Groceries",
		"NETFLIX.COM":         "Entertainment",
		"UBER *TRIP":          "Transport",
		"AMAZON MKTPLACE":     "Electronics",
		"TRANSFER TO SAVINGS": "Other",
		"":                    "Other",
	}
	for desc, want := range cases {
		require.Equal(t, want, guessCategory(desc), "description %q", desc)
	}
}
