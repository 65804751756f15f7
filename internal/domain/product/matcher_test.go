package product

import (
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	names := []string{"Piens Exporta 2%", "Sviests Exporta 82,5%", "Tualetes papīrs Zewa"}
	matcher := NewMatcher(names, nil, logger)

	t.Run("exact match", func(t *testing.T) {
		match, ok := matcher.Match("Piens Exporta 2%")
		require.True(t, ok)
		assert.Equal(t, "Piens Exporta 2%", match.Name)
		assert.Equal(t, 100, match.Score)
	})

	t.Run("close match wins over distant names", func(t *testing.T) {
		match, ok := matcher.Match("Sviests Exporta 82,5% 200g")
		require.True(t, ok)
		assert.Equal(t, "Sviests Exporta 82,5%", match.Name)
		assert.Greater(t, match.Score, 70)
	})

	t.Run("low score is returned, not suppressed", func(t *testing.T) {
		match, ok := matcher.Match("Bezalkoholiskais dzēriens")
		require.True(t, ok)
		assert.NotEmpty(t, match.Name)
		assert.Less(t, match.Score, 50)
	})

	t.Run("empty catalog", func(t *testing.T) {
		empty := NewMatcher(nil, nil, logger)
		_, ok := empty.Match("Piens")
		assert.False(t, ok)
	})

	t.Run("tie goes to the lexicographically smaller name", func(t *testing.T) {
		tied := NewMatcher([]string{"Piens 2L", "Piens 1L"}, nil, logger)
		match, ok := tied.Match("Piens")
		require.True(t, ok)
		assert.Equal(t, "Piens 1L", match.Name)
	})
}

func TestMatcher_Match_largeCatalog(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	faker := gofakeit.New(11)

	needle := "Sviests Exporta 82,5%"
	names := []string{needle}
	seen := map[string]bool{needle: true}
	for len(names) < 600 {
		name := faker.ProductName()
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	index, err := NewIndex(names)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	matcher := NewMatcher(names, index, logger)

	match, ok := matcher.Match("Sviests Exporta 82,5% 200g")
	require.True(t, ok)
	assert.Equal(t, needle, match.Name)
	assert.Greater(t, match.Score, 70)
}

func TestRatio(t *testing.T) {
	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 100, Ratio("Piens Exporta", "Piens Exporta"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, 100, Ratio("piens exporta", "PIENS EXPORTA"))
	})

	t.Run("token order insensitive", func(t *testing.T) {
		assert.Equal(t, 100, Ratio("Rīgas piens", "piens Rīgas"))
	})

	t.Run("disjoint strings score low", func(t *testing.T) {
		assert.Less(t, Ratio("Piens", "Tualetes papīrs"), 30)
	})

	t.Run("score ordering follows closeness", func(t *testing.T) {
		closer := Ratio("Sviests Exporta", "Sviests Exporta 82,5%")
		farther := Ratio("Sviests Exporta", "Tualetes papīrs Zewa")
		assert.Greater(t, closer, farther)
	})
}

func TestIndex_Candidates(t *testing.T) {
	names := []string{
		"Piens Exporta 2%",
		"Sviests Exporta 82,5%",
		"Tualetes papīrs Zewa",
		"Maize Brioche",
	}

	index, err := NewIndex(names)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	assert.Equal(t, len(names), index.Size())

	t.Run("narrows to token matches", func(t *testing.T) {
		candidates, err := index.Candidates("Exporta", 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Piens Exporta 2%", "Sviests Exporta 82,5%"}, candidates)
	})

	t.Run("unknown token yields no candidates", func(t *testing.T) {
		candidates, err := index.Candidates("Šokolāde", 10)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("respects limit", func(t *testing.T) {
		candidates, err := index.Candidates("Exporta", 1)
		require.NoError(t, err)
		assert.Len(t, candidates, 1)
	})
}
