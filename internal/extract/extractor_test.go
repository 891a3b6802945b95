package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

func entries(pairs ...string) []*model.Entry {
	var out []*model.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		e := model.NewEntry(pairs[i], pairs[i+1], "")
		e.ID = model.EntryID(i/2 + 1)
		out = append(out, e)
	}
	return out
}

func TestTokenize_SpansCoverInput(t *testing.T) {
	text := "A dog's bark, (well-known) 42x!"
	spans := Tokenize(text)
	var b strings.Builder
	var words []string
	for _, sp := range spans {
		b.WriteString(sp.Text(text))
		if sp.Word {
			words = append(words, sp.Text(text))
		}
	}
	assert.Equal(t, text, b.String())
	assert.Equal(t, []string{"A", "dog", "s", "bark", "well", "known", "42x"}, words)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Words(""))
}

func TestWords_InvalidUTF8IsSeparator(t *testing.T) {
	assert.Equal(t, []string{"dog", "cat"}, Words("dog\xffcat"))
}

func TestWords_Unicode(t *testing.T) {
	assert.Equal(t, []string{"naïve", "café", "snake_case"}, Words("Naïve CAFÉ…snake_case."))
}

func TestTargets_DogAnimalDomestic(t *testing.T) {
	es := entries(
		"dog", "a domestic animal",
		"animal", "living thing",
		"domestic", "of the home",
	)
	x := New(NewIndex(es), Options{})

	assert.ElementsMatch(t, []model.EntryID{3, 2}, x.Targets(1, es[0].Definition))
	assert.Empty(t, x.Targets(2, es[1].Definition))
	assert.Empty(t, x.Targets(3, es[2].Definition))
}

func TestTargets_ExcludesSelfAndDuplicates(t *testing.T) {
	es := entries(
		"loop", "a loop of loop",
		"a", "see loop, LOOP and Loop",
	)
	x := New(NewIndex(es), Options{})

	assert.Equal(t, []model.EntryID{2}, x.Targets(1, es[0].Definition), "self reference must be dropped")
	assert.Equal(t, []model.EntryID{1}, x.Targets(2, es[1].Definition), "repeated mentions collapse to one target")
}

func TestTargets_Options(t *testing.T) {
	es := entries(
		"the", "article",
		"ox", "bovine",
		"yak", "the ox of tibet",
	)
	ix := NewIndex(es)

	plain := New(ix, Options{})
	assert.ElementsMatch(t, []model.EntryID{1, 2}, plain.Targets(3, es[2].Definition))

	filtered := New(ix, Options{StopWords: DefaultStopWords(), MinLength: 3})
	assert.Empty(t, filtered.Targets(3, es[2].Definition))
}

func TestTargets_MalformedDefinition(t *testing.T) {
	es := entries("dog", "\xff\xfe\xfd", "cat", "")
	x := New(NewIndex(es), Options{})
	assert.Empty(t, x.Targets(1, es[0].Definition))
	assert.Empty(t, x.Targets(2, es[1].Definition))
}

func TestNewIndex_FirstKeyWins(t *testing.T) {
	es := []*model.Entry{
		{ID: 7, WordKey: "dog"},
		{ID: 9, WordKey: "dog"},
	}
	id, ok := NewIndex(es).Resolve("dog")
	require.True(t, ok)
	assert.Equal(t, model.EntryID(7), id)
}

func TestTargetsAll_MatchesSequential(t *testing.T) {
	var es []*model.Entry
	for i := 0; i < 2000; i++ {
		e := model.NewEntry(fmt.Sprintf("w%d", i), fmt.Sprintf("see w%d and w%d", (i+1)%2000, (i*7)%2000), "")
		e.ID = model.EntryID(i + 1)
		es = append(es, e)
	}
	x := New(NewIndex(es), Options{})

	got, err := x.TargetsAll(context.Background(), es, 4)
	require.NoError(t, err)
	require.Len(t, got, len(es))
	for i, e := range es {
		assert.Equal(t, x.Targets(e.ID, e.Definition), got[i], "entry %s", e.WordKey)
	}
}

func TestTargetsAll_Cancelled(t *testing.T) {
	es := entries("dog", "animal", "animal", "dog")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(NewIndex(es), Options{}).TargetsAll(ctx, es, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
