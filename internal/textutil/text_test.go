package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		minLen int
		want   int
	}{
		{
			name:   "splits on terminal punctuation",
			text:   "This is the first sentence. And here is the second one! A third?",
			minLen: 5,
			want:   3,
		},
		{
			name:   "filters short fragments",
			text:   "A real sentence with many words here. Ok.",
			minLen: 5,
			want:   1,
		},
		{
			name:   "empty text yields nothing",
			text:   "",
			minLen: 5,
			want:   0,
		},
		{
			name:   "runs of punctuation collapse",
			text:   "What do you even mean?! I have no idea...",
			minLen: 5,
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Sentences(tt.text, tt.minLen), tt.want)
		})
	}
}

func TestTrigramOverlap(t *testing.T) {
	content := "the quick brown fox jumps over the lazy dog near the river bank"

	assert.InDelta(t, 1.0, TrigramOverlap(content, content), 1e-9,
		"identical text overlaps completely")

	assert.Equal(t, 0.0, TrigramOverlap("entirely different words appear here now", content))

	// Partial copy: overlap strictly between none and all.
	partial := "the quick brown fox jumps but then something original happened yesterday evening"
	got := TrigramOverlap(partial, content)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)

	assert.Equal(t, 0.0, TrigramOverlap("two words", content), "too short for trigrams")
}

// TestTrigramOverlapMonotonic checks that copying more of the content
// never lowers the measured overlap.
func TestTrigramOverlapMonotonic(t *testing.T) {
	content := "solar panels cut household energy bills over twenty years of typical use"
	low := "i installed mine last spring and honestly my bills dropped a lot since then"
	mid := "solar panels cut household energy bills and i noticed mine dropped a lot since then too"
	high := content

	lowOv := TrigramOverlap(low, content)
	midOv := TrigramOverlap(mid, content)
	highOv := TrigramOverlap(high, content)

	assert.LessOrEqual(t, lowOv, midOv)
	assert.LessOrEqual(t, midOv, highOv)
}

func TestKeywords(t *testing.T) {
	stop := SetOf([]string{"with", "this", "that"})
	kw := Keywords("Working WITH solar panels this YEAR was rewarding, panels!", 4, stop)

	assert.Contains(t, kw, "solar")
	assert.Contains(t, kw, "panels")
	assert.Contains(t, kw, "rewarding")
	assert.NotContains(t, kw, "with", "stopwords excluded")
	assert.NotContains(t, kw, "was", "short tokens excluded")
	assert.Contains(t, kw, "year")
}

func TestCountPresent(t *testing.T) {
	phrases := []string{"for example", "in conclusion", "i think"}
	text := "I think the result matters. For example, I THINK it saved money."

	// Each phrase counts once regardless of repetition.
	assert.Equal(t, 2, CountPresent(text, phrases))
	assert.Equal(t, []string{"for example", "i think"}, MatchPresent(text, phrases))
	assert.Equal(t, 0, CountPresent("nothing matches here", phrases))
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)

	mean, std = MeanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestLengthCV(t *testing.T) {
	uniform := []string{"one two three four", "five six seven eight", "nine ten eleven twelve"}
	varied := []string{"short", "this one is quite a bit longer than the others", "mid length here"}

	assert.Less(t, LengthCV(uniform, 1.0), LengthCV(varied, 1.0),
		"varied sentence lengths produce a higher coefficient of variation")
	assert.Zero(t, LengthCV(nil, 1.0))
}
