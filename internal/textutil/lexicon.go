package textutil

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the heuristic word and phrase lists the scorers match
// against. The lists are configuration data, not code: deployments tune
// them through a YAML file without rebuilding, and DefaultLexicon provides
// the calibrated baseline.
type Lexicon struct {
	// Stopwords are excluded from keyword extraction.
	Stopwords []string `yaml:"stopwords"`

	// TemplatePhrases are generic filler phrases that indicate a
	// low-effort templated response.
	TemplatePhrases []string `yaml:"template_phrases"`

	// PersonalMarkers suggest first-person, lived-experience writing.
	PersonalMarkers []string `yaml:"personal_markers"`

	// SpecificityMarkers suggest concrete detail: numbers, time
	// references, hedged qualifiers.
	SpecificityMarkers []string `yaml:"specificity_markers"`

	// LogicalConnectors join clauses and indicate argumentative flow.
	LogicalConnectors []string `yaml:"logical_connectors"`

	// AIPhrases are phrasings characteristic of assistant-generated text.
	AIPhrases []string `yaml:"ai_phrases"`

	// HumanMarkers are casual phrasings rare in assistant-generated text.
	HumanMarkers []string `yaml:"human_markers"`

	// IncompleteEndings are trailing words that suggest a truncated
	// sentence.
	IncompleteEndings []string `yaml:"incomplete_endings"`
}

// DefaultLexicon returns the built-in calibrated lists.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Stopwords: []string{
			"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for",
			"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
			"be", "have", "has", "had", "do", "does", "did", "will", "would",
			"could", "should", "may", "might", "must", "can", "this", "that",
			"these", "those", "i", "you", "he", "she", "it", "we", "they", "me",
			"him", "her", "us", "them", "my", "your", "his", "its", "our", "their",
			"what", "which", "who", "whom", "where", "when", "why", "how", "all",
			"each", "every", "both", "few", "more", "most", "other", "some", "such",
			"no", "not", "only", "same", "so", "than", "too", "very", "just", "also",
		},
		TemplatePhrases: []string{
			"this is a great", "i think this is", "in conclusion",
			"to summarize", "i would recommend", "overall i believe",
			"in my opinion", "it's important to", "as mentioned",
			"first of all", "last but not least", "at the end of the day",
		},
		PersonalMarkers: []string{
			"i ", "my ", "me ", "i'm", "i've", "i'll",
			"personally", "in my experience", "for me",
			"my situation", "my home", "my job", "my family",
		},
		SpecificityMarkers: []string{
			"specifically", "for example", "for instance",
			"because", "since", "last week", "yesterday",
			"about $", "around ", "miles", "minutes", "hours",
		},
		LogicalConnectors: []string{
			"because", "since", "therefore", "thus", "hence",
			"but", "however", "although", "though", "yet",
			"and", "also", "additionally", "furthermore",
			"first", "second", "finally", "then", "next",
			"for example", "specifically", "such as",
		},
		AIPhrases: []string{
			"as an ai", "i cannot", "it's important to note",
			"it's worth noting", "that being said", "furthermore",
			"moreover", "additionally", "delve", "crucial",
			"facilitate", "utilize", "leverage", "comprehensive",
			"in conclusion", "to summarize", "let me",
		},
		HumanMarkers: []string{
			"don't", "can't", "won't", "i'm", "i've",
			"yeah", "yep", "nope", "kinda", "gonna",
			"tbh", "imo", "lol", "haha", "i think",
			"i guess", "maybe", "probably", "actually",
			"honestly", "basically", "wow", "oh", "hmm",
		},
		IncompleteEndings: []string{"and", "but", "the", "a", "to", "that", "which"},
	}
}

// LoadLexicon reads a lexicon from a YAML file with strict field checking.
// Empty lists in the file fall back to the defaults for that list, so a
// deployment can override only the lists it cares about.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	var loaded Lexicon
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&loaded); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon (check for typos): %w", err)
	}

	base := DefaultLexicon()
	if len(loaded.Stopwords) > 0 {
		base.Stopwords = loaded.Stopwords
	}
	if len(loaded.TemplatePhrases) > 0 {
		base.TemplatePhrases = loaded.TemplatePhrases
	}
	if len(loaded.PersonalMarkers) > 0 {
		base.PersonalMarkers = loaded.PersonalMarkers
	}
	if len(loaded.SpecificityMarkers) > 0 {
		base.SpecificityMarkers = loaded.SpecificityMarkers
	}
	if len(loaded.LogicalConnectors) > 0 {
		base.LogicalConnectors = loaded.LogicalConnectors
	}
	if len(loaded.AIPhrases) > 0 {
		base.AIPhrases = loaded.AIPhrases
	}
	if len(loaded.HumanMarkers) > 0 {
		base.HumanMarkers = loaded.HumanMarkers
	}
	if len(loaded.IncompleteEndings) > 0 {
		base.IncompleteEndings = loaded.IncompleteEndings
	}
	return base, nil
}

// StopwordSet returns the stopwords as a folded lookup set.
func (l *Lexicon) StopwordSet() map[string]struct{} { return SetOf(l.Stopwords) }

// IncompleteEndingSet returns the incomplete-ending words as a folded
// lookup set.
func (l *Lexicon) IncompleteEndingSet() map[string]struct{} { return SetOf(l.IncompleteEndings) }
