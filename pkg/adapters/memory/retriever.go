package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/aretw0/archguide/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Corpus is a fixed list of passages held in memory.
//
// Retrieve returns the passages sharing at least one significant word with
// the query, in corpus order. It does not score relevance.
type Corpus struct {
	passages []domain.Passage
	terms    []map[string]bool
}

// corpusFile is the on-disk layout of a corpus.
type corpusFile struct {
	Passages []domain.Passage `yaml:"passages"`
}

// NewCorpus indexes the given passages.
func NewCorpus(passages []domain.Passage) *Corpus {
	c := &Corpus{passages: append([]domain.Passage(nil), passages...)}
	c.terms = make([]map[string]bool, len(c.passages))
	for i, p := range c.passages {
		set := make(map[string]bool)
		for _, w := range words(p.Text + " " + p.SourceTitle) {
			set[w] = true
		}
		c.terms[i] = set
	}
	return c
}

// LoadCorpus reads a YAML corpus file:
//
//	passages:
//	  - text: "..."
//	    source_title: "..."
//	    source_path: "..."
//	    page: 12
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return NewCorpus(f.Passages), nil
}

// Len returns the number of passages.
func (c *Corpus) Len() int { return len(c.passages) }

// Retrieve implements ports.Retriever.
func (c *Corpus) Retrieve(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := words(query)
	var out []domain.Passage
	for i, p := range c.passages {
		for _, w := range q {
			if c.terms[i][w] {
				out = append(out, p)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// stopwords never count as a match.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true, "how": true,
	"los": true, "las": true, "del": true, "que": true, "una": true, "para": true,
}

func words(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
