package regulation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed data/punjab_regulations.json
var punjabRegulations []byte

type Entry struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	CodeReference string   `json:"code_ref"`
	FineAmount    float64  `json:"fine_amount"`
	Severity      Severity `json:"severity"`
	Keywords      []string `json:"keywords"`
}

// Corpus is the immutable list of citable regulations.
type Corpus struct {
	entries []Entry
	raw     []byte
}

var (
	defaultCorpus     *Corpus
	defaultCorpusErr  error
	defaultCorpusOnce sync.Once
)

// Punjab returns the embedded corpus, decoded once per process.
func Punjab() (*Corpus, error) {
	defaultCorpusOnce.Do(func() {
		defaultCorpus, defaultCorpusErr = Load(punjabRegulations)
	})
	return defaultCorpus, defaultCorpusErr
}

func Load(data []byte) (*Corpus, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode regulation corpus: %w", err)
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("regulation %d has no id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate regulation id %s", e.ID)
		}
		if e.FineAmount < 0 {
			return nil, fmt.Errorf("regulation %s has a negative fine", e.ID)
		}
		if !e.Severity.Valid() {
			return nil, fmt.Errorf("regulation %s has invalid severity %q", e.ID, e.Severity)
		}
		seen[e.ID] = struct{}{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode regulation corpus: %w", err)
	}
	return &Corpus{entries: entries, raw: raw}, nil
}

func (c *Corpus) Len() int {
	return len(c.entries)
}

// All returns a copy in corpus order.
func (c *Corpus) All() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		e.Keywords = append([]string(nil), e.Keywords...)
		out[i] = e
	}
	return out
}

// Find resolves a citation. It accepts the id, the code reference, or any text
// that contains one of them.
func (c *Corpus) Find(ref string) (Entry, bool) {
	needle := strings.ToLower(strings.TrimSpace(ref))
	if needle == "" {
		return Entry{}, false
	}
	for _, e := range c.entries {
		if strings.EqualFold(e.ID, needle) || strings.EqualFold(e.CodeReference, needle) {
			return e, true
		}
	}
	for _, e := range c.entries {
		if strings.Contains(needle, strings.ToLower(e.ID)) || strings.Contains(needle, strings.ToLower(e.CodeReference)) {
			return e, true
		}
	}
	return Entry{}, false
}

// Match returns every entry with a keyword that occurs in text.
func (c *Corpus) Match(text string) []Entry {
	haystack := strings.ToLower(text)
	var out []Entry
	for _, e := range c.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// JSON is the serialized corpus sent along with each analysis request.
func (c *Corpus) JSON() []byte {
	return append([]byte(nil), c.raw...)
}
