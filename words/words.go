// Package words decides whether a clue is acceptable: a real word and not
// profane.
package words

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	goaway "github.com/TwiN/go-away"
)

type Verdict int

const (
	OK Verdict = iota
	NotAWord
	Profane
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case NotAWord:
		return "not a word"
	case Profane:
		return "profane"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Checker validates candidate words against a dictionary and a profanity
// filter. With an empty dictionary any alphabetic word is accepted.
type Checker struct {
	mu        sync.RWMutex
	dict      map[string]struct{}
	profanity *goaway.ProfanityDetector
}

func New(dictionary ...string) *Checker {
	c := &Checker{
		dict:      make(map[string]struct{}, len(dictionary)),
		profanity: goaway.NewProfanityDetector(),
	}
	c.Add(dictionary...)
	return c
}

// Add extends the dictionary.
func (c *Checker) Add(words ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range words {
		w = normalize(w)
		if w != "" {
			c.dict[w] = struct{}{}
		}
	}
}

func (c *Checker) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dict)
}

func (c *Checker) CheckWord(candidate string) Verdict {
	w := normalize(candidate)
	if w == "" || !alphabetic(w) {
		return NotAWord
	}
	if c.profanity.IsProfane(w) {
		return Profane
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.dict) == 0 {
		return OK
	}
	if _, ok := c.dict[w]; !ok {
		return NotAWord
	}
	return OK
}

// CheckClue checks every word of a clue and returns the first failure.
func (c *Checker) CheckClue(clue string) Verdict {
	fields := strings.Fields(clue)
	if len(fields) == 0 {
		return NotAWord
	}
	for _, f := range fields {
		if v := c.CheckWord(f); v != OK {
			return v
		}
	}
	return OK
}

// LoadFile reads a word list, one word per line. Blank lines and lines
// starting with # are skipped.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening word list: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading word list: %w", err)
	}
	return words, nil
}

func normalize(w string) string {
	return strings.ToUpper(strings.TrimSpace(w))
}

func alphabetic(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}
