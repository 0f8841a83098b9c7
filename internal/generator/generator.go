// Package generator builds the passages players type.
package generator

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/typerpg/internal/model"
)

// EndlessWords is the passage length of endless mode.
const EndlessWords = 25

// Generator produces randomized typing text.
type Generator struct {
	rnd    *rand.Rand
	words  []string
	quotes Quotes
}

// New returns a Generator seeded with the current time.
func New(words []string, quotes Quotes) (*Generator, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	if err := quotes.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		words:  words,
		quotes: quotes,
	}, nil
}

// Seed makes the endless sequence reproducible.
func (g *Generator) Seed(seed int64) {
	g.rnd = rand.New(rand.NewSource(seed))
}

// Endless returns count words chosen uniformly and joined by single spaces.
func (g *Generator) Endless(count int) string {
	if count <= 0 {
		count = EndlessWords
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, g.words[g.rnd.Intn(len(g.words))])
	}
	return strings.Join(result, " ")
}

// Daily returns the quote of difficulty d for the UTC day of now. Every
// player gets the same quote on the same day.
func (g *Generator) Daily(now time.Time, d model.Difficulty) string {
	list := g.quotes.For(d)
	h := fnv.New32a()
	_, _ = h.Write([]byte(now.UTC().Format("2006-01-02") + "/" + string(d)))
	return list[int(h.Sum32()%uint32(len(list)))]
}
