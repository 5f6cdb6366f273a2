package discovery

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/stackmates/stackmates/internal/models"
)

// personalityTemplates receive the top language and the first topic
var personalityTemplates = []func(lang, topic string) string{
	func(lang, _ string) string {
		return fmt.Sprintf("%s wizard crafting digital spells across the coding cosmos ✨", lang)
	},
	func(lang, _ string) string {
		return fmt.Sprintf("Open source astronaut exploring the %s galaxy 🚀", lang)
	},
	func(lang, _ string) string {
		return fmt.Sprintf("Code poet writing elegant %s verses in the GitHub universe 📚", lang)
	},
	func(_, topic string) string {
		return fmt.Sprintf("Digital architect building %s solutions among the stars ⭐", orDefault(topic, "amazing"))
	},
	func(lang, _ string) string {
		return fmt.Sprintf("Cosmic developer navigating the %s constellation with style 🌌", lang)
	},
	func(lang, _ string) string {
		return fmt.Sprintf("Binary bard composing %s symphonies in the void of space 🎵", lang)
	},
	func(lang, topic string) string {
		return fmt.Sprintf("Quantum coder entangled with %s particles 🔬", orDefault(topic, lang))
	},
	func(lang, _ string) string {
		return fmt.Sprintf("Stellar engineer constructing %s nebulae of pure logic ⚡", lang)
	},
}

// Narrator writes the one-line caption of a match
type Narrator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNarrator draws templates from src. Tests pass a fixed seed.
func NewNarrator(src rand.Source) *Narrator {
	return &Narrator{rng: rand.New(src)}
}

// NewRandomNarrator returns a narrator seeded from the clock
func NewRandomNarrator() *Narrator {
	return NewNarrator(rand.NewSource(time.Now().UnixNano()))
}

// Personality picks a caption uniformly at random and fills it from the
// shared repositories
func (n *Narrator) Personality(repos []models.Repository) string {
	n.mu.Lock()
	idx := n.rng.Intn(len(personalityTemplates))
	n.mu.Unlock()

	return Caption(idx, repos)
}

// Caption renders template idx for repos. idx wraps around the template
// pool in both directions.
func Caption(idx int, repos []models.Repository) string {
	lang := "code"
	if languages := ExtractLanguages(repos); len(languages) > 0 {
		lang = languages[0]
	}

	topic := ""
	for _, repo := range repos {
		if len(repo.Topics) > 0 {
			topic = repo.Topics[0]
			break
		}
	}

	n := len(personalityTemplates)
	return personalityTemplates[((idx%n)+n)%n](lang, topic)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
