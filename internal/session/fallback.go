package session

import "github.com/stackmates/stackmates/internal/models"

// fallbackDevelopers is shown when a discovery pass fails outright, so the
// feed is never blank
func fallbackDevelopers() []models.MatchRecord {
	return []models.MatchRecord{
		{
			Username:    "octocat",
			Avatar:      "https://github.com/octocat.png",
			SharedRepos: 42,
			Personality: "A cosmic coder fluent in JavaScript and cat memes, navigating the GitHub galaxy with feline grace 🐱✨",
			GitHubURL:   "https://github.com/octocat",
		},
		{
			Username:    "torvalds",
			Avatar:      "https://github.com/torvalds.png",
			SharedRepos: 7,
			Personality: "Kernel architect sailing through the C cosmos, building operating systems like stars form galaxies ⚡🌌",
			GitHubURL:   "https://github.com/torvalds",
		},
	}
}
