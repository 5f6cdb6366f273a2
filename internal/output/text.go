package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/models"
)

// TextFormatter prints results for a terminal
type TextFormatter struct{}

func (f *TextFormatter) Feed(w io.Writer, feed Feed) error {
	switch feed.Outcome {
	case models.OutcomeEmpty:
		if feed.Message != "" {
			fmt.Fprintf(w, "⚠️  %s\n", feed.Message)
			return nil
		}
		fmt.Fprintf(w, "🔭 No similar developers yet. Star more repositories and run 'stackmates feed' again.\n")
		return nil
	case models.OutcomeFallback:
		fmt.Fprintf(w, "⚠️  Discovery failed: %s\n", feed.Message)
		fmt.Fprintf(w, "Showing a few well-known developers instead.\n\n")
	default:
		fmt.Fprintf(w, "🌌 %d developers who star what you star\n\n", len(feed.Developers))
	}

	for i, d := range feed.Developers {
		fmt.Fprintf(w, "%2d. %s  ⭐ %d shared\n", i+1, d.Username, d.SharedRepos)
		if d.Bio != "" {
			fmt.Fprintf(w, "    %s\n", d.Bio)
		}
		fmt.Fprintf(w, "    %s\n", d.Personality)
		if len(d.Languages) > 0 {
			fmt.Fprintf(w, "    Languages: %s\n", strings.Join(d.Languages, ", "))
		}
		if len(d.TopRepos) > 0 {
			names := make([]string, 0, len(d.TopRepos))
			for _, r := range d.TopRepos {
				names = append(names, r.FullName)
			}
			fmt.Fprintf(w, "    Shared: %s\n", strings.Join(names, ", "))
		}
		fmt.Fprintf(w, "    %s\n", d.GitHubURL)
	}

	if feed.ReposSkipped > 0 {
		fmt.Fprintf(w, "\n%d of %d repositories could not be scanned\n",
			feed.ReposSkipped, feed.ReposScanned+feed.ReposSkipped)
	}
	return nil
}

func (f *TextFormatter) Profile(w io.Writer, p *discovery.Profile) error {
	u := p.User
	if u.Name != "" {
		fmt.Fprintf(w, "👤 %s (%s)\n", u.Name, u.Login)
	} else {
		fmt.Fprintf(w, "👤 %s\n", u.Login)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "%s\n", u.Bio)
	}
	if u.Location != "" {
		fmt.Fprintf(w, "📍 %s\n", u.Location)
	}
	fmt.Fprintf(w, "Repos: %d  Followers: %d  Following: %d\n", u.PublicRepos, u.Followers, u.Following)
	fmt.Fprintf(w, "%s\n\n", u.HTMLURL)

	fmt.Fprintf(w, "Shared stars: %d (you %d, them %d)\n", len(p.SharedStarred), p.ViewerStarred, p.ProfileStarred)
	for _, r := range p.SharedStarred {
		fmt.Fprintf(w, "- %s%s\n", r.FullName, languageSuffix(r))
	}

	if len(p.Repos) > 0 {
		fmt.Fprintf(w, "\nTop repositories:\n")
		for _, r := range p.Repos {
			fmt.Fprintf(w, "- %s ⭐ %d%s\n", r.FullName, r.StargazersCount, languageSuffix(r))
		}
	}
	return nil
}

func (f *TextFormatter) Users(w io.Writer, users []models.AccountProfile) error {
	if len(users) == 0 {
		fmt.Fprintf(w, "No users found\n")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(w, "%-24s %s\n", u.Login, u.HTMLURL)
	}
	return nil
}

func (f *TextFormatter) Session(w io.Writer, view SessionView) error {
	if !view.IsAuthenticated || view.User == nil {
		fmt.Fprintf(w, "Not logged in. Run 'stackmates login'.\n")
		return nil
	}
	fmt.Fprintf(w, "✅ Logged in as %s\n", view.User.Login)
	fmt.Fprintf(w, "Token: %s\n", view.Token)
	if view.LastOutcome != "" {
		fmt.Fprintf(w, "Last feed: %s, %d developers (%s)\n",
			view.LastOutcome, len(view.Developers), view.LastRefreshed.Format("2006-01-02 15:04"))
	}
	return nil
}

func languageSuffix(r models.Repository) string {
	if r.Language == "" {
		return ""
	}
	return " (" + r.Language + ")"
}
