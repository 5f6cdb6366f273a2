package discovery

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/models"
	"golang.org/x/sync/errgroup"
)

// ProfileSource is the subset of the GitHub client the profile view needs
type ProfileSource interface {
	GetUser(ctx context.Context, handle string) (*models.AccountProfile, error)
	GetUserRepos(ctx context.Context, handle string, pageSize int) ([]models.Repository, error)
	GetUserStarredRepos(ctx context.Context, handle string, maxRepos int) ([]models.Repository, error)
}

// Profile is the detail view of one account as seen by the viewer
type Profile struct {
	User           models.AccountProfile `json:"user" yaml:"user"`
	Repos          []models.Repository   `json:"repos" yaml:"repos"`
	SharedStarred  []models.Repository   `json:"shared_starred" yaml:"shared_starred"`
	ViewerStarred  int                   `json:"viewer_starred" yaml:"viewer_starred"`
	ProfileStarred int                   `json:"profile_starred" yaml:"profile_starred"`
}

// ProfileLoader assembles profile views
type ProfileLoader struct {
	source     ProfileSource
	repoLimit  int
	maxStarred int
	logger     logrus.FieldLogger
}

// NewProfileLoader creates a loader. repoLimit is the number of owned
// repositories shown; maxStarred caps each starred listing.
func NewProfileLoader(source ProfileSource, repoLimit, maxStarred int, logger logrus.FieldLogger) *ProfileLoader {
	if repoLimit <= 0 {
		repoLimit = 50
	}
	return &ProfileLoader{
		source:     source,
		repoLimit:  repoLimit,
		maxStarred: maxStarred,
		logger:     logger.WithField("component", "profile"),
	}
}

// Load fetches the profile, its repositories, and both starred listings
// concurrently, then intersects the starred listings. A starred listing that
// fails part way is used as far as it got.
func (l *ProfileLoader) Load(ctx context.Context, viewer, handle string) (*Profile, error) {
	var (
		user           *models.AccountProfile
		repos          []models.Repository
		viewerStarred  []models.Repository
		profileStarred []models.Repository
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := l.source.GetUser(gctx, handle)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		r, err := l.source.GetUserRepos(gctx, handle, l.repoLimit)
		if err != nil {
			return fmt.Errorf("load repositories: %w", err)
		}
		repos = r
		return nil
	})
	g.Go(func() error {
		viewerStarred = l.starred(gctx, viewer)
		return nil
	})
	g.Go(func() error {
		profileStarred = l.starred(gctx, handle)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	shared := SharedStarred(viewerStarred, profileStarred)

	l.logger.WithFields(logrus.Fields{
		"user":            handle,
		"repos":           len(repos),
		"viewer_starred":  len(viewerStarred),
		"profile_starred": len(profileStarred),
		"shared":          len(shared),
	}).Debug("profile loaded")

	return &Profile{
		User:           *user,
		Repos:          repos,
		SharedStarred:  shared,
		ViewerStarred:  len(viewerStarred),
		ProfileStarred: len(profileStarred),
	}, nil
}

func (l *ProfileLoader) starred(ctx context.Context, handle string) []models.Repository {
	repos, err := l.source.GetUserStarredRepos(ctx, handle, l.maxStarred)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"user": handle,
			"kept": len(repos),
		}).Warn("starred listing incomplete")
	}
	return repos
}

// SharedStarred returns the repositories of a that also appear in b, in a's
// order. Repositories are matched by full name, not id, so a repository
// renamed onto another's old name would match.
func SharedStarred(a, b []models.Repository) []models.Repository {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	names := make(map[string]struct{}, len(b))
	for _, repo := range b {
		names[repo.FullName] = struct{}{}
	}

	var shared []models.Repository
	for _, repo := range a {
		if _, ok := names[repo.FullName]; ok {
			shared = append(shared, repo)
		}
	}
	return shared
}
