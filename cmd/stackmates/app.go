package main

import (
	"context"

	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/github"
	"github.com/stackmates/stackmates/internal/session"
)

// newSession wires the GitHub client, engine and token store from cfg
func newSession() (*session.Session, *github.Client, error) {
	client, err := github.NewClient(cfg.GitHub, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := session.OpenTokenStore(cfg.Session, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := discovery.NewEngine(client, discovery.NewRandomNarrator(), discovery.Options{
		TopRepos:          cfg.Discovery.TopRepos,
		StargazersPerRepo: cfg.Discovery.StargazersPerRepo,
		MinShared:         cfg.Discovery.MinShared,
		MaxUsers:          cfg.Discovery.MaxUsers,
	}, logger)

	sess := session.New(client, engine, store, session.Options{
		MaxStarred:   cfg.Discovery.MaxStarred,
		ProfileRepos: cfg.Discovery.ProfileRepos,
	}, logger)
	return sess, client, nil
}

// resume brings back a stored session, running a discovery pass when
// discover is set. A token from the environment is used when nothing is
// stored; it is never persisted.
func resume(ctx context.Context, sess *session.Session, discover bool) error {
	restore := sess.Resume
	if discover {
		restore = sess.Restore
	}
	if err := restore(ctx); err != nil {
		return err
	}
	if sess.State().IsAuthenticated || cfg.GitHub.Token == "" {
		return nil
	}

	logger.Debug("no stored session, using token from environment")
	if err := sess.Authenticate(ctx, cfg.GitHub.Token); err != nil {
		return err
	}
	if discover {
		sess.Refresh(ctx)
	}
	return nil
}
