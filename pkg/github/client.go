// Package github posts scan reports back to the pull request that
// triggered the workflow.
package github

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/version"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com/"

// NewClient creates a GitHub client authenticated with token. apiURL
// overrides the REST endpoint (GitHub Enterprise, tests) when set.
func NewClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	log := logger.G(ctx)

	var client *github.Client
	if token == "" {
		log.Warn("no GitHub token provided - API rate limits will be restricted")
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}
	client.UserAgent = version.Get().UserAgent()

	if apiURL = strings.TrimSuffix(apiURL, "/") + "/"; apiURL != "/" && apiURL != DefaultAPIURL {
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid GitHub API URL %q", apiURL)
		}
		client.BaseURL = base
	}

	log.WithField("base_url", client.BaseURL.String()).Debug("GitHub client initialized")
	return client, nil
}
