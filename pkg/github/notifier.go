package github

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/pkg/errors"
)

// Environment variables provided by GitHub Actions.
const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvToken      = "GITHUB_TOKEN"
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvAPIURL     = "GITHUB_API_URL"
)

var pullRequestEvents = map[string]bool{
	"pull_request":        true,
	"pull_request_target": true,
}

// PRContext identifies the pull request a report is posted to.
type PRContext struct {
	Owner  string
	Repo   string
	Number int
	Token  string
	APIURL string
}

type pullRequestEvent struct {
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

// ContextFromEnv resolves the pull request from the Actions environment.
// It reports false, without error, when the run is not a pull-request
// event or the environment is incomplete.
func ContextFromEnv(ctx context.Context, getenv func(string) string) (PRContext, bool) {
	log := logger.G(ctx)

	if !pullRequestEvents[getenv(EnvEventName)] {
		return PRContext{}, false
	}

	repository, token, eventPath := getenv(EnvRepository), getenv(EnvToken), getenv(EnvEventPath)
	if repository == "" || token == "" || eventPath == "" {
		log.Debug("pull request environment incomplete, skipping comment")
		return PRContext{}, false
	}

	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		log.WithField("repository", repository).Warn("malformed GITHUB_REPOSITORY, skipping comment")
		return PRContext{}, false
	}

	number, err := readPullRequestNumber(eventPath)
	if err != nil {
		log.WithError(err).Warn("failed to read pull request number, skipping comment")
		return PRContext{}, false
	}

	return PRContext{
		Owner:  owner,
		Repo:   repo,
		Number: number,
		Token:  token,
		APIURL: getenv(EnvAPIURL),
	}, true
}

func readPullRequestNumber(eventPath string) (int, error) {
	data, err := os.ReadFile(eventPath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read event payload")
	}

	var event pullRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return 0, errors.Wrap(err, "failed to parse event payload")
	}
	if event.PullRequest == nil || event.PullRequest.Number <= 0 {
		return 0, errors.New("event payload has no pull_request.number")
	}

	return event.PullRequest.Number, nil
}

// Notifier posts the report as a pull request comment.
type Notifier struct {
	getenv func(string) string
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithGetenv replaces os.Getenv as the environment source.
func WithGetenv(getenv func(string) string) NotifierOption {
	return func(n *Notifier) {
		n.getenv = getenv
	}
}

// NewNotifier creates a Notifier reading the process environment.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{getenv: os.Getenv}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts report to the current pull request. Outside a pull request
// it does nothing and makes no network call.
func (n *Notifier) Notify(ctx context.Context, report string) error {
	pr, ok := ContextFromEnv(ctx, n.getenv)
	if !ok {
		logger.G(ctx).Debug("not a pull request run, skipping comment")
		return nil
	}

	return PostComment(ctx, pr, report)
}

// PostComment creates a comment with body on the pull request.
func PostComment(ctx context.Context, pr PRContext, body string) error {
	client, err := NewClient(ctx, pr.Token, pr.APIURL)
	if err != nil {
		return err
	}

	comment, _, err := client.Issues.CreateComment(ctx, pr.Owner, pr.Repo, pr.Number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to comment on %s/%s#%d", pr.Owner, pr.Repo, pr.Number)
	}

	logger.G(ctx).WithField("url", comment.GetHTMLURL()).Info("posted scan report to pull request")
	return nil
}
