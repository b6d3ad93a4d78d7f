// Package gha renders the GitHub Actions workflow that runs skillgate on
// pull requests.
package gha

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/jingkaihe/skillgate/pkg/cache"
	"github.com/jingkaihe/skillgate/pkg/classifier"
	"github.com/jingkaihe/skillgate/pkg/ignore"
	"github.com/jingkaihe/skillgate/pkg/skills"
	"github.com/pkg/errors"
)

// Template files
//
//go:embed templates/*
var TemplateFS embed.FS

const (
	// Template file paths
	ScanWorkflowTemplate = "templates/skillgate_workflow.yaml.tmpl"

	// DefaultWorkflowPath is where the rendered workflow usually lives.
	DefaultWorkflowPath = ".github/workflows/skillgate.yaml"
)

// WorkflowTemplateData holds the data for workflow template rendering
type WorkflowTemplateData struct {
	SkillsDir       string
	Pattern         string
	IgnoreFile      string
	SuppressIgnored bool
	CacheBackend    string
	CachePath       string
	Backend         string
	APIKeyEnv      string
	Version        string
	TimeoutMinutes int
}

var apiKeySecrets = map[string]string{
	classifier.BackendOpenAI:    "OPENAI_API_KEY",
	classifier.BackendAnthropic: "ANTHROPIC_API_KEY",
	classifier.BackendGoogle:    "GOOGLE_API_KEY",
}

// DefaultWorkflowTemplateData returns data for the default layout and the
// given classifier backend.
func DefaultWorkflowTemplateData(backend string) WorkflowTemplateData {
	if backend == "" {
		backend = classifier.BackendOpenAI
	}
	return WorkflowTemplateData{
		SkillsDir:      skills.DefaultDir,
		Pattern:        skills.DefaultPattern,
		IgnoreFile:     ignore.DefaultPath,
		CacheBackend:   cache.BackendJSON,
		CachePath:      cache.DefaultJSONPath,
		Backend:        backend,
		APIKeyEnv:      apiKeySecrets[backend],
		Version:        "latest",
		TimeoutMinutes: 30,
	}
}

// RenderScanWorkflow renders the scan workflow template
func RenderScanWorkflow(data WorkflowTemplateData) (string, error) {
	if data.SkillsDir == "" || data.Pattern == "" || data.Backend == "" {
		return "", errors.New("skills dir, pattern and backend are required")
	}
	if data.CacheBackend == "" {
		data.CacheBackend = cache.BackendJSON
	}

	tmplContent, err := TemplateFS.ReadFile(ScanWorkflowTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to read template file")
	}

	tmpl, err := template.New("workflow").Option("missingkey=error").Parse(string(tmplContent))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to execute template")
	}

	return buf.String(), nil
}
