package react

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptSet struct {
	ExecutorSystem    string `yaml:"executor_system"`
	ExecutorTurn      string `yaml:"executor_turn"`
	CriticSystem      string `yaml:"critic_system"`
	ReviewToolCall    string `yaml:"review_tool_call"`
	ReviewConclusions string `yaml:"review_conclusions"`
}

type prompts struct {
	executorSystem    *template.Template
	executorTurn      *template.Template
	criticSystem      string
	reviewToolCall    *template.Template
	reviewConclusions *template.Template
}

// defaultPrompts is parsed once at init; a broken embedded file is a build defect.
var defaultPrompts = mustLoadPrompts(promptsYAML)

func mustLoadPrompts(raw []byte) *prompts {
	p, err := loadPrompts(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func loadPrompts(raw []byte) (*prompts, error) {
	var set promptSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	parse := func(name, text string) (*template.Template, error) {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt %s is empty", name)
		}
		t, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", name, err)
		}
		return t, nil
	}

	var (
		p   = &prompts{criticSystem: strings.TrimSpace(set.CriticSystem)}
		err error
	)
	if p.executorSystem, err = parse("executor_system", set.ExecutorSystem); err != nil {
		return nil, err
	}
	if p.executorTurn, err = parse("executor_turn", set.ExecutorTurn); err != nil {
		return nil, err
	}
	if p.reviewToolCall, err = parse("review_tool_call", set.ReviewToolCall); err != nil {
		return nil, err
	}
	if p.reviewConclusions, err = parse("review_conclusions", set.ReviewConclusions); err != nil {
		return nil, err
	}
	if p.criticSystem == "" {
		return nil, fmt.Errorf("prompt critic_system is empty")
	}
	return p, nil
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

type systemData struct {
	Actor    string
	Context  string
	Examples string
}

type turnData struct {
	Command    string
	Trail      string
	Suggestion string
}

type reviewData struct {
	Command  string
	Tools    string
	Trail    string
	Status   Status
	Repeated int
}
