// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import "fmt"

// TemplateCategory groups templates by the kind of work they target.
type TemplateCategory string

const (
	TemplateSupport     TemplateCategory = "support"
	TemplateWriting     TemplateCategory = "writing"
	TemplateBrainstorm  TemplateCategory = "brainstorm"
	TemplateAnalysis    TemplateCategory = "analysis"
	TemplateDevelopment TemplateCategory = "development"
)

// Template is a read-only starting point for a new preset.
type Template struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Category    TemplateCategory `json:"category" yaml:"category"`
	Models      []string         `json:"models" yaml:"models"`
}

var templates = []Template{
	{
		ID:          "customer-support",
		Name:        "Customer Support",
		Description: "Friendly, accurate replies to customer questions",
		Category:    TemplateSupport,
		Models:      []string{"anthropic/claude-3-5-sonnet", "openai/gpt-4o-mini"},
	},
	{
		ID:          "blog-writer",
		Name:        "Blog Writer",
		Description: "Long-form drafting with different voices",
		Category:    TemplateWriting,
		Models:      []string{"anthropic/claude-3-opus", "openai/gpt-4o", "google/gemini-1.5-pro"},
	},
	{
		ID:          "copy-editor",
		Name:        "Copy Editor",
		Description: "Tighten and proofread existing text",
		Category:    TemplateWriting,
		Models:      []string{"anthropic/claude-3-5-sonnet", "openai/gpt-4o-mini"},
	},
	{
		ID:          "idea-storm",
		Name:        "Idea Storm",
		Description: "Many diverse ideas fast",
		Category:    TemplateBrainstorm,
		Models:      []string{"openai/gpt-4o", "google/gemini-1.5-flash", "mistral/mistral-large", "meta/llama-3.1-70b"},
	},
	{
		ID:          "data-analyst",
		Name:        "Data Analyst",
		Description: "Reasoning over tables, numbers and reports",
		Category:    TemplateAnalysis,
		Models:      []string{"openai/o1", "anthropic/claude-3-5-sonnet"},
	},
	{
		ID:          "pair-programmer",
		Name:        "Pair Programmer",
		Description: "Code generation and review from several angles",
		Category:    TemplateDevelopment,
		Models:      []string{"anthropic/claude-3-5-sonnet", "deepseek/deepseek-coder", "openai/gpt-4o"},
	},
}

// Templates returns the template catalog in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	for i, t := range templates {
		t.Models = cloneModels(t.Models)
		out[i] = t
	}
	return out
}

// TemplatesIn returns the templates of one category.
func TemplatesIn(cat TemplateCategory) []Template {
	var out []Template
	for _, t := range Templates() {
		if t.Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// FindTemplate looks a template up by id.
func FindTemplate(id string) (Template, error) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: template %q", ErrNotFound, id)
}

// Spec turns the template into a preset spec. An empty name keeps the
// template's own name.
func (t Template) Spec(name string) Spec {
	if name == "" {
		name = t.Name
	}
	return Spec{
		Name:        name,
		Description: t.Description,
		Models:      cloneModels(t.Models),
		SourceID:    "template:" + t.ID,
		SourceType:  SourceCustom,
	}
}
