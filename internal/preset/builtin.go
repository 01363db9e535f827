// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import "sort"

// Definition is the canonical content of a built-in preset.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Models      []string `json:"models"`
}

// Catalog maps a source id to its definition. It seeds new stores and is
// the reference that IsModified is computed against.
type Catalog map[string]Definition

// Keys returns the catalog keys in sorted order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the definition for a source id.
func (c Catalog) Lookup(sourceID string) (Definition, bool) {
	d, ok := c[sourceID]
	return d, ok
}

// builtins is filled once at init and never mutated; Builtins hands out copies.
var builtins Catalog

func init() {
	builtins = Catalog{
		"flagship":  flagshipPreset(),
		"coding":    codingPreset(),
		"fast":      fastPreset(),
		"open":      openWeightsPreset(),
		"reasoning": reasoningPreset(),
	}
}

// Builtins returns a copy of the built-in catalog.
func Builtins() Catalog {
	out := make(Catalog, len(builtins))
	for k, d := range builtins {
		d.Models = cloneModels(d.Models)
		out[k] = d
	}
	return out
}

// flagshipPreset compares the top model of each major provider.
func flagshipPreset() Definition {
	return Definition{
		Name:        "Flagship Showdown",
		Description: "The strongest model from each major provider side by side",
		Models: []string{
			"openai/gpt-4o",
			"anthropic/claude-3-5-sonnet",
			"google/gemini-1.5-pro",
		},
	}
}

func codingPreset() Definition {
	return Definition{
		Name:        "Code Review",
		Description: "Models that are strong at reading and writing code",
		Models: []string{
			"anthropic/claude-3-5-sonnet",
			"openai/gpt-4o",
			"deepseek/deepseek-coder",
		},
	}
}

// fastPreset favours latency over depth.
func fastPreset() Definition {
	return Definition{
		Name:        "Quick Answers",
		Description: "Small, fast models for short questions",
		Models: []string{
			"openai/gpt-4o-mini",
			"anthropic/claude-3-haiku",
			"google/gemini-1.5-flash",
		},
	}
}

func openWeightsPreset() Definition {
	return Definition{
		Name:        "Open Weights",
		Description: "Openly licensed models",
		Models: []string{
			"meta/llama-3.1-70b",
			"mistral/mistral-large",
			"qwen/qwen2.5-72b",
		},
	}
}

func reasoningPreset() Definition {
	return Definition{
		Name:        "Deep Reasoning",
		Description: "Slower models that think before answering",
		Models: []string{
			"openai/o1",
			"deepseek/deepseek-r1",
		},
	}
}
