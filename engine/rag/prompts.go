package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ailegalmate/legalmate/engine/domain"
	"gopkg.in/yaml.v3"
)

// DefaultJurisdiction names the legal system prompts are written for.
const DefaultJurisdiction = "Indonesian"

// Profile is the generation setup for one use case.
type Profile struct {
	SystemPrompt string
	Options      domain.GenerateOptions
}

// Profiles holds the per-variant generation profiles.
type Profiles struct {
	Jurisdiction string
	Ask          Profile
	Analyze      Profile
	Form         Profile
}

// DefaultProfiles returns the built-in prompts for jurisdiction (an
// adjective such as "Indonesian"). Empty means DefaultJurisdiction.
func DefaultProfiles(jurisdiction string) Profiles {
	if strings.TrimSpace(jurisdiction) == "" {
		jurisdiction = DefaultJurisdiction
	}
	return Profiles{
		Jurisdiction: jurisdiction,
		Ask: Profile{
			SystemPrompt: fmt.Sprintf("You are an AI legal assistant specialized in %[1]s law. Provide accurate, helpful, and concise legal information. "+
				"Always include relevant %[1]s legal references if known. "+
				"Be careful not to provide legal advice that could replace consultation with a qualified %[1]s lawyer.", jurisdiction),
			Options: domain.GenerateOptions{Temperature: 0.3, MaxTokens: 1000},
		},
		Analyze: Profile{
			SystemPrompt: fmt.Sprintf("You are an AI contract analyzer specialized in %[1]s legal contracts. "+
				"Identify key clauses, potential risks, obligations, and suggest improvements. Focus on compliance with %[1]s law.", jurisdiction),
			Options: domain.GenerateOptions{Temperature: 0.2, MaxTokens: 1500},
		},
		Form: Profile{
			SystemPrompt: fmt.Sprintf("You are an AI legal form generator specialized in %[1]s legal forms. "+
				"Generate compliant and accurate legal documents following %[1]s legal standards.", jurisdiction),
			Options: domain.GenerateOptions{Temperature: 0.1, MaxTokens: 2000},
		},
	}
}

// Validate checks every profile's generation options.
func (p Profiles) Validate() error {
	for name, prof := range map[string]Profile{"ask": p.Ask, "analyze": p.Analyze, "form": p.Form} {
		if strings.TrimSpace(prof.SystemPrompt) == "" {
			return fmt.Errorf("rag: profile %s: empty system prompt", name)
		}
		if err := prof.Options.Validate(); err != nil {
			return fmt.Errorf("rag: profile %s: %w", name, err)
		}
	}
	return nil
}

// profileFile is the YAML shape of a prompts file. Absent fields keep
// their defaults.
type profileFile struct {
	Jurisdiction string           `yaml:"jurisdiction"`
	Ask          *profileOverride `yaml:"ask"`
	Analyze      *profileOverride `yaml:"analyze"`
	Form         *profileOverride `yaml:"form"`
}

type profileOverride struct {
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
}

func (o *profileOverride) apply(p *Profile) {
	if o == nil {
		return
	}
	if o.SystemPrompt != "" {
		p.SystemPrompt = o.SystemPrompt
	}
	if o.Temperature != nil {
		p.Options.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		p.Options.MaxTokens = *o.MaxTokens
	}
}

// ParseProfiles applies YAML overrides in data on top of
// DefaultProfiles(jurisdiction) and validates the result. A jurisdiction
// set in the file takes precedence.
func ParseProfiles(data []byte, jurisdiction string) (Profiles, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Profiles{}, fmt.Errorf("rag: parse profiles: %w", err)
	}
	if f.Jurisdiction != "" {
		jurisdiction = f.Jurisdiction
	}
	p := DefaultProfiles(jurisdiction)
	f.Ask.apply(&p.Ask)
	f.Analyze.apply(&p.Analyze)
	f.Form.apply(&p.Form)
	if err := p.Validate(); err != nil {
		return Profiles{}, err
	}
	return p, nil
}

// LoadProfiles reads a YAML prompts file. An empty path returns the defaults.
func LoadProfiles(path, jurisdiction string) (Profiles, error) {
	if path == "" {
		return DefaultProfiles(jurisdiction), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("rag: read profiles %s: %w", path, err)
	}
	return ParseProfiles(data, jurisdiction)
}

// askPrompt builds the question-answering user prompt from context parts.
func askPrompt(question string, parts []string) string {
	return "Context: " + strings.Join(parts, "\n\n") + "\n\nQuestion: " + question
}

func analyzePrompt(contract string) string {
	return "Analyze the following contract and provide a summary of key clauses, potential risks, obligations of each party, and compliance issues:\n\n" + contract
}

func formPrompt(jurisdiction, formType string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	// ValidateForm has already checked that params marshal; keys come out sorted.
	encoded, _ := json.Marshal(params)
	return fmt.Sprintf("Generate an %[1]s legal form of type: %[2]s. Parameters: %[3]s. Ensure the form complies with %[1]s law and includes all necessary clauses.",
		jurisdiction, formType, encoded)
}
