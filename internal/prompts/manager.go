package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Prompt is a fully assembled system and user prompt pair.
type Prompt struct {
	System string
	User   string
}

// PromptTemplate mirrors one yaml file under templates/.
type PromptTemplate struct {
	BasePrompt string            `yaml:"base_prompt"`
	Variants   map[string]string `yaml:"variants"`
	UserPrompt string            `yaml:"user_prompt"`
}

type PromptManager struct {
	templates map[string]PromptTemplate // name -> template
}

func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		templates: make(map[string]PromptTemplate),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// BuildPrompt assembles the system prompt for the given template and variant
// and substitutes {{.Key}} placeholders in both halves.
func (pm *PromptManager) BuildPrompt(name, variant string, data map[string]string) (*Prompt, error) {
	tmpl, exists := pm.templates[name]
	if !exists {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	variantPrompt, exists := tmpl.Variants[variant]
	if !exists {
		return nil, fmt.Errorf("variant '%s' not found for template '%s'", variant, name)
	}

	var system strings.Builder
	if tmpl.BasePrompt != "" {
		system.WriteString(strings.TrimSpace(tmpl.BasePrompt))
		system.WriteString("\n\n")
	}
	system.WriteString(strings.TrimSpace(variantPrompt))

	return &Prompt{
		System: substitute(system.String(), data),
		User:   substitute(strings.TrimSpace(tmpl.UserPrompt), data),
	}, nil
}

// GetTemplates lists the loaded template names.
func (pm *PromptManager) GetTemplates() []string {
	names := make([]string, 0, len(pm.templates))
	for name := range pm.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func substitute(s string, data map[string]string) string {
	for key, value := range data {
		s = strings.ReplaceAll(s, "{{."+key+"}}", value)
	}
	return s
}

func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var tmpl PromptTemplate
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		if len(tmpl.Variants) == 0 {
			return fmt.Errorf("template file %s defines no variants", entry.Name())
		}

		pm.templates[strings.TrimSuffix(entry.Name(), ".yaml")] = tmpl
	}

	return nil
}
