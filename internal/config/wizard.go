package config

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/manifoldco/promptui"
)

// snapshotPatterns are tried in order to suggest a default input.
var snapshotPatterns = []string{
	"sitemap.json",
	"**/sitemap*.json",
	"**/document*.json",
}

// detectSnapshot looks in the current directory for a likely sitemap snapshot.
func detectSnapshot() string {
	for _, pattern := range snapshotPatterns {
		matches, _ := doublestar.FilepathGlob(pattern)
		if len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to sitemermaid! Let's configure your project.")
	fmt.Println()

	cfg := DefaultConfig()

	defaultInput := cfg.Input
	if found := detectSnapshot(); found != "" {
		fmt.Printf("Detected snapshot: %s\n\n", found)
		defaultInput = found
	}

	// 1. Snapshot location.
	inputPrompt := promptui.Prompt{
		Label:   "Sitemap snapshot (file path or URL)",
		Default: defaultInput,
	}
	input, err := inputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	cfg.Input = strings.TrimSpace(input)

	// 2. Grouping policy.
	groupingPrompt := promptui.Select{
		Label: "Group diagram tiers by",
		Items: []string{
			"level  - one row per depth",
			"parent - one row per parent page",
		},
	}
	groupingIdx, _, err := groupingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("grouping selection: %w", err)
	}
	cfg.Grouping = []Grouping{GroupingLevel, GroupingParent}[groupingIdx]

	// 3. Theme.
	themePrompt := promptui.Select{
		Label: "Select render theme",
		Items: Themes,
	}
	_, theme, err := themePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("theme selection: %w", err)
	}
	cfg.Render.Theme = theme

	// 4. Output directory.
	outputPrompt := promptui.Prompt{
		Label:   "Output directory for exported files",
		Default: cfg.OutputDir,
	}
	outputDir, err := outputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	cfg.OutputDir = outputDir

	// 5. Export formats.
	formatsPrompt := promptui.Prompt{
		Label:   "Export formats (comma-separated: txt, md, html, svg, png)",
		Default: strings.Join(cfg.Formats, ","),
	}
	formatsStr, err := formatsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("formats: %w", err)
	}
	cfg.Formats = splitAndTrim(formatsStr)

	// 6. Clipboard.
	copyPrompt := promptui.Prompt{
		Label:     "Copy markup to the clipboard after generating",
		IsConfirm: true,
	}
	if _, err := copyPrompt.Run(); err == nil {
		cfg.CopyOnGenerate = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
