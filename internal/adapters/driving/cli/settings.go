package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider for semantic retrieval.

Without a reachable provider, retrieval falls back to lexical matching.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the chat model that writes cited answers.`,
	RunE:  runSettingsLLM,
}

var settingsChunkerCmd = &cobra.Command{
	Use:   "chunker",
	Short: "Configure chunk window and overlap",
	Long: `Set how many text blocks form one chunk and how many trailing blocks
are repeated at the head of the next chunk. Overlap must be smaller than the
window. Re-ingest documents for the change to take effect.`,
	RunE: runSettingsChunker,
}

func init() {
	settingsChunkerCmd.Flags().Int("window", 0, "blocks per chunk")
	settingsChunkerCmd.Flags().Int("overlap", -1, "blocks shared between neighbouring chunks")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsChunkerCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	ports, err := openSettings()
	if err != nil {
		return err
	}
	settings, err := ports.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	printProvider(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey,
		settings.Embedding.IsConfigured(), "not configured (lexical retrieval only)")
	printProvider(cmd, "LLM", settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey,
		settings.LLM.IsConfigured(), "not configured")

	printSection(cmd, "Chunker",
		"Window", fmt.Sprintf("%d blocks", settings.Chunker.Window),
		"Overlap", fmt.Sprintf("%d blocks", settings.Chunker.Overlap))
	printSection(cmd, "Retrieval",
		"Queries", fmt.Sprintf("latest %d user turns", settings.Retrieval.MaxQueries),
		"Hits per query", strconv.Itoa(settings.Retrieval.Limit),
		"Weights", fmt.Sprintf("sparse %.2f, dense %.2f", settings.Retrieval.SparseWeight, settings.Retrieval.DenseWeight))
	printSection(cmd, "Storage",
		"Metadata", string(settings.Storage.Metadata),
		"Extensions", strings.Join(settings.Ingest.Extensions, ", "),
		"Server", settings.Server.Addr)

	if err := ports.Settings.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'tinyrag settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

// printSection prints a [title] block of "key: value" pairs.
func printSection(cmd *cobra.Command, title string, pairs ...string) {
	cmd.Printf("[%s]\n", title)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			cmd.Printf("  %s: %s\n", pairs[i], pairs[i+1])
		}
	}
	cmd.Println()
}

func printProvider(cmd *cobra.Command, title string, provider domain.AIProvider, model, baseURL, apiKey string, configured bool, missing string) {
	pairs := []string{"Provider", provider.Description(), "Model", model, "Base URL", baseURL}
	if provider.RequiresAPIKey() {
		masked := "(not set)"
		if apiKey != "" {
			masked = maskAPIKey(apiKey)
		}
		pairs = append(pairs, "API Key", masked)
	}
	status := "configured"
	if !configured {
		status = missing
	}
	printSection(cmd, title, append(pairs, "Status", status)...)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	ports, err := openSettings()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("tinyrag Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	steps := []struct {
		title string
		run   func() error
	}{
		{"Configure Embedding Provider", func() error { return configureProvider(cmd, reader, ports, embeddingRole(ports)) }},
		{"Configure LLM Provider", func() error { return configureProvider(cmd, reader, ports, llmRole(ports)) }},
		{"Configure Chunking", func() error { return configureChunker(cmd, reader, ports) }},
	}
	for i, step := range steps {
		heading := fmt.Sprintf("Step %d: %s", i+1, step.title)
		cmd.Println(heading)
		cmd.Println(strings.Repeat("-", len(heading)))
		if err := step.run(); err != nil {
			return err
		}
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	settings, err := ports.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := ports.Settings.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	ports, err := openSettings()
	if err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), ports, embeddingRole(ports))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	ports, err := openSettings()
	if err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), ports, llmRole(ports))
}

// runSettingsChunker prompts when neither flag is given. A single flag
// keeps the other value from the current settings.
func runSettingsChunker(cmd *cobra.Command, _ []string) error {
	ports, err := openSettings()
	if err != nil {
		return err
	}
	window, _ := cmd.Flags().GetInt("window")
	overlap, _ := cmd.Flags().GetInt("overlap")
	if window == 0 && overlap < 0 {
		return configureChunker(cmd, bufio.NewReader(cmd.InOrStdin()), ports)
	}

	settings, err := ports.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if window == 0 {
		window = settings.Chunker.Window
	}
	if overlap < 0 {
		overlap = settings.Chunker.Overlap
	}
	return setChunker(cmd, ports, window, overlap)
}

// providerRole is what differs between configuring the embedder and the
// chat model.
type providerRole struct {
	name     string
	defaults map[domain.AIProvider]string
	save     func(domain.AIProvider, string, string) error
	validate func(*domain.AppSettings) error
}

func embeddingRole(ports *SettingsPorts) providerRole {
	r := providerRole{
		name:     "embedding",
		defaults: domain.DefaultEmbeddingModels(),
		save:     ports.Providers.SetEmbeddingProvider,
	}
	if ports.Validator != nil {
		r.validate = func(s *domain.AppSettings) error { return ports.Validator.ValidateEmbedding(&s.Embedding) }
	}
	return r
}

func llmRole(ports *SettingsPorts) providerRole {
	r := providerRole{
		name:     "LLM",
		defaults: domain.DefaultLLMModels(),
		save:     ports.Providers.SetLLMProvider,
	}
	if ports.Validator != nil {
		r.validate = func(s *domain.AppSettings) error { return ports.Validator.ValidateLLM(&s.LLM) }
	}
	return r
}

// configureProvider asks for provider, model and (when needed) API key,
// saves them, then pings the service if a validator is available.
func configureProvider(cmd *cobra.Command, reader *bufio.Reader, ports *SettingsPorts, role providerRole) error {
	cmd.Printf("Select %s Provider\n", role.name)
	providers := domain.AllProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	model := role.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if answer := readLine(reader); answer != "" {
		model = answer
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := role.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", role.name, err)
	}

	if role.validate != nil {
		settings, err := ports.Settings.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		cmd.Print("Validating configuration... ")
		if err := role.validate(settings); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("%s configuration validation failed: %w", role.name, err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("%s provider configured: %s (%s)\n\n", role.name, provider.Description(), model)
	return nil
}

func configureChunker(cmd *cobra.Command, reader *bufio.Reader, ports *SettingsPorts) error {
	settings, err := ports.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Blocks per chunk [%d]: ", settings.Chunker.Window)
	window := parseNumber(readLine(reader), settings.Chunker.Window)
	cmd.Printf("Overlapping blocks [%d]: ", settings.Chunker.Overlap)
	overlap := parseNumber(readLine(reader), settings.Chunker.Overlap)

	return setChunker(cmd, ports, window, overlap)
}

func setChunker(cmd *cobra.Command, ports *SettingsPorts, window, overlap int) error {
	if err := ports.Providers.SetChunker(window, overlap); err != nil {
		return fmt.Errorf("failed to configure chunker: %w", err)
	}
	cmd.Printf("Chunker configured: window %d, overlap %d\n\n", window, overlap)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// parseNumber parses a non-negative integer, returning defaultVal otherwise.
func parseNumber(input string, defaultVal int) int {
	val, err := strconv.Atoi(input)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when the command reads from a terminal.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
