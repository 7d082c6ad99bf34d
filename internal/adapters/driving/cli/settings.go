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

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var errNoSettingsService = errors.New("settings service not configured")

// providerFlags holds the non-interactive provider choice.
type providerFlags struct {
	provider string
	model    string
	apiKey   string
}

var (
	embeddingFlags providerFlags
	llmFlags       providerFlags
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers and pipeline settings.

Settings are stored in ~/.docqa/config.toml. DOCQA_* environment variables
override the stored values for a single run.`,
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
	Long:  `Run an interactive wizard to choose the embedding and LLM providers.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the provider that embeds document chunks and questions.

Changing the embedding model makes an existing collection unusable; index
into a new collection or re-ingest your documents.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the provider that generates answers from retrieved context.`,
	RunE:  runSettingsLLM,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the AI backends",
	RunE:  runSettingsCheck,
}

func init() {
	for _, c := range []struct {
		cmd   *cobra.Command
		flags *providerFlags
	}{
		{settingsEmbeddingCmd, &embeddingFlags},
		{settingsLLMCmd, &llmFlags},
	} {
		c.cmd.Flags().StringVar(&c.flags.provider, "provider", "", "provider name (skips the prompt)")
		c.cmd.Flags().StringVar(&c.flags.model, "model", "", "model name (default: provider default)")
		c.cmd.Flags().StringVar(&c.flags.apiKey, "api-key", "", "API key for cloud providers")
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	printProvider(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	printProvider(cmd, "LLM", settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())

	vs := settings.VectorStore
	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", vs.Kind)
	cmd.Printf("  Collection: %s\n", vs.Collection)
	cmd.Printf("  Metric: %s\n", vs.Metric)
	switch vs.Kind {
	case domain.VectorStoreSQLite:
		if vs.DataDir != "" {
			cmd.Printf("  Data dir: %s\n", vs.DataDir)
		}
	case domain.VectorStoreQdrant:
		cmd.Printf("  URL: %s\n", vs.QdrantURL)
	case domain.VectorStorePgvector:
		cmd.Printf("  DSN: %s\n", maskDSN(vs.PgvectorDSN))
	case domain.VectorStoreMemory:
	}
	cmd.Println()

	r := settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", r.TopK)
	cmd.Printf("  Chunk size: %d\n", r.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", r.ChunkOverlap)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Call timeout: %s\n", settings.Resilience.CallTimeout)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, title string, p domain.AIProvider, model, baseURL, apiKey string, ok bool) {
	cmd.Printf("[%s]\n", title)
	cmd.Printf("  Provider: %s\n", p.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !ok {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	cmd.Println("docqa Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader, providerFlags{}); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureLLMProvider(cmd, reader, providerFlags{}); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingFlags)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmFlags)
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}
	p, err := getPipeline(cmd.Context())
	if err != nil {
		return fmt.Errorf("connecting to backends: %w", err)
	}
	if p.Ping != nil {
		if err := p.Ping(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("Embedding and LLM backends are reachable.")
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, flags providerFlags) error {
	provider, model, apiKey, err := chooseProvider(cmd, reader, "Embedding",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels(), flags)
	if err != nil {
		return err
	}
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader, flags providerFlags) error {
	provider, model, apiKey, err := chooseProvider(cmd, reader, "LLM",
		domain.AllLLMProviders(), domain.DefaultLLMModels(), flags)
	if err != nil {
		return err
	}
	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}
	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

// chooseProvider resolves provider, model and key from flags, prompting for what is missing.
func chooseProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
	flags providerFlags,
) (domain.AIProvider, string, string, error) {
	interactive := flags.provider == ""

	var provider domain.AIProvider
	if interactive {
		cmd.Printf("Select %s Provider\n", kind)
		for i, p := range providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		provider = providers[parseChoice(readLine(reader), len(providers), 1)-1]
	} else {
		provider = domain.AIProvider(strings.ToLower(flags.provider))
		if !containsProvider(providers, provider) {
			return "", "", "", fmt.Errorf("%w: unknown %s provider %q", domain.ErrInvalidInput, kind, flags.provider)
		}
	}

	model := flags.model
	if model == "" {
		model = defaults[provider]
		if interactive {
			cmd.Printf("Enter model name [%s]: ", model)
			if m := readLine(reader); m != "" {
				model = m
			}
		}
	}

	apiKey := flags.apiKey
	if provider.RequiresAPIKey() && apiKey == "" {
		if !interactive {
			return "", "", "", fmt.Errorf("%w: --api-key is required for %s", domain.ErrInvalidInput, provider)
		}
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}

	return provider, model, apiKey, nil
}

func containsProvider(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}

// Helper functions.

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

// readPassword reads a secret without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) && reader.Buffered() == 0 {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
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

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":****" + dsn[at:]
	}
	return dsn
}

