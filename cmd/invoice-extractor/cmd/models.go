package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/llm"
)

// APIModel is one entry of an OpenAI-compatible /models listing.
type APIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelsEnvelope struct {
	Object string     `json:"object"`
	Data   []APIModel `json:"data"`
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available at the LLM endpoint",
	Long: `Query the /models endpoint of the configured LLM provider and list
what it serves. Requires an API key (LLM_API_KEY or --api-key).

Pick a model for extraction with --llm-model / --llm-vision-model, or the
LLM_MODEL / LLM_VISION_MODEL environment variables.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	// Flags are already resolved against the environment by initConfig.
	baseURL := llmBaseURL
	if baseURL == "" {
		baseURL = llm.DefaultBaseURL
	}

	printModelConfig(baseURL)

	if apiKey == "" {
		fmt.Println("An API key is required. Set it via LLM_API_KEY or the --api-key flag.")
		return nil
	}

	fmt.Printf("Fetching %s/models...\n\n", strings.TrimSuffix(baseURL, "/"))

	models, err := fetchModels(cmd.Context(), baseURL, apiKey)
	if err != nil {
		fmt.Printf("Could not fetch models: %v\n", err)
		fmt.Println("The provider may not serve /models; --llm-model still works with a known model id.")
		return nil
	}
	if len(models) == 0 {
		fmt.Println("The endpoint returned no models.")
		return nil
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	fmt.Printf("Available models (%d):\n\n", len(models))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL ID\tOWNER\tCREATED")
	fmt.Fprintln(w, "--------\t-----\t-------")
	for _, m := range models {
		created := ""
		if m.Created > 0 {
			created = time.Unix(m.Created, 0).Format("2006-01-02")
		}
		owner := m.OwnedBy
		if owner == "" {
			owner = inferProvider(m.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, owner, created)
	}
	return w.Flush()
}

func printModelConfig(baseURL string) {
	textModel := llmModel
	if textModel == "" {
		textModel = "(not set)"
	}
	visionModel := llmVisionModel
	if visionModel == "" {
		visionModel = "(not set)"
	}
	keyStatus := "not set"
	if apiKey != "" {
		keyStatus = "set"
		if len(apiKey) > 8 {
			keyStatus = "set (" + apiKey[:8] + "...)"
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Base URL:\t%s\n", baseURL)
	fmt.Fprintf(w, "Text model:\t%s\n", textModel)
	fmt.Fprintf(w, "Vision model:\t%s\n", visionModel)
	fmt.Fprintf(w, "API key:\t%s\n", keyStatus)
	w.Flush()
	fmt.Println()
}

// fetchModels lists the endpoint's models. Providers disagree on the reply
// shape: most wrap the list in a data envelope, some return a bare array.
func fetchModels(ctx context.Context, baseURL, apiKey string) ([]APIModel, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope modelsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var models []APIModel
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return models, nil
}

// providerHints maps model-id substrings to the owning provider, for
// endpoints that omit owned_by.
var providerHints = []struct {
	substr   string
	provider string
}{
	{"claude", "anthropic"},
	{"anthropic", "anthropic"},
	{"gpt", "openai"},
	{"openai", "openai"},
	{"o1", "openai"},
	{"gemini", "google"},
	{"google", "google"},
	{"llama", "meta"},
	{"meta", "meta"},
	{"mistral", "mistral"},
	{"mixtral", "mistral"},
	{"qwen", "alibaba"},
	{"deepseek", "deepseek"},
}

func inferProvider(modelID string) string {
	id := strings.ToLower(modelID)
	for _, h := range providerHints {
		if strings.Contains(id, h.substr) {
			return h.provider
		}
	}
	return "-"
}
