package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	askTopK        int
	askJSON        bool
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from indexed documents",
	Long: `Embed the question, retrieve the most similar chunks and generate an
answer grounded in them. Sources of the retrieved chunks are listed after
the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (0 = configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVarP(&askShowContext, "context", "c", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if askTopK < 0 {
		return fmt.Errorf("%w: --top-k must not be negative", domain.ErrInvalidInput)
	}

	p, err := getPipeline(cmd.Context())
	if err != nil {
		return err
	}

	answer, err := p.Query.Answer(cmd.Context(), question, domain.QueryOptions{TopK: askTopK})
	if err != nil {
		return fmt.Errorf("could not answer: %w", err)
	}

	if askJSON {
		return printAnswerJSON(cmd, answer)
	}
	printAnswer(cmd, answer)
	return nil
}

// answerJSON mirrors the HTTP query response.
type answerJSON struct {
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
	Sources []string `json:"sources"`
}

func printAnswerJSON(cmd *cobra.Command, a *domain.Answer) error {
	out := answerJSON{Answer: a.Text, Context: a.Context, Sources: a.Sources}
	if out.Context == nil {
		out.Context = []string{}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printAnswer(cmd *cobra.Command, a *domain.Answer) {
	cmd.Println(a.Text)
	if !a.Grounded {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for _, s := range distinctSources(a.Sources) {
		cmd.Printf("  - %s\n", s)
	}

	if askShowContext {
		cmd.Println()
		for i, text := range a.Context {
			source := ""
			if i < len(a.Sources) {
				source = a.Sources[i]
			}
			cmd.Printf("[%d] %s\n%s\n\n", i+1, source, text)
		}
	}
}

// distinctSources drops empty and repeated sources, keeping rank order.
func distinctSources(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
