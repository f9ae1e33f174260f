package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

var (
	askShowPrompt bool
	askNoStyle    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a personal finance question",
	Long: `Answers a question using only passages from the knowledge base and, when
the question asks for one, an exact calculation (compound interest, the
50/30/20 budget or a debt-to-income ratio).

The answer is streamed as it is generated and followed by its sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowPrompt, "show-prompt", false, "print the grounded prompt sent to the model")
	askCmd.Flags().BoolVar(&askNoStyle, "no-style", false, "disable colours and styling")
	rootCmd.AddCommand(askCmd)
}

// answerStyles renders the parts of an answer.
type answerStyles struct {
	heading lipgloss.Style
	source  lipgloss.Style
	excerpt lipgloss.Style
	notice  lipgloss.Style
}

func newAnswerStyles(styled bool) answerStyles {
	if !styled {
		plain := lipgloss.NewStyle()
		return answerStyles{heading: plain, source: plain, excerpt: plain, notice: plain}
	}
	return answerStyles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		source:  lipgloss.NewStyle().Bold(true),
		excerpt: lipgloss.NewStyle().Faint(true).PaddingLeft(4),
		notice:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	out := cmd.OutOrStdout()
	styles := newAnswerStyles(!askNoStyle && isTerminal(out))

	svc, err := openServices(cmd, NeedStore|NeedAI, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.Answer == nil {
		return errors.New("answer service not configured")
	}

	answer, err := svc.Answer.Answer(cmd.Context(), question)
	if errors.Is(err, domain.ErrLLMUnavailable) {
		return fmt.Errorf("%w: configure a model with 'finlit config set llm.provider ...' and run 'finlit config check'", err)
	}
	if err != nil {
		return err
	}

	if answer.Greeting {
		fmt.Fprintln(out, answer.Text)
		return nil
	}

	if askShowPrompt {
		fmt.Fprintln(out, styles.heading.Render("Prompt"))
		fmt.Fprintln(out, answer.Prompt)
		fmt.Fprintln(out)
	}

	if answer.Calculation != nil {
		printCalculation(out, styles, answer.Calculation)
	}

	for fragment, err := range answer.Fragments {
		if err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("generation failed: %w", err)
		}
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)

	printSources(out, styles, answer)
	return nil
}

func printCalculation(out io.Writer, styles answerStyles, calc *domain.CalculationResult) {
	fmt.Fprintln(out, styles.heading.Render("Calculation"))
	data, err := json.MarshalIndent(calc, "", "  ")
	if err != nil {
		fmt.Fprintln(out, styles.notice.Render("The calculation could not be computed for these inputs."))
	} else {
		fmt.Fprintln(out, string(data))
	}
	fmt.Fprintln(out)
}

func printSources(out io.Writer, styles answerStyles, answer *domain.Answer) {
	if answer.FoundCount == 0 {
		fmt.Fprintln(out, styles.notice.Render("No matching passages were found in the knowledge base."))
		return
	}

	fmt.Fprintln(out, styles.heading.Render(fmt.Sprintf("Sources (%d passages)", answer.FoundCount)))
	for i, c := range answer.Sources {
		fmt.Fprintf(out, "  %d. %s\n", i+1, styles.source.Render(c.Title+" ("+c.Source+")"))
		fmt.Fprintln(out, styles.excerpt.Render(c.Excerpt))
	}
}
