package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"visa-checker/internal/config"
	"visa-checker/internal/domain"
	"visa-checker/internal/eligibility"
	"visa-checker/internal/present"
)

type evaluateOptions struct {
	catalogID string
	answers   []string
	asJSON    bool
	noColor   bool
}

// NewEvaluateCmd scores a full set of answers without a session.
func NewEvaluateCmd(configPath *string) *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate answers given as flags and print the verdict",
		Example: `  visa-checker evaluate --answer age=yes --answer skill=yes \
    --answer language=yes --answer record=no --answer health=yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if opts.catalogID == "" {
				opts.catalogID = defaultCatalogID(cfg)
			}
			service, closer, err := localService(cmd.Context(), cfg, 0)
			defer closer()
			if err != nil {
				return err
			}
			catalog, err := service.Catalog(cmd.Context(), opts.catalogID)
			if err != nil {
				return err
			}
			return runEvaluate(cmd.OutOrStdout(), catalog, cfg.Presenter(), *opts)
		},
	}
	cmd.Flags().StringVar(&opts.catalogID, "catalog", "", "catalog id (defaults to catalog.default)")
	cmd.Flags().StringArrayVarP(&opts.answers, "answer", "a", nil, "answer as <question-id>=yes|no, repeatable")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	return cmd
}

type evaluateResult struct {
	CatalogID string `json:"catalogId"`
	present.Result
	Unmet []string `json:"unmet,omitempty"`
}

func runEvaluate(out io.Writer, catalog domain.Catalog, presenter *present.Presenter, opts evaluateOptions) error {
	answers, err := parseAnswerFlags(catalog, opts.answers)
	if err != nil {
		return err
	}
	assessment, err := eligibility.Assess(catalog, answers)
	if err != nil {
		return err
	}
	result := evaluateResult{
		CatalogID: catalog.ID(),
		Result:    presenter.Present(assessment.Verdict),
		Unmet:     assessment.Unmet,
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if opts.noColor || !isTerminal(out) {
		color.NoColor = true
	}
	printResult(out, catalog, result)
	return nil
}

func printResult(out io.Writer, catalog domain.Catalog, result evaluateResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	headline := green
	if result.Verdict != domain.VerdictQualified {
		headline = yellow
	}
	headline.Fprintln(out, result.Title)
	fmt.Fprintln(out, result.Body)
	if len(result.Unmet) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Worth discussing:")
		for _, id := range result.Unmet {
			q, _ := catalog.Lookup(id)
			fmt.Fprintf(out, "  - %s %s\n", q.Text, faint.Sprintf("(%s)", id))
		}
	}
	if result.CTAURL != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s: %s\n", result.CTALabel, cyan.Sprint(result.CTAURL))
	}
}

// parseAnswerFlags reads id=value pairs. Every id must belong to the catalog;
// missing questions are reported by the evaluator.
func parseAnswerFlags(catalog domain.Catalog, raw []string) (domain.AnswerSet, error) {
	answers := make(domain.AnswerSet, len(raw))
	for _, pair := range raw {
		id, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: expected <question-id>=yes|no", pair)
		}
		id = strings.TrimSpace(id)
		if _, known := catalog.Lookup(id); !known {
			return nil, fmt.Errorf("answer %q: catalog %s has no question %q", pair, catalog.ID(), id)
		}
		answer, err := domain.ParseAnswer(value)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", pair, err)
		}
		answers[id] = answer
	}
	return answers, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
