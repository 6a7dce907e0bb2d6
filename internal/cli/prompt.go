package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/workflow"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const promptColumnWidth = 48

// isTerminalFunc reports whether r is an interactive terminal, allowing it to be mocked in tests.
var isTerminalFunc = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newPromptCommand creates the prompt command.
func newPromptCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prompt",
		Aliases: []string{"prompts"},
		Short:   "Author and evaluate prompts",
	}
	cmd.AddCommand(
		newPromptAddCommand(c),
		newPromptListCommand(c),
		newPromptShowCommand(c),
		newPromptUpdateCommand(c),
		newPromptRmCommand(c),
		newPromptRateCommand(c),
		newPromptSelectCommand(c),
	)
	return cmd
}

// promptForm holds the values collected by the interactive prompt form.
type promptForm struct {
	Text        string
	Translation string
	BaseID      string
}

// runPromptForm asks for a prompt interactively.
func runPromptForm(in io.Reader, out io.Writer, bts []domain.BaseTranslation, v *promptForm) error {
	options := make([]huh.Option[string], 0, len(bts)+1)
	options = append(options, huh.NewOption("(none)", ""))
	for _, bt := range bts {
		options = append(options, huh.NewOption(fmt.Sprintf("%s: %s", bt.ID, truncate(bt.Text, promptColumnWidth)), bt.ID))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Prompt").
				Description("Instruction given to the translation model").
				Value(&v.Text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return domain.ErrEmptyPromptText
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Base translation").
				Options(options...).
				Value(&v.BaseID),
			huh.NewText().
				Title("Translation").
				Description("Output produced by the prompt (optional)").
				Value(&v.Translation),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt form: %w", err)
	}
	return nil
}

func newPromptAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		File        string
		Translation string
		BaseID      string
	}

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a prompt",
		Long: `Add a prompt to the current task.

Without text on a terminal, an interactive form asks for the prompt,
its base translation and the translation it produced.

Examples:
  promptbench prompt add "Translate formally, keep honorifics" --base bt-1
  promptbench prompt add --file prompt.txt --translation "Good morning, sir."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var form promptForm
			form.BaseID = opts.BaseID
			form.Translation = opts.Translation

			if len(args) == 0 && opts.File == "" {
				if !isTerminalFunc(cmd.InOrStdin()) {
					return errors.New("prompt text required (argument, --file, or - for stdin)")
				}
				if _, err := loadSession(cmd, c); err != nil {
					return err
				}
				if err := runPromptForm(cmd.InOrStdin(), cmd.OutOrStdout(), c.Workflow.State().BaseTranslations, &form); err != nil {
					return err
				}
			} else {
				text, err := readText(cmd, args, opts.File)
				if err != nil {
					return err
				}
				form.Text = text
			}
			if strings.TrimSpace(form.Text) == "" {
				return domain.ErrEmptyPromptText
			}

			var added domain.Prompt
			err := editSession(cmd, c, func(wf *workflow.Container) error {
				if form.BaseID != "" && !hasBaseTranslation(wf.State().BaseTranslations, form.BaseID) {
					return fmt.Errorf("unknown base translation %q", form.BaseID)
				}
				in := domain.PromptInput{Text: form.Text, BaseTranslationID: form.BaseID}
				if form.Translation != "" {
					in.Translation = &form.Translation
				}
				added = wf.AddPrompt(in)
				if wf.CurrentStep() < domain.StepPromptAuthoring {
					return wf.SetCurrentStep(domain.StepPromptAuthoring)
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added prompt %s\n", added.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "Read the prompt text from a file")
	cmd.Flags().StringVar(&opts.Translation, "translation", "", "Translation produced by the prompt")
	cmd.Flags().StringVar(&opts.BaseID, "base", "", "ID of the base translation the prompt targets")
	return cmd
}

func hasBaseTranslation(bts []domain.BaseTranslation, id string) bool {
	for _, bt := range bts {
		if bt.ID == id {
			return true
		}
	}
	return false
}

func newPromptListCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts of the current task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			prompts := c.Workflow.Prompts()
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, prompts)
			}
			printPromptList(cmd.OutOrStdout(), prompts, c.Workflow.SelectedPrompt())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, json, yaml)")
	return cmd
}

// printPromptList prints prompts in TSV format. The selected prompt is marked with '*'.
func printPromptList(w io.Writer, prompts []domain.Prompt, selected string) {
	if len(prompts) == 0 {
		_, _ = fmt.Fprintln(w, "No prompts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tBASE\tRATING\tSCORE\tPROMPT")
	for _, p := range prompts {
		id := p.ID
		if id == selected {
			id = "*" + id
		}
		rating := "-"
		if p.Rating != nil {
			rating = string(*p.Rating)
		}
		score := "-"
		if p.QualityScore != nil {
			score = strconv.FormatFloat(*p.QualityScore, 'f', -1, 64)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id, dash(p.BaseTranslationID), rating, score, truncate(p.Text, promptColumnWidth))
	}
}

func newPromptShowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt-id>",
		Short: "Show a prompt with its evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadSession(cmd, c); err != nil {
				return err
			}
			p, ok := c.Workflow.PromptByID(args[0])
			if !ok {
				return fmt.Errorf("prompt %s: %w", args[0], domain.ErrPromptNotFound)
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Prompt %s (created %s)\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"))
			_, _ = fmt.Fprintf(w, "Base:        %s\n", dash(p.BaseTranslationID))
			if p.Rating != nil {
				_, _ = fmt.Fprintf(w, "Rating:      %s\n", *p.Rating)
			}
			if p.QualityScore != nil {
				_, _ = fmt.Fprintf(w, "Score:       %s\n", strconv.FormatFloat(*p.QualityScore, 'f', -1, 64))
			}
			if p.Comment != nil {
				_, _ = fmt.Fprintf(w, "Comment:     %s\n", *p.Comment)
			}
			_, _ = fmt.Fprintf(w, "\n%s\n", p.Text)
			if p.Translation != nil {
				_, _ = fmt.Fprintf(w, "\nTranslation:\n  %s\n", *p.Translation)
			}
			return nil
		},
	}
}

func newPromptUpdateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Text        string
		Translation string
		BaseID      string
		Edit        bool
	}

	cmd := &cobra.Command{
		Use:   "update <prompt-id>",
		Short: "Update a prompt",
		Long: `Update fields of a prompt. Only the given flags are changed.

With --edit the current prompt text opens in $EDITOR (or $VISUAL).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.PromptUpdate
			if cmd.Flags().Changed("text") {
				upd.Text = &opts.Text
			}
			if opts.Edit {
				if upd.Text != nil {
					return errors.New("--text and --edit cannot be used together")
				}
				if _, err := loadSession(cmd, c); err != nil {
					return err
				}
				p, ok := c.Workflow.PromptByID(args[0])
				if !ok {
					return fmt.Errorf("prompt %s: %w", args[0], domain.ErrPromptNotFound)
				}
				text, err := editTextFunc("prompt-"+p.ID, p.Text)
				if err != nil {
					return err
				}
				if text != p.Text {
					upd.Text = &text
				}
			}
			if cmd.Flags().Changed("translation") {
				upd.Translation = &opts.Translation
			}
			if cmd.Flags().Changed("base") {
				upd.BaseTranslationID = &opts.BaseID
			}
			if upd.IsEmpty() {
				if opts.Edit {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No changes made")
					return nil
				}
				return domain.ErrNoFieldsToUpdate
			}
			if upd.Text != nil && strings.TrimSpace(*upd.Text) == "" {
				return domain.ErrEmptyPromptText
			}

			err := editSession(cmd, c, func(wf *workflow.Container) error {
				return wf.UpdatePrompt(args[0], upd)
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Text, "text", "", "New prompt text")
	cmd.Flags().StringVar(&opts.Translation, "translation", "", "Translation produced by the prompt")
	cmd.Flags().StringVar(&opts.BaseID, "base", "", "Base translation ID")
	cmd.Flags().BoolVarP(&opts.Edit, "edit", "e", false, "Edit the prompt text in $EDITOR")
	return cmd
}

func newPromptRmCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <prompt-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a prompt and its evaluation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := editSession(cmd, c, func(wf *workflow.Container) error {
				return wf.RemovePrompt(args[0])
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed prompt %s\n", args[0])
			return nil
		},
	}
}

func newPromptRateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Rating  string
		Comment string
		Score   float64
		Replace bool
	}

	cmd := &cobra.Command{
		Use:   "rate <prompt-id>",
		Short: "Evaluate a prompt",
		Long: `Record a rating, quality score and comment for a prompt.

Only the given fields change unless --replace is set, which replaces the
whole evaluation.

Examples:
  promptbench prompt rate p-1 --rating like --score 4.5
  promptbench prompt rate p-2 --comment "too literal"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.EvaluationUpdate
			if cmd.Flags().Changed("rating") {
				r := domain.Rating(opts.Rating)
				if !r.IsValid() {
					return fmt.Errorf("rating %q: %w", opts.Rating, domain.ErrInvalidRating)
				}
				upd.Rating = &r
			}
			if cmd.Flags().Changed("comment") {
				upd.Comment = &opts.Comment
			}
			if cmd.Flags().Changed("score") {
				upd.QualityScore = &opts.Score
			}
			if upd.Rating == nil && upd.Comment == nil && upd.QualityScore == nil {
				return domain.ErrNoFieldsToUpdate
			}

			err := editSession(cmd, c, func(wf *workflow.Container) error {
				var err error
				if opts.Replace {
					err = wf.SetEvaluation(args[0], domain.Evaluation(upd))
				} else {
					err = wf.UpdateEvaluation(args[0], upd)
				}
				if err != nil {
					return err
				}
				if wf.CurrentStep() < domain.StepEvaluation {
					return wf.SetCurrentStep(domain.StepEvaluation)
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Evaluated prompt %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Rating, "rating", "", "Rating (like, dislike)")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "Comment")
	cmd.Flags().Float64Var(&opts.Score, "score", 0, "Quality score")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "Replace the whole evaluation")
	return cmd
}

func newPromptSelectCommand(c *app.Container) *cobra.Command {
	var clearSelection bool

	cmd := &cobra.Command{
		Use:   "select [prompt-id]",
		Short: "Select the best prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			switch {
			case clearSelection:
			case len(args) == 1:
				id = args[0]
			default:
				return errors.New("prompt id required (or --clear)")
			}

			err := editSession(cmd, c, func(wf *workflow.Container) error {
				if err := wf.SetSelectedPrompt(id); err != nil {
					return err
				}
				if id != "" && wf.CurrentStep() < domain.StepFinalSelection {
					if err := wf.SetCurrentStep(domain.StepFinalSelection); err != nil {
						return err
					}
				}
				if id != "" {
					wf.UpdateProgress(map[domain.Step]int{domain.StepFinalSelection: 100})
				}
				return nil
			})
			if err != nil {
				return err
			}
			if id == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Selected prompt %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearSelection, "clear", false, "Clear the selection")
	return cmd
}
