package harness

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"smartfix-harness/internal/config"
	"smartfix-harness/internal/corpus"
	"smartfix-harness/internal/executor"
	"smartfix-harness/internal/layout"
)

type plannedTask struct {
	executor.Task
	OutputDir string   `json:"output_dir"`
	Command   []string `json:"command"`
}

func newPlanCommand() *cobra.Command {
	var (
		configFile string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:           "plan [flags] <corpus_dir> <output_dir>",
		Short:         "Show the tasks a run would execute without running them",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Flags(), configFile, args)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
				return exitError{code: 1}
			}
			if err := runPlan(cmd.OutOrStdout(), cfg, asJSON); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
				return exitError{code: 1}
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&configFile, "config", "", "Config file path (default: $HOME/.smartfix/config.*)")
	fs.BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	config.AddRunFlags(fs)
	return cmd
}

func runPlan(w io.Writer, cfg *config.Config, asJSON bool) error {
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	tasks, err := corpus.Load(cfg.CorpusDir, cfg.Manifest, cfg.OnCollision)
	if err != nil {
		return err
	}

	placer := layout.NewPlacer(cfg.OutputDir)
	planned := make([]plannedTask, len(tasks))
	for i, task := range tasks {
		dir := placer.Dir(task)
		planned[i] = plannedTask{
			Task:      task,
			OutputDir: dir,
			Command:   append([]string{runner.Command()}, runner.Args(task, dir)...),
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(planned)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKEY\tTARGET\tINPUT\tOUTPUT")
	for _, p := range planned {
		input := p.InputPath
		if rel, err := filepath.Rel(cfg.CorpusDir, input); err == nil {
			input = rel
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Index, p.Key, p.Target, input, p.OutputDir)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d tasks, summary at %s\n", len(planned), placer.SummaryPath())
	return nil
}
