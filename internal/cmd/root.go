// Package cmd holds the root cobra command for xtask: a subcommand per
// task label, a bare-name alias for tasks rooted at the invoker's
// current directory, and the -p/--properties flag (§6 "CLI surface").
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Nikerino/xtask/internal/execctx"
	"github.com/Nikerino/xtask/internal/settings"
	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskcache"
	"github.com/Nikerino/xtask/internal/taskfile"
	"github.com/Nikerino/xtask/internal/taskgraph"
	"github.com/Nikerino/xtask/internal/xlog"
)

// Execute builds the root command and runs it against os.Args[1:],
// returning the process exit code.
func Execute(version string) int {
	root, err := Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	root.Version = version
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// Build discovers the project root, loads settings and task files,
// constructs the task graph, and wires one cobra subcommand per task
// label (§6 "CLI surface").
func Build() (*cobra.Command, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "determining current directory")
	}

	root, err := settings.FindProjectRoot(cwd)
	if err != nil {
		return nil, errors.Wrap(err, "locating project root")
	}

	cfg, err := settings.LoadOrDefault(root)
	if err != nil {
		return nil, errors.Wrap(err, "loading xtask.project")
	}

	logger := xlog.New(cfg.LogLevel)

	tasks, err := taskfile.NewLoader(root).Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading task files")
	}

	graph, err := taskgraph.Build(tasks)
	if err != nil {
		return nil, errors.Wrap(err, "building task graph")
	}

	var cache taskcache.TaskCache
	if cfg.CacheEnabled() {
		cache = taskcache.NewDirectoryTaskCache(cfg.CacheLocation)
	}

	rootCmd := &cobra.Command{
		Use:           "xtask",
		Short:         "A task-oriented build orchestrator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	for _, t := range graph.AllTasks() {
		t := t
		rootCmd.AddCommand(buildTaskCommand(t, graph, cache, logger, t.Label()))
		if t.WorkingDirectoryPath == cwd {
			rootCmd.AddCommand(buildTaskCommand(t, graph, cache, logger, t.Name))
		}
	}

	return rootCmd, nil
}

// buildTaskCommand builds the subcommand for t, invoked under use (either
// its full "group:name" label or its bare-name alias).
func buildTaskCommand(t *task.Task, graph *taskgraph.Graph, cache taskcache.TaskCache, logger *xlog.Logger, use string) *cobra.Command {
	properties := map[string]string{}

	sub := &cobra.Command{
		Use:   use,
		Short: t.Doc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := execctx.New(t, graph, cache, properties, logger)
			// The root task always executes with use_cache=true and
			// with_dependencies=true (§6 "CLI surface").
			return ctx.Execute(true, true, t)
		},
	}
	sub.Flags().VarP(newPropertiesValue(&properties), "properties", "p", "key=value property, repeatable")
	return sub
}
