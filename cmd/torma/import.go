package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/intorma/torma/task"
)

var taskImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all tasks with a JSON task list",
	Long: `Replace the whole task list with the JSON array in <file>, as written
by "torma task list --json". Use "-" to read from stdin. Tasks without an
id get a new one. Nothing is written when any task is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskImport,
}

func init() {
	taskCmd.AddCommand(taskImportCmd)
}

func readTaskList(path string, stdin io.Reader) ([]task.Task, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tasks, nil
}

func runTaskImport(cmd *cobra.Command, args []string) error {
	_, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	tasks, err := readTaskList(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := persisted(store, store.Replace(tasks)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", len(tasks))
	return nil
}
