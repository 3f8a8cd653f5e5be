package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/intorma/torma/board"
	"github.com/intorma/torma/internal/editor"
	"github.com/intorma/torma/task"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

// task add
var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new task",
	Long: `Create a new task.

By default, opens $EDITOR on a form prefilled from the flags when running
interactively. Use --no-edit to skip the editor, or --edit to force it.
Status defaults to Proses Desain and source to CS.`,
	Args: cobra.NoArgs,
	RunE: runTaskAdd,
}

// task list
var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks in board order",
	Args:    cobra.NoArgs,
	RunE:    runTaskList,
}

// task show
var taskShowCmd = &cobra.Command{
	Use:   "show <id>...",
	Short: "Show task details",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskShow,
}

// task edit
var taskEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

// task update
var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update task fields from flags",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

// task move
var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to the end of another column",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

// task reorder
var taskReorderCmd = &cobra.Command{
	Use:   "reorder <id> --before <id>",
	Short: "Move a task before another task in the same column",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskReorder,
}

// task delete
var taskDeleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTaskDelete,
}

// fieldFlags are the task fields settable from flags on add and update.
type fieldFlags struct {
	customer    string
	description string
	status      string
	source      string
	due         string
}

func (f *fieldFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.customer, "customer", "c", "", "Customer name")
	flags.StringVarP(&f.description, "description", "d", "", "Description (use '-' to read from stdin)")
	flags.StringVarP(&f.status, "status", "s", "", "Status (desain, acc, selesai)")
	flags.StringVar(&f.source, "source", "", "Source (N, CS, Admin, G)")
	flags.StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
}

var (
	taskAddFields fieldFlags
	taskAddEdit   bool
	taskAddNoEdit bool

	taskListStatus string
	taskListSearch string
	taskListJSON   bool

	taskShowJSON bool

	taskUpdateFields   fieldFlags
	taskUpdateClearDue bool

	taskReorderBefore string
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskEditCmd, taskUpdateCmd,
		taskMoveCmd, taskReorderCmd, taskDeleteCmd)

	taskAddFields.register(taskAddCmd.Flags())
	taskAddCmd.Flags().BoolVarP(&taskAddEdit, "edit", "e", false, "Open $EDITOR (default if interactive)")
	taskAddCmd.Flags().BoolVar(&taskAddNoEdit, "no-edit", false, "Do not open $EDITOR")

	taskListCmd.Flags().StringVarP(&taskListStatus, "status", "s", "", "Filter by status")
	taskListCmd.Flags().StringVarP(&taskListSearch, "search", "q", "", "Filter by customer or description substring")
	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output as JSON")

	taskShowCmd.Flags().BoolVar(&taskShowJSON, "json", false, "Output as JSON")

	taskUpdateFields.register(taskUpdateCmd.Flags())
	taskUpdateCmd.Flags().BoolVar(&taskUpdateClearDue, "clear-due", false, "Remove the due date")

	taskReorderCmd.Flags().StringVar(&taskReorderBefore, "before", "", "Task to place this task before")
	_ = taskReorderCmd.MarkFlagRequired("before")
}

func readDescription(value string, reader io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}

	input, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read description from stdin: %w", err)
	}

	value = strings.TrimSuffix(string(input), "\n")
	value = strings.TrimSuffix(value, "\r")
	return value, nil
}

// fields builds task fields from the changed flags on top of defaults.
func (f fieldFlags) fields(flags *pflag.FlagSet, stdin io.Reader, defaults task.Fields) (task.Fields, error) {
	out := defaults
	if flags.Changed("customer") {
		out.CustomerName = f.customer
	}
	if flags.Changed("description") {
		desc, err := readDescription(f.description, stdin)
		if err != nil {
			return task.Fields{}, err
		}
		out.Description = desc
	}
	if flags.Changed("status") {
		status, err := task.ParseStatus(f.status)
		if err != nil {
			return task.Fields{}, &task.ValidationError{Field: "status", Err: err}
		}
		out.Status = status
	}
	if flags.Changed("source") {
		source, err := task.ParseSource(f.source)
		if err != nil {
			return task.Fields{}, &task.ValidationError{Field: "source", Err: err}
		}
		out.Source = source
	}
	if flags.Changed("due") {
		if strings.TrimSpace(f.due) == "" {
			out.DueDate = nil
		} else {
			due, err := task.ParseDate(f.due)
			if err != nil {
				return task.Fields{}, &task.ValidationError{Field: "dueDate", Err: err}
			}
			out.DueDate = &due
		}
	}
	return out, nil
}

// patch builds an update from the changed flags only.
func (f fieldFlags) patch(flags *pflag.FlagSet, stdin io.Reader, clearDue bool) (task.Patch, error) {
	fields, err := f.fields(flags, stdin, task.Fields{})
	if err != nil {
		return task.Patch{}, err
	}

	var patch task.Patch
	if flags.Changed("customer") {
		patch.CustomerName = task.StringPtr(fields.CustomerName)
	}
	if flags.Changed("description") {
		patch.Description = task.StringPtr(fields.Description)
	}
	if flags.Changed("status") {
		patch.Status = task.StatusPtr(fields.Status)
	}
	if flags.Changed("source") {
		patch.Source = task.SourcePtr(fields.Source)
	}
	if flags.Changed("due") {
		if fields.DueDate == nil {
			patch.ClearDueDate = true
		} else {
			patch.DueDate = fields.DueDate
		}
	}
	if clearDue {
		patch.ClearDueDate = true
	}
	return patch, nil
}

func defaultFields() task.Fields {
	return task.Fields{Status: task.DefaultStatus, Source: task.DefaultSource}
}

// persisted turns a write the store kept only in memory into a command
// failure; the process is about to exit and would lose it.
func persisted(store *task.Store, err error) error {
	if err != nil {
		return err
	}
	return store.PersistError()
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	fields, err := taskAddFields.fields(cmd.Flags(), cmd.InOrStdin(), defaultFields())
	if err != nil {
		return err
	}

	if taskAddEdit || (!taskAddNoEdit && editor.IsInteractive()) {
		parsed, err := editor.EditTask(editor.DataFromFields(fields))
		if err != nil {
			return err
		}
		fields = parsed.Fields()
	}

	id, err := store.Create(fields)
	if err := persisted(store, err); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", a.highlight(store, id), fields.CustomerName)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	tasks := store.List()
	if taskListSearch != "" {
		tasks = task.Search(tasks, taskListSearch)
	}
	if taskListStatus != "" {
		status, err := task.ParseStatus(taskListStatus)
		if err != nil {
			return err
		}
		tasks = task.WithStatus(tasks, status)
	}

	if taskListJSON {
		if tasks == nil {
			tasks = []task.Task{}
		}
		return encodeJSON(cmd.OutOrStdout(), tasks)
	}

	printTaskTable(cmd.OutOrStdout(), tasks, store.IDIndex().PrefixLengths(), a.today())
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	items := make([]task.Task, 0, len(args))
	for _, arg := range args {
		t, err := resolveTask(store, arg)
		if err != nil {
			return err
		}
		items = append(items, t)
	}

	if taskShowJSON {
		return encodeJSON(cmd.OutOrStdout(), items)
	}

	lengths := store.IDIndex().PrefixLengths()
	for i, t := range items {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		printTaskDetail(cmd.OutOrStdout(), t, lengths, a.today())
	}
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	t, err := resolveTask(store, args[0])
	if err != nil {
		return err
	}
	parsed, err := editor.EditTask(editor.DataFromTask(t))
	if err != nil {
		return err
	}
	if err := persisted(store, store.Update(t.ID, parsed.Patch())); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", a.highlight(store, t.ID))
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	patch, err := taskUpdateFields.patch(cmd.Flags(), cmd.InOrStdin(), taskUpdateClearDue)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errors.New("no fields to update (see --help)")
	}

	id, err := store.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := persisted(store, store.Update(id, patch)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", a.highlight(store, id))
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	id, err := store.Resolve(args[0])
	if err != nil {
		return err
	}
	status, err := task.ParseStatus(args[1])
	if err != nil {
		return err
	}

	if err := drag(store, id, board.Drop{Status: status}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved task %s to %s\n", a.highlight(store, id), status)
	return nil
}

func runTaskReorder(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	id, err := store.Resolve(args[0])
	if err != nil {
		return err
	}
	before, err := store.Resolve(taskReorderBefore)
	if err != nil {
		return err
	}

	over, err := dropTargetBefore(store.List(), id, before)
	if err != nil {
		return err
	}
	if over != "" {
		if err := drag(store, id, board.Drop{OverID: over}); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Placed task %s before %s\n", a.highlight(store, id), a.highlight(store, before))
	return nil
}

// dropTargetBefore picks the task to drop id onto so that it lands right
// before the task before. A drop takes the target's index, so moving down
// the column targets the task above before. It returns "" when id is
// already in place.
func dropTargetBefore(tasks []task.Task, id, before string) (string, error) {
	if id == before {
		return "", nil
	}

	var (
		status task.Status
		found  bool
	)
	for _, t := range tasks {
		if t.ID == id {
			status, found = t.Status, true
		}
	}
	if !found {
		return "", &task.NotFoundError{ID: id}
	}

	column := task.WithStatus(tasks, status)
	from, to := -1, -1
	for i, t := range column {
		switch t.ID {
		case id:
			from = i
		case before:
			to = i
		}
	}
	if to < 0 {
		return "", fmt.Errorf("task %s is not in %s; use `torma task move` first", before, status)
	}
	switch {
	case from == to-1:
		return "", nil
	case from < to:
		return column[to-1].ID, nil
	default:
		return column[to].ID, nil
	}
}

// drag replays a board gesture against the store.
func drag(store *task.Store, id string, drop board.Drop) error {
	b := board.New(store)
	defer b.Close()

	if err := b.DragStart(id); err != nil {
		return err
	}
	return persisted(store, b.DragEnd(drop))
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := store.Resolve(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		label := a.highlight(store, id)
		if err := persisted(store, store.Delete(id)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", label)
	}
	return nil
}

func resolveTask(store *task.Store, prefix string) (task.Task, error) {
	id, err := store.Resolve(prefix)
	if err != nil {
		return task.Task{}, err
	}
	return store.Get(id)
}
