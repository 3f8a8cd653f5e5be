package task

// Task is a single card on the board.
type Task struct {
	// ID is an opaque identifier minted on create.
	ID string `json:"id"`

	// CustomerName is who the design is for.
	CustomerName string `json:"customerName"`

	// Description says what to make.
	Description string `json:"description"`

	// Status is the board column.
	Status Status `json:"status"`

	// Source records where the request came from.
	Source Source `json:"source"`

	// DueDate is the optional deadline.
	DueDate *Date `json:"dueDate,omitempty"`
}

// Fields are the user-editable fields of a task, used by Create and by
// drafts produced from free text.
type Fields struct {
	CustomerName string `json:"customerName"`
	Description  string `json:"description"`
	Status       Status `json:"status"`
	Source       Source `json:"source"`
	DueDate      *Date  `json:"dueDate,omitempty"`
}

// Patch is a partial update. Nil pointers mean "don't update this field".
type Patch struct {
	CustomerName *string `json:"customerName,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *Status `json:"status,omitempty"`
	Source       *Source `json:"source,omitempty"`
	DueDate      *Date   `json:"dueDate,omitempty"`

	// ClearDueDate removes the due date. It wins over DueDate.
	ClearDueDate bool `json:"clearDueDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.CustomerName == nil && p.Description == nil && p.Status == nil &&
		p.Source == nil && p.DueDate == nil && !p.ClearDueDate
}

// Fields returns the task without its ID.
func (t Task) Fields() Fields {
	return Fields{
		CustomerName: t.CustomerName,
		Description:  t.Description,
		Status:       t.Status,
		Source:       t.Source,
		DueDate:      cloneDate(t.DueDate),
	}
}

// IsOverdue reports whether an active task's due date is before today.
func (t Task) IsOverdue(today Date) bool {
	return t.Status.IsActive() && t.DueDate != nil && t.DueDate.Before(today)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// StatusPtr returns a pointer to s.
func StatusPtr(s Status) *Status {
	return &s
}

// SourcePtr returns a pointer to s.
func SourcePtr(s Source) *Source {
	return &s
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneTasks(tasks []Task) []Task {
	cloned := make([]Task, len(tasks))
	for i, t := range tasks {
		t.DueDate = cloneDate(t.DueDate)
		cloned[i] = t
	}
	return cloned
}

// Active returns the tasks that are not done, in order.
func Active(tasks []Task) []Task {
	return Filter(tasks, func(t Task) bool { return t.Status.IsActive() })
}

// WithStatus returns the tasks carrying status, in order.
func WithStatus(tasks []Task, status Status) []Task {
	return Filter(tasks, func(t Task) bool { return t.Status == status })
}

// Filter returns the tasks for which keep returns true, in order.
func Filter(tasks []Task, keep func(Task) bool) []Task {
	filtered := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
