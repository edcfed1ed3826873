// Package storagetest provides an in-memory storage.Storage for handler
// tests. Each method records that it was called and can be made to fail.
package storagetest

import (
	"context"

	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/types"
)

var _ storage.Storage = (*Fake)(nil)

// Fake returns canned data. Err, when set, is returned by every method.
type Fake struct {
	Rows     types.Rows
	Student  *types.StudentRow
	Tasks    []types.TaskRow
	Comments []types.CommentRow

	Affected  int64
	CommentID int64
	Err       error

	Calls []string

	UpsertedStudent types.StudentRow
	UpsertedTasks   []types.TaskRow
	CommentTaskIDs  []int64
	AddedComment    types.CommentRow
	FlaggedID       int64
	Flag            types.CommentFlag
}

func (f *Fake) called(name string) error {
	f.Calls = append(f.Calls, name)
	return f.Err
}

// Called reports whether method name was invoked.
func (f *Fake) Called(name string) bool {
	for _, c := range f.Calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *Fake) Snapshot(context.Context) (types.Rows, error) {
	if err := f.called("Snapshot"); err != nil {
		return types.Rows{}, err
	}
	return f.Rows, nil
}

func (f *Fake) UpsertStudent(_ context.Context, student types.StudentRow, tasks []types.TaskRow) error {
	f.UpsertedStudent, f.UpsertedTasks = student, tasks
	return f.called("UpsertStudent")
}

func (f *Fake) DeleteStudent(context.Context, string) (int64, error) {
	if err := f.called("DeleteStudent"); err != nil {
		return 0, err
	}
	return f.Affected, nil
}

func (f *Fake) FindStudent(context.Context, string, string, string) (types.StudentRow, error) {
	if err := f.called("FindStudent"); err != nil {
		return types.StudentRow{}, err
	}
	if f.Student == nil {
		return types.StudentRow{}, storage.ErrNotFound
	}
	return *f.Student, nil
}

func (f *Fake) ListTasks(context.Context, string) ([]types.TaskRow, error) {
	if err := f.called("ListTasks"); err != nil {
		return nil, err
	}
	return f.Tasks, nil
}

func (f *Fake) ListComments(_ context.Context, taskIDs []int64) ([]types.CommentRow, error) {
	f.CommentTaskIDs = taskIDs
	if err := f.called("ListComments"); err != nil {
		return nil, err
	}
	return f.Comments, nil
}

func (f *Fake) AddComment(_ context.Context, comment types.CommentRow) (int64, error) {
	f.AddedComment = comment
	if err := f.called("AddComment"); err != nil {
		return 0, err
	}
	return f.CommentID, nil
}

func (f *Fake) FlagComment(_ context.Context, id int64, flag types.CommentFlag) (int64, error) {
	f.FlaggedID, f.Flag = id, flag
	if err := f.called("FlagComment"); err != nil {
		return 0, err
	}
	return f.Affected, nil
}

func (f *Fake) Ping(context.Context) error {
	return f.called("Ping")
}

func (f *Fake) Close() error { return nil }
