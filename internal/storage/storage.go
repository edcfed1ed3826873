// Package storage defines the Storage interface, the contract any
// database backend must satisfy to serve the tracker API. Handlers depend
// only on this interface, so tests can pass a fake and the SQL backend
// can change driver without touching them.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-tracker/internal/types"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("storage: not found")

// Storage is the database contract.
type Storage interface {
	// Snapshot returns every student, task and comment row. Either all
	// three sets are returned or an error is; never a partial result.
	Snapshot(ctx context.Context) (types.Rows, error)

	// UpsertStudent inserts or updates the student row and replaces its
	// whole task list with tasks, atomically.
	UpsertStudent(ctx context.Context, student types.StudentRow, tasks []types.TaskRow) error

	// DeleteStudent removes the student (its tasks and comments cascade)
	// and reports how many student rows were removed.
	DeleteStudent(ctx context.Context, account string) (int64, error)

	// FindStudent returns the student matching all three fields exactly,
	// or ErrNotFound.
	FindStudent(ctx context.Context, school, class, account string) (types.StudentRow, error)

	// ListTasks returns the tasks owned by account.
	ListTasks(ctx context.Context, account string) ([]types.TaskRow, error)

	// ListComments returns the comments on any of taskIDs. An empty
	// taskIDs returns an empty result without querying.
	ListComments(ctx context.Context, taskIDs []int64) ([]types.CommentRow, error)

	// AddComment inserts a comment and returns its assigned id.
	AddComment(ctx context.Context, comment types.CommentRow) (int64, error)

	// FlagComment sets flag to true on comment id and returns the number
	// of rows touched. A missing id is not an error.
	FlagComment(ctx context.Context, id int64, flag types.CommentFlag) (int64, error)

	// Ping checks the database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
