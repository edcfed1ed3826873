package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/types"
)

var _ storage.Storage = (*Store)(nil)

const (
	selectStudents = "SELECT account, name, school, class, email FROM students ORDER BY account"
	selectTasks    = "SELECT id, student_account, name, status, teacher_comment FROM tasks ORDER BY id"
	selectComments = "SELECT id, task_id, sender, content, timestamp, is_recalled, is_blocked FROM comments ORDER BY id"

	upsertStudent = `INSERT INTO students (account, name, school, class, email) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account) DO UPDATE SET
			name = excluded.name, school = excluded.school, class = excluded.class, email = excluded.email`
	deleteTasksOf = "DELETE FROM tasks WHERE student_account = ?"
	insertTask    = "INSERT INTO tasks (id, student_account, name, status, teacher_comment) VALUES (?, ?, ?, ?, ?)"
)

// withTx runs fn inside a transaction, committing if fn succeeds and
// rolling back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Snapshot reads the three tables inside one transaction so the rows are
// consistent with each other.
func (s *Store) Snapshot(ctx context.Context) (types.Rows, error) {
	rows := types.Rows{
		Students: []types.StudentRow{},
		Tasks:    []types.TaskRow{},
		Comments: []types.CommentRow{},
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &rows.Students, selectStudents); err != nil {
			return fmt.Errorf("students: %w", err)
		}
		if err := tx.SelectContext(ctx, &rows.Tasks, selectTasks); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		if err := tx.SelectContext(ctx, &rows.Comments, selectComments); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Rows{}, fmt.Errorf("Snapshot: %w", err)
	}

	return rows, nil
}

// UpsertStudent writes the student row and replaces its tasks in a single
// transaction. The student row is updated in place, never deleted, so the
// only tasks removed are the ones the explicit DELETE targets.
func (s *Store) UpsertStudent(ctx context.Context, student types.StudentRow, tasks []types.TaskRow) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(upsertStudent),
			student.Account, student.Name, student.School, student.Class, student.Email,
		); err != nil {
			return fmt.Errorf("upsert student: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(deleteTasksOf), student.Account); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}

		if len(tasks) == 0 {
			return nil
		}

		stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertTask))
		if err != nil {
			return fmt.Errorf("prepare insert task: %w", err)
		}
		defer stmt.Close()

		for _, task := range tasks {
			if _, err := stmt.ExecContext(ctx,
				task.ID, student.Account, task.Name, task.Status, task.TeacherComment,
			); err != nil {
				return fmt.Errorf("insert task %d: %w", task.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("UpsertStudent: %w", err)
	}
	return nil
}

// DeleteStudent removes one student row; tasks and comments cascade.
func (s *Store) DeleteStudent(ctx context.Context, account string) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM students WHERE account = ?"), account)
	if err != nil {
		return 0, fmt.Errorf("DeleteStudent: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteStudent: rows affected: %w", err)
	}
	return affected, nil
}

// FindStudent matches school, class and account exactly.
func (s *Store) FindStudent(ctx context.Context, school, class, account string) (types.StudentRow, error) {
	var student types.StudentRow
	err := s.db.GetContext(ctx, &student, s.db.Rebind(
		"SELECT account, name, school, class, email FROM students WHERE school = ? AND class = ? AND account = ? LIMIT 1",
	), school, class, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StudentRow{}, storage.ErrNotFound
		}
		return types.StudentRow{}, fmt.Errorf("FindStudent: %w", err)
	}
	return student, nil
}

// ListTasks returns the tasks owned by account, ordered by id.
func (s *Store) ListTasks(ctx context.Context, account string) ([]types.TaskRow, error) {
	tasks := []types.TaskRow{}
	err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(
		"SELECT id, student_account, name, status, teacher_comment FROM tasks WHERE student_account = ? ORDER BY id",
	), account)
	if err != nil {
		return nil, fmt.Errorf("ListTasks: %w", err)
	}
	return tasks, nil
}

// ListComments fetches the comments of all taskIDs with one IN query.
func (s *Store) ListComments(ctx context.Context, taskIDs []int64) ([]types.CommentRow, error) {
	comments := []types.CommentRow{}
	if len(taskIDs) == 0 {
		return comments, nil
	}

	query, args, err := sqlx.In(
		"SELECT id, task_id, sender, content, timestamp, is_recalled, is_blocked FROM comments WHERE task_id IN (?) ORDER BY id",
		taskIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("ListComments: build query: %w", err)
	}

	if err := s.db.SelectContext(ctx, &comments, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("ListComments: %w", err)
	}
	return comments, nil
}

// AddComment inserts a comment with both flags cleared and returns the id
// the database assigned.
func (s *Store) AddComment(ctx context.Context, comment types.CommentRow) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		"INSERT INTO comments (task_id, sender, content, timestamp, is_recalled, is_blocked) VALUES (?, ?, ?, ?, 0, 0) RETURNING id",
	), comment.TaskID, comment.Sender, comment.Content, comment.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("AddComment: %w", err)
	}
	return id, nil
}

// FlagComment sets one of the comment flags to 1. Flags are never cleared.
func (s *Store) FlagComment(ctx context.Context, id int64, flag types.CommentFlag) (int64, error) {
	switch flag {
	case types.FlagRecalled, types.FlagBlocked:
	default:
		return 0, fmt.Errorf("FlagComment: unknown flag %q", flag)
	}

	// flag is one of two known column names, never caller input.
	query := fmt.Sprintf("UPDATE comments SET %s = 1 WHERE id = ?", flag)
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), id)
	if err != nil {
		return 0, fmt.Errorf("FlagComment: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("FlagComment: rows affected: %w", err)
	}
	return affected, nil
}
