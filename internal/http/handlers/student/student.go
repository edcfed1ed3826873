// Package student contains the HTTP handlers for the Student resource:
// the full listing, upsert, delete, and the school/class/account login.
//
// Each exported function is a factory: it receives the storage once at
// startup and returns the handler that runs on every request.
//
//	r.Get("/students", adapt(student.GetList(store)))
package student

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-tracker/internal/aggregate"
	"github.com/aanand-mishra/student-tracker/internal/http/handlers"
	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/types"
	"github.com/aanand-mishra/student-tracker/internal/utils/response"
)

// Response messages.
const (
	msgSaved         = "學生資料已儲存。"
	msgDeleted       = "學生資料已刪除。"
	msgDeleteMissing = "查無此學號或資料已刪除。"
	msgLoginFailed   = "登入失敗：找不到符合的學生資料。"
)

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /students
// Returns every student, keyed by account, with tasks and comments nested.
//
// Success response (200 OK):
//
//	{ "s1": { "account": "s1", "name": "Alice", ..., "tasks": [ { ..., "comments": [] } ] } }
//
// Any storage failure is a 500 and no partial data is returned.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		slog.Info("listing students")

		rows, err := store.Snapshot(r.Context())
		if err != nil {
			slog.Error("error listing students", slog.String("error", err.Error()))
			return fmt.Errorf("資料庫讀取失敗: %w", err)
		}

		return response.WriteJSON(w, http.StatusOK, aggregate.Students(rows))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Upsert handles POST and PUT /students
// Creates the student or updates it in place, and replaces its task list
// with the supplied one. Tasks whose id is missing, zero or non-numeric
// are skipped.
//
// Request body (JSON):
//
//	{ "account": "s1", "name": "Alice", "school": "North", "class": "3A",
//	  "email": "a@x.io", "tasks": [ { "id": 1, "name": "HW1", "status": "open", "teacherComment": "" } ] }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, missing account or name
//	500 Internal     — database error (nothing is applied)
//
// ─────────────────────────────────────────────────────────────────────────────
func Upsert(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req types.UpsertStudentRequest
		if err := handlers.DecodeAndValidate(r, &req); err != nil {
			return err
		}

		account := string(req.Account)
		slog.Info("upserting student",
			slog.String("account", account),
			slog.Int("tasks", len(req.Tasks)))

		student := types.StudentRow{
			Account: account,
			Name:    string(req.Name),
			School:  req.School.Ptr(),
			Class:   req.Class.Ptr(),
			Email:   req.Email.Ptr(),
		}

		if err := store.UpsertStudent(r.Context(), student, taskRows(account, req.Tasks)); err != nil {
			slog.Error("error upserting student",
				slog.String("account", account),
				slog.String("error", err.Error()))
			return err
		}

		return response.WriteJSON(w, http.StatusOK, response.Message{Message: msgSaved})
	}
}

// taskRows keeps the inputs whose id resolves to a non-zero integer.
func taskRows(account string, in []types.TaskInput) []types.TaskRow {
	rows := make([]types.TaskRow, 0, len(in))
	for _, t := range in {
		if t.ID == 0 {
			slog.Debug("skipping task without usable id", slog.String("account", account))
			continue
		}
		rows = append(rows, types.TaskRow{
			ID:             int64(t.ID),
			StudentAccount: account,
			Name:           t.Name.Ptr(),
			Status:         t.Status.Ptr(),
			TeacherComment: t.TeacherComment.Ptr(),
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /students
// Removes the student; its tasks and their comments go with it.
//
// Request body (JSON):
//
//	{ "account": "s1" }
//
// Error responses:
//
//	400 Bad Request  — missing account
//	404 Not Found    — no such account
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req types.DeleteStudentRequest
		if err := handlers.DecodeAndValidate(r, &req); err != nil {
			return err
		}

		account := string(req.Account)
		slog.Info("deleting student", slog.String("account", account))

		affected, err := store.DeleteStudent(r.Context(), account)
		if err != nil {
			slog.Error("error deleting student",
				slog.String("account", account),
				slog.String("error", err.Error()))
			return err
		}
		if affected == 0 {
			return response.NotFound(msgDeleteMissing)
		}

		return response.WriteJSON(w, http.StatusOK, response.Message{Message: msgDeleted})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /student-login
// Finds the student whose school, class and account all match exactly and
// returns that single student document (not wrapped in a map).
//
// Request body (JSON):
//
//	{ "school": "North", "class": "3A", "account": "s1" }
//
// Error responses:
//
//	404 Not Found    — no student matches all three fields
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req types.LoginRequest
		if err := handlers.DecodeJSON(r, &req); err != nil {
			return err
		}

		ctx := r.Context()
		slog.Info("student login", slog.String("account", string(req.Account)))

		student, err := store.FindStudent(ctx, string(req.School), string(req.Class), string(req.Account))
		if errors.Is(err, storage.ErrNotFound) {
			return response.NotFound(msgLoginFailed)
		}
		if err != nil {
			return err
		}

		tasks, err := store.ListTasks(ctx, student.Account)
		if err != nil {
			return err
		}

		var comments []types.CommentRow
		if len(tasks) > 0 {
			ids := make([]int64, len(tasks))
			for i, t := range tasks {
				ids[i] = t.ID
			}
			if comments, err = store.ListComments(ctx, ids); err != nil {
				return err
			}
		}

		return response.WriteJSON(w, http.StatusOK, aggregate.Student(student, tasks, comments))
	}
}
