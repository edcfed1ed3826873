// Package comment handles POST /comment, which applies one of three
// actions to a task's comments: ADD a new comment, RECALL one, or BLOCK
// one. RECALL and BLOCK only ever set their flag; nothing clears it.
package comment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-tracker/internal/http/handlers"
	"github.com/aanand-mishra/student-tracker/internal/metrics"
	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/types"
	"github.com/aanand-mishra/student-tracker/internal/utils/response"
)

// Action is the closed set of comment actions.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionRecall Action = "RECALL"
	ActionBlock  Action = "BLOCK"
)

const (
	msgMissingAction = "缺少 action 參數"
	msgInvalidAction = "無效的 action"
)

// Result is the success body for every action.
type Result struct {
	Message   string `json:"message"`
	CommentID int64  `json:"commentId"`
}

// applyFunc runs one action. Its errors, validation included, surface as 500.
type applyFunc func(r *http.Request, store storage.Storage, req types.CommentRequest) (Result, error)

var actions = map[Action]applyFunc{
	ActionAdd:    add,
	ActionRecall: flag(types.FlagRecalled, "留言已收回。"),
	ActionBlock:  flag(types.FlagBlocked, "留言已封鎖。"),
}

// ─────────────────────────────────────────────────────────────────────────────
// Handle handles POST /comment
//
// Request bodies (JSON):
//
//	{ "action": "ADD", "task_id": 1, "sender": "t1", "content": "good", "timestamp": "2024-01-01" }
//	{ "action": "RECALL", "comment_id": 7 }
//	{ "action": "BLOCK",  "comment_id": 7 }
//
// Success response (200 OK):
//
//	{ "message": "...", "commentId": 7 }
//
// Error responses:
//
//	400 Bad Request  — malformed JSON, missing or unknown action
//	500 Internal     — missing action fields or database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Handle(store storage.Storage) handlers.Func {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req types.CommentRequest
		if err := handlers.DecodeJSON(r, &req); err != nil {
			return err
		}

		if req.Action == "" {
			return response.BadRequest(msgMissingAction)
		}
		action := Action(req.Action)
		apply, ok := actions[action]
		if !ok {
			return response.BadRequest(msgInvalidAction)
		}

		slog.Info("applying comment action", slog.String("action", req.Action))

		result, err := apply(r, store, req)
		if err != nil {
			slog.Error("comment action failed",
				slog.String("action", req.Action),
				slog.String("error", err.Error()))
			return err
		}

		metrics.CountCommentAction(string(action))
		return response.WriteJSON(w, http.StatusOK, result)
	}
}

func add(r *http.Request, store storage.Storage, req types.CommentRequest) (Result, error) {
	if req.TaskID == 0 || req.Sender == "" || req.Content == "" || req.Timestamp == "" {
		return Result{}, errors.New("缺少必要欄位: task_id, sender, content, timestamp")
	}

	id, err := store.AddComment(r.Context(), types.CommentRow{
		TaskID:    int64(req.TaskID),
		Sender:    string(req.Sender),
		Content:   string(req.Content),
		Timestamp: string(req.Timestamp),
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Message: "留言已新增。", CommentID: id}, nil
}

// flag builds the RECALL/BLOCK action. No existence check: an unknown id
// succeeds with nothing changed.
func flag(f types.CommentFlag, message string) applyFunc {
	return func(r *http.Request, store storage.Storage, req types.CommentRequest) (Result, error) {
		if req.CommentID == 0 {
			return Result{}, errors.New("缺少必要欄位: comment_id")
		}

		if _, err := store.FlagComment(r.Context(), int64(req.CommentID), f); err != nil {
			return Result{}, err
		}

		return Result{Message: message, CommentID: int64(req.CommentID)}, nil
	}
}
