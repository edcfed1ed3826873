// Package types holds the shared data structures used across the
// application: the flat rows the database hands back, the nested
// documents the API returns, and the request payloads it accepts.
// Keeping them in one place prevents import cycles between handlers,
// storage, and the aggregation code.
package types

// ─────────────────────────────────────────────────────────────────────────────
// Rows: one struct per table, mapped by sqlx through the db:"..." tags.
// Nullable TEXT columns are pointers so NULL survives the round-trip.
// ─────────────────────────────────────────────────────────────────────────────

// StudentRow is a row of the students table.
type StudentRow struct {
	Account string  `db:"account"`
	Name    string  `db:"name"`
	School  *string `db:"school"`
	Class   *string `db:"class"`
	Email   *string `db:"email"`
}

// TaskRow is a row of the tasks table.
type TaskRow struct {
	ID             int64   `db:"id"`
	StudentAccount string  `db:"student_account"`
	Name           *string `db:"name"`
	Status         *string `db:"status"`
	TeacherComment *string `db:"teacher_comment"`
}

// CommentRow is a row of the comments table. The two flags are stored as
// 0/1 integers.
type CommentRow struct {
	ID         int64  `db:"id"`
	TaskID     int64  `db:"task_id"`
	Sender     string `db:"sender"`
	Content    string `db:"content"`
	Timestamp  string `db:"timestamp"`
	IsRecalled int64  `db:"is_recalled"`
	IsBlocked  int64  `db:"is_blocked"`
}

// Rows is a set of flat rows from all three tables.
type Rows struct {
	Students []StudentRow
	Tasks    []TaskRow
	Comments []CommentRow
}

// CommentFlag names one of the one-way boolean columns on a comment.
type CommentFlag string

const (
	FlagRecalled CommentFlag = "is_recalled"
	FlagBlocked  CommentFlag = "is_blocked"
)

// ─────────────────────────────────────────────────────────────────────────────
// Documents: the nested shape returned by GET /students and /student-login.
// ─────────────────────────────────────────────────────────────────────────────

// StudentDocument is a student with its tasks embedded.
type StudentDocument struct {
	Account string         `json:"account"`
	Name    string         `json:"name"`
	School  *string        `json:"school"`
	Class   *string        `json:"class"`
	Email   *string        `json:"email"`
	Tasks   []TaskDocument `json:"tasks"`
}

// TaskDocument is a task with its comments embedded.
type TaskDocument struct {
	ID             int64             `json:"id"`
	Name           *string           `json:"name"`
	Status         *string           `json:"status"`
	TeacherComment *string           `json:"teacherComment"`
	Comments       []CommentDocument `json:"comments"`
}

// CommentDocument is a comment with its flags as real booleans.
type CommentDocument struct {
	ID         int64  `json:"id"`
	Sender     string `json:"sender"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	IsRecalled bool   `json:"isRecalled"`
	IsBlocked  bool   `json:"isBlocked"`
}
