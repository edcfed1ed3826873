package types

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
)

// UpsertStudentRequest is the body of POST/PUT /students.
type UpsertStudentRequest struct {
	Account LooseString  `json:"account" validate:"required"`
	Name    LooseString  `json:"name"    validate:"required"`
	School  *LooseString `json:"school"`
	Class   *LooseString `json:"class"`
	Email   *LooseString `json:"email"`
	Tasks   []TaskInput  `json:"tasks"`
}

// TaskInput is one task inside an upsert. Entries whose ID resolves to
// zero are skipped.
type TaskInput struct {
	ID             LooseInt     `json:"id"`
	Name           *LooseString `json:"name"`
	Status         *LooseString `json:"status"`
	TeacherComment *LooseString `json:"teacherComment"`
}

// DeleteStudentRequest is the body of DELETE /students.
type DeleteStudentRequest struct {
	Account LooseString `json:"account" validate:"required"`
}

// LoginRequest is the body of POST /student-login.
type LoginRequest struct {
	School  LooseString `json:"school"`
	Class   LooseString `json:"class"`
	Account LooseString `json:"account"`
}

// CommentRequest is the body of POST /comment. Which fields matter
// depends on Action.
type CommentRequest struct {
	Action string `json:"action"`

	TaskID    LooseInt    `json:"task_id"`
	Sender    LooseString `json:"sender"`
	Content   LooseString `json:"content"`
	Timestamp LooseString `json:"timestamp"`

	CommentID LooseInt `json:"comment_id"`
}

// LooseInt accepts a JSON number, a numeric string, or null and keeps the
// leading integer part: 7, "7", "7abc" and 7.9 all become 7. Anything
// without leading digits becomes 0 instead of failing the whole body.
type LooseInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	*n = LooseInt(leadingInt(string(data)))
	return nil
}

// leadingInt parses an optional sign followed by decimal digits from the
// start of s, ignoring leading whitespace and whatever follows the digits.
func leadingInt(s string) int64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0
	}
	v, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// LooseString accepts a JSON string, number or boolean and keeps its text:
// 12345 becomes "12345" and true becomes "true". Student numbers and epoch
// timestamps often arrive unquoted. null leaves the value untouched;
// objects and arrays are rejected.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	case '{', '[':
		return &json.UnmarshalTypeError{Value: "object or array", Type: reflect.TypeOf(*s)}
	}
	*s = LooseString(data)
	return nil
}

// Ptr returns the value as a *string, nil when s is nil.
func (s *LooseString) Ptr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
