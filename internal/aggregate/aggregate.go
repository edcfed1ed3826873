// Package aggregate turns the flat students/tasks/comments rows into the
// nested documents the API returns. It is the only place the three tables
// are joined; both the full listing and the single-student login use it.
package aggregate

import "github.com/aanand-mishra/student-tracker/internal/types"

// Students builds one document per student row, keyed by account.
//
// Tasks are attached to their owner in input order and tasks whose
// student_account matches no student are dropped. Comments are attached
// to their task in input order. Every task gets a non-nil comment slice
// and every student a non-nil task slice, so they encode as [] not null.
// The input rows are never modified.
func Students(rows types.Rows) map[string]types.StudentDocument {
	comments := groupComments(rows.Comments)

	docs := make(map[string]*types.StudentDocument, len(rows.Students))
	for _, s := range rows.Students {
		docs[s.Account] = &types.StudentDocument{
			Account: s.Account,
			Name:    s.Name,
			School:  s.School,
			Class:   s.Class,
			Email:   s.Email,
			Tasks:   []types.TaskDocument{},
		}
	}

	for _, t := range rows.Tasks {
		owner, ok := docs[t.StudentAccount]
		if !ok {
			continue
		}
		taskComments := comments[t.ID]
		if taskComments == nil {
			taskComments = []types.CommentDocument{}
		}
		owner.Tasks = append(owner.Tasks, types.TaskDocument{
			ID:             t.ID,
			Name:           t.Name,
			Status:         t.Status,
			TeacherComment: t.TeacherComment,
			Comments:       taskComments,
		})
	}

	out := make(map[string]types.StudentDocument, len(docs))
	for account, doc := range docs {
		out[account] = *doc
	}
	return out
}

// Student builds the document for a single student from that student's
// row plus its tasks and comments.
func Student(student types.StudentRow, tasks []types.TaskRow, comments []types.CommentRow) types.StudentDocument {
	docs := Students(types.Rows{
		Students: []types.StudentRow{student},
		Tasks:    tasks,
		Comments: comments,
	})
	return docs[student.Account]
}

// Comment converts a stored comment row into its document form.
func Comment(c types.CommentRow) types.CommentDocument {
	return types.CommentDocument{
		ID:         c.ID,
		Sender:     c.Sender,
		Content:    c.Content,
		Timestamp:  c.Timestamp,
		IsRecalled: c.IsRecalled == 1,
		IsBlocked:  c.IsBlocked == 1,
	}
}

func groupComments(rows []types.CommentRow) map[int64][]types.CommentDocument {
	grouped := make(map[int64][]types.CommentDocument)
	for _, c := range rows {
		grouped[c.TaskID] = append(grouped[c.TaskID], Comment(c))
	}
	return grouped
}
