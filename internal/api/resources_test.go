package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulsenest/teacherpanel/internal/storage"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type callLog struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (l *callLog) add(c recordedCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) All() []recordedCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedCall(nil), l.calls...)
}

// recorder answers every call with a JSON body and keeps the request line.
func recorder(t *testing.T, reply string) (*Client, *callLog) {
	t.Helper()
	rec := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.add(recordedCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return newTestClient(srv, storage.NewMemoryStore()), rec
}

func TestResource_CRUD(t *testing.T) {
	client, calls := recorder(t, `{"id":5,"title":"Grammar"}`)
	ctx := context.Background()
	courses := client.Courses()

	got, err := courses.Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "5", got.ID())

	_, err = courses.Create(ctx, map[string]string{"title": "Grammar"})
	require.NoError(t, err)
	_, err = courses.Update(ctx, "5", map[string]string{"title": "Grammar II"})
	require.NoError(t, err)
	require.NoError(t, courses.Delete(ctx, "5"))

	want := []recordedCall{
		{Method: http.MethodGet, Path: "/courses/5"},
		{Method: http.MethodPost, Path: "/courses", Body: `{"title":"Grammar"}`},
		{Method: http.MethodPatch, Path: "/courses/5", Body: `{"title":"Grammar II"}`},
		{Method: http.MethodDelete, Path: "/courses/5"},
	}
	assert.Equal(t, want, calls.All())
}

func TestResource_ListShapes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"data envelope", `{"data":[{"id":1}]}`, 1},
		{"paginated", `{"items":[{"id":1},{"id":2},{"id":3}],"total":3}`, 3},
		{"empty object", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := recorder(t, tt.reply)
			items, err := client.Units().List(context.Background(), nil)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestResource_Paths(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		call func(c *Client) error
		want recordedCall
	}{
		{"units by course", func(c *Client) error { _, err := c.Units().ListBy(ctx, "course", "3"); return err },
			recordedCall{Method: "GET", Path: "/units/course/3"}},
		{"lessons by unit", func(c *Client) error { _, err := c.Lessons().ListBy(ctx, "unit", "4"); return err },
			recordedCall{Method: "GET", Path: "/lessons/unit/4"}},
		{"exercises by lesson", func(c *Client) error { _, err := c.Exercises().ListBy(ctx, "lesson", "9"); return err },
			recordedCall{Method: "GET", Path: "/exercise/lesson/9"}},
		{"lesson content by lesson", func(c *Client) error { _, err := c.LessonContents().ListBy(ctx, "lesson", "9"); return err },
			recordedCall{Method: "GET", Path: "/lesson-content/lesson/9"}},
		{"vocabulary items by set", func(c *Client) error { _, err := c.VocabularyItems().ListBySet(ctx, "2"); return err },
			recordedCall{Method: "GET", Path: "/vocabulary-items/set/2"}},
		{"trial lessons by teacher", func(c *Client) error { _, err := c.TrialLessons().ListByTeacher(ctx, "7"); return err },
			recordedCall{Method: "GET", Path: "/lead-trial-lessons/by-teacher/7"}},
		{"groups by teacher", func(c *Client) error { _, err := c.Groups().ListByTeacher(ctx, "7"); return err },
			recordedCall{Method: "GET", Path: "/groups/teacher/7"}},
		{"group students", func(c *Client) error { _, err := c.Groups().Students(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/groups/1/students"}},
		{"group remove student", func(c *Client) error { return c.Groups().RemoveStudent(ctx, "1", "8") },
			recordedCall{Method: "DELETE", Path: "/groups/1/students/8"}},
		{"group stats", func(c *Client) error { _, err := c.Groups().Stats(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/groups/1/stats"}},
		{"group assigned units", func(c *Client) error { _, err := c.Groups().AssignedUnits(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/group-assigned-units/group/1"}},
		{"group remove assignment", func(c *Client) error { return c.Groups().RemoveAssignment(ctx, "1", "30") },
			recordedCall{Method: "DELETE", Path: "/groups/1/assignments/30"}},
		{"assigned lesson update uses PUT", func(c *Client) error {
			_, err := c.GroupAssignedLessons().Update(ctx, "6", map[string]bool{"visible": true})
			return err
		}, recordedCall{Method: "PUT", Path: "/group-assigned-lessons/6", Body: `{"visible":true}`}},
		{"students by group", func(c *Client) error { _, err := c.Students().ListByGroup(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/students", Query: "group_id=1"}},
		{"student update uses PUT", func(c *Client) error {
			_, err := c.Students().Update(ctx, "8", map[string]string{"name": "Lee"})
			return err
		}, recordedCall{Method: "PUT", Path: "/students/8", Body: `{"name":"Lee"}`}},
		{"student add to group", func(c *Client) error { _, err := c.Students().AddToGroup(ctx, "8", "1"); return err },
			recordedCall{Method: "POST", Path: "/students/8/groups/1"}},
		{"student remove from group", func(c *Client) error { return c.Students().RemoveFromGroup(ctx, "8", "1") },
			recordedCall{Method: "DELETE", Path: "/students/8/groups/1"}},
		{"attendance by group", func(c *Client) error { _, err := c.Attendance().ListByGroup(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/attendance", Query: "group_id=1"}},
		{"attendance by date range", func(c *Client) error { _, err := c.Attendance().ListByDateRange(ctx, "1", from, to); return err },
			recordedCall{Method: "GET", Path: "/attendance", Query: "end_date=2025-09-30&group_id=1&start_date=2025-09-01"}},
		{"attendance stats", func(c *Client) error { _, err := c.Attendance().Stats(ctx, "1"); return err },
			recordedCall{Method: "GET", Path: "/attendance/stats/1"}},
		{"files by type", func(c *Client) error { _, err := c.Files().ListByType(ctx, "image"); return err },
			recordedCall{Method: "GET", Path: "/upload", Query: "type=image"}},
		{"file delete", func(c *Client) error { return c.Files().Delete(ctx, "f1") },
			recordedCall{Method: "DELETE", Path: "/upload/f1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, calls := recorder(t, `{}`)
			require.NoError(t, tt.call(client))
			got := calls.All()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestVocabularyItems_BulkImport(t *testing.T) {
	client, calls := recorder(t, `{"created":2}`)

	res, err := client.VocabularyItems().BulkImport(context.Background(), "2", []Entity{
		{"word": "apple"},
		{"word": "pear"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(2), res["created"])

	got := calls.All()
	require.Len(t, got, 1)
	assert.Equal(t, "/vocabulary-items/bulk", got[0].Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[0].Body), &body))
	assert.Equal(t, "2", body["setId"])
	assert.Len(t, body["items"], 2)
}

func TestAuthAPI_PasswordReset(t *testing.T) {
	client, calls := recorder(t, `{"message":"sent"}`)
	ctx := context.Background()

	_, err := client.Auth().ForgotPassword(ctx, "t@example.com")
	require.NoError(t, err)
	_, err = client.Auth().ResetPassword(ctx, ResetPasswordRequest{Token: "tok", NewPassword: "secret"})
	require.NoError(t, err)

	got := calls.All()
	require.Len(t, got, 2)
	assert.Equal(t, recordedCall{Method: "POST", Path: "/auth/forgot-password", Body: `{"email":"t@example.com"}`}, got[0])
	assert.Equal(t, recordedCall{Method: "POST", Path: "/auth/reset-password", Body: `{"token":"tok","newPassword":"secret"}`}, got[1])
}

func TestEntity_ID(t *testing.T) {
	assert.Equal(t, "7", Entity{"id": float64(7)}.ID())
	assert.Equal(t, "abc", Entity{"id": "abc"}.ID())
	assert.Equal(t, "", Entity{}.ID())
}
