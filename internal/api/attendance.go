package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const attendanceDateLayout = "2006-01-02"

// AttendanceAPI is /attendance; updates use PUT.
type AttendanceAPI struct {
	*Resource
}

// Attendance returns the /attendance collection
func (c *Client) Attendance() *AttendanceAPI {
	return &AttendanceAPI{Resource: newResource(c, "/attendance", http.MethodPut)}
}

// ListByGroup lists attendance records of one group.
func (a *AttendanceAPI) ListByGroup(ctx context.Context, groupID string) ([]Entity, error) {
	return a.List(ctx, url.Values{"group_id": {groupID}})
}

// ListByDateRange lists a group's records between two dates, inclusive.
func (a *AttendanceAPI) ListByDateRange(ctx context.Context, groupID string, start, end time.Time) ([]Entity, error) {
	return a.List(ctx, url.Values{
		"group_id":   {groupID},
		"start_date": {start.Format(attendanceDateLayout)},
		"end_date":   {end.Format(attendanceDateLayout)},
	})
}

// Mark records attendance.
func (a *AttendanceAPI) Mark(ctx context.Context, payload any) (Entity, error) {
	return a.Create(ctx, payload)
}

// Stats returns attendance statistics for a group.
func (a *AttendanceAPI) Stats(ctx context.Context, groupID string) (Entity, error) {
	return getEntity(ctx, a.client, a.Path+"/stats/"+url.PathEscape(groupID))
}
