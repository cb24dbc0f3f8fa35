package api

import (
	"context"
	"net/http"
	"net/url"
)

// StudentsAPI is /students; updates use PUT.
type StudentsAPI struct {
	*Resource
}

// Students returns the /students collection
func (c *Client) Students() *StudentsAPI {
	return &StudentsAPI{Resource: newResource(c, "/students", http.MethodPut)}
}

// ListByGroup lists students filtered by group.
func (s *StudentsAPI) ListByGroup(ctx context.Context, groupID string) ([]Entity, error) {
	return s.List(ctx, url.Values{"group_id": {groupID}})
}

// AddToGroup enrolls a student in a group.
func (s *StudentsAPI) AddToGroup(ctx context.Context, studentID, groupID string) (Entity, error) {
	return sendEntity(ctx, s.client, http.MethodPost, s.membershipPath(studentID, groupID), nil)
}

// RemoveFromGroup withdraws a student from a group.
func (s *StudentsAPI) RemoveFromGroup(ctx context.Context, studentID, groupID string) error {
	return deleteEntity(ctx, s.client, s.membershipPath(studentID, groupID))
}

func (s *StudentsAPI) membershipPath(studentID, groupID string) string {
	return s.itemPath(studentID) + "/groups/" + url.PathEscape(groupID)
}
