package api

import (
	"context"
	"net/http"
	"net/url"
)

// GroupsAPI is /groups plus membership, assignment and statistics calls.
type GroupsAPI struct {
	*Resource
}

// Groups returns the /groups collection
func (c *Client) Groups() *GroupsAPI {
	return &GroupsAPI{Resource: newResource(c, "/groups", http.MethodPatch)}
}

// ListByTeacher lists the groups taught by one teacher.
func (g *GroupsAPI) ListByTeacher(ctx context.Context, teacherID string) ([]Entity, error) {
	return g.ListBy(ctx, "teacher", teacherID)
}

// Students lists the members of a group.
func (g *GroupsAPI) Students(ctx context.Context, groupID string) ([]Entity, error) {
	return listEntities(ctx, g.client, g.itemPath(groupID)+"/students", nil)
}

// AddStudent adds a student to a group.
func (g *GroupsAPI) AddStudent(ctx context.Context, groupID string, payload any) (Entity, error) {
	return sendEntity(ctx, g.client, http.MethodPost, g.itemPath(groupID)+"/students", payload)
}

// RemoveStudent removes a student from a group.
func (g *GroupsAPI) RemoveStudent(ctx context.Context, groupID, studentID string) error {
	return deleteEntity(ctx, g.client, g.itemPath(groupID)+"/students/"+url.PathEscape(studentID))
}

// Stats returns progress statistics for a group.
func (g *GroupsAPI) Stats(ctx context.Context, groupID string) (Entity, error) {
	return getEntity(ctx, g.client, g.itemPath(groupID)+"/stats")
}

// AssignedUnits lists the units assigned to a group.
func (g *GroupsAPI) AssignedUnits(ctx context.Context, groupID string) ([]Entity, error) {
	return g.client.GroupAssignedUnits().ListByGroup(ctx, groupID)
}

// AssignUnits assigns content to a group.
func (g *GroupsAPI) AssignUnits(ctx context.Context, payload any) (Entity, error) {
	return g.client.GroupAssignedUnits().Create(ctx, payload)
}

// RemoveAssignment removes a content assignment from a group.
func (g *GroupsAPI) RemoveAssignment(ctx context.Context, groupID, assignmentID string) error {
	return deleteEntity(ctx, g.client, g.itemPath(groupID)+"/assignments/"+url.PathEscape(assignmentID))
}

// AssignmentsAPI covers /group-assigned-units and /group-assigned-lessons.
type AssignmentsAPI struct {
	*Resource
}

// GroupAssignedUnits returns the /group-assigned-units collection
func (c *Client) GroupAssignedUnits() *AssignmentsAPI {
	return &AssignmentsAPI{Resource: newResource(c, "/group-assigned-units", http.MethodPut)}
}

// GroupAssignedLessons returns the /group-assigned-lessons collection
func (c *Client) GroupAssignedLessons() *AssignmentsAPI {
	return &AssignmentsAPI{Resource: newResource(c, "/group-assigned-lessons", http.MethodPut)}
}

// ListByGroup lists the assignments of one group.
func (a *AssignmentsAPI) ListByGroup(ctx context.Context, groupID string) ([]Entity, error) {
	return a.ListBy(ctx, "group", groupID)
}
