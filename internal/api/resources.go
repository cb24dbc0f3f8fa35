package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Entity is one backend record. The backend owns the shape; the client only
// reads the id.
type Entity map[string]any

// ID returns the record id as text, or "" when absent.
func (e Entity) ID() string {
	switch v := e["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Resource is a REST collection with the standard CRUD verbs.
type Resource struct {
	client *Client
	// Path is the collection root, e.g. "/courses"
	Path string
	// UpdateMethod is PATCH for most collections and PUT for a few
	UpdateMethod string
}

func newResource(c *Client, path, updateMethod string) *Resource {
	return &Resource{client: c, Path: path, UpdateMethod: updateMethod}
}

// List returns every record, optionally filtered by query parameters.
func (r *Resource) List(ctx context.Context, query url.Values) ([]Entity, error) {
	return listEntities(ctx, r.client, r.Path, query)
}

// ListBy returns the records below a parent, e.g. /units/course/{id}.
func (r *Resource) ListBy(ctx context.Context, parent, parentID string) ([]Entity, error) {
	return listEntities(ctx, r.client, r.Path+"/"+parent+"/"+url.PathEscape(parentID), nil)
}

// Get returns one record.
func (r *Resource) Get(ctx context.Context, id string) (Entity, error) {
	return getEntity(ctx, r.client, r.itemPath(id))
}

// Create posts a new record and returns the backend's copy.
func (r *Resource) Create(ctx context.Context, payload any) (Entity, error) {
	return sendEntity(ctx, r.client, http.MethodPost, r.Path, payload)
}

// Update modifies a record with the collection's update verb.
func (r *Resource) Update(ctx context.Context, id string, payload any) (Entity, error) {
	method := r.UpdateMethod
	if method == "" {
		method = http.MethodPatch
	}
	return sendEntity(ctx, r.client, method, r.itemPath(id), payload)
}

// Delete removes a record.
func (r *Resource) Delete(ctx context.Context, id string) error {
	return deleteEntity(ctx, r.client, r.itemPath(id))
}

func (r *Resource) itemPath(id string) string {
	return r.Path + "/" + url.PathEscape(id)
}

func listEntities(ctx context.Context, c *Client, path string, query url.Values) ([]Entity, error) {
	resp, err := c.Request(ctx, path, &RequestOptions{Query: query})
	if err != nil {
		return nil, err
	}
	return decodeList(resp)
}

func getEntity(ctx context.Context, c *Client, path string) (Entity, error) {
	resp, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity(resp)
}

func sendEntity(ctx context.Context, c *Client, method, path string, payload any) (Entity, error) {
	resp, err := c.Request(ctx, path, &RequestOptions{Method: method, Body: payload})
	if err != nil {
		return nil, err
	}
	return decodeEntity(resp)
}

func deleteEntity(ctx context.Context, c *Client, path string) error {
	_, err := c.Request(ctx, path, &RequestOptions{Method: http.MethodDelete})
	return err
}

// decodeList accepts a bare array, a {"data": [...]} envelope, or a
// paginated {"items": [...]} object.
func decodeList(resp *Response) ([]Entity, error) {
	if !resp.JSON || len(resp.Body) == 0 {
		return []Entity{}, nil
	}

	data := resp.Data()
	var items []Entity
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var page struct {
		Items []Entity `json:"items"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	if page.Items == nil {
		return []Entity{}, nil
	}
	return page.Items, nil
}

// decodeEntity returns the record, or a {"message": text} entity for
// endpoints answering plain text.
func decodeEntity(resp *Response) (Entity, error) {
	if !resp.JSON {
		if resp.Text() == "" {
			return Entity{}, nil
		}
		return Entity{"message": resp.Text()}, nil
	}
	if len(resp.Body) == 0 {
		return Entity{}, nil
	}

	var e Entity
	if err := json.Unmarshal(resp.Data(), &e); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if e == nil {
		e = Entity{}
	}
	return e, nil
}

// Courses returns the /courses collection
func (c *Client) Courses() *Resource {
	return newResource(c, "/courses", http.MethodPatch)
}

// Units returns the /units collection; filter with ListBy("course", id)
func (c *Client) Units() *Resource {
	return newResource(c, "/units", http.MethodPatch)
}

// Lessons returns the /lessons collection; filter with ListBy("unit", id)
func (c *Client) Lessons() *Resource {
	return newResource(c, "/lessons", http.MethodPatch)
}

// LessonContents returns the /lesson-content collection
func (c *Client) LessonContents() *Resource {
	return newResource(c, "/lesson-content", http.MethodPatch)
}

// Exercises returns the /exercise collection
func (c *Client) Exercises() *Resource {
	return newResource(c, "/exercise", http.MethodPatch)
}

// VocabularySets returns the /vocabulary-sets collection
func (c *Client) VocabularySets() *Resource {
	return newResource(c, "/vocabulary-sets", http.MethodPatch)
}

// TrialLessons returns the /lead-trial-lessons collection
func (c *Client) TrialLessons() *Resource {
	return newResource(c, "/lead-trial-lessons", http.MethodPatch)
}

// ListByTeacher lists trial lessons assigned to one teacher
func (r *Resource) ListByTeacher(ctx context.Context, teacherID string) ([]Entity, error) {
	return r.ListBy(ctx, "by-teacher", teacherID)
}

// VocabularyItemsAPI is /vocabulary-items plus bulk import.
type VocabularyItemsAPI struct {
	*Resource
}

// VocabularyItems returns the /vocabulary-items collection
func (c *Client) VocabularyItems() *VocabularyItemsAPI {
	return &VocabularyItemsAPI{Resource: newResource(c, "/vocabulary-items", http.MethodPatch)}
}

// ListBySet lists the items of one vocabulary set.
func (v *VocabularyItemsAPI) ListBySet(ctx context.Context, setID string) ([]Entity, error) {
	return v.ListBy(ctx, "set", setID)
}

// BulkImport creates many items in one set.
func (v *VocabularyItemsAPI) BulkImport(ctx context.Context, setID string, items []Entity) (Entity, error) {
	return sendEntity(ctx, v.client, http.MethodPost, v.Path+"/bulk", map[string]any{
		"setId": setID,
		"items": items,
	})
}
