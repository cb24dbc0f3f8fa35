// Package session owns the teacher's authentication lifecycle: login,
// logout, proactive refresh and validation before protected commands.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Session is the authenticated state. The zero value is anonymous.
type Session struct {
	AccessToken  string       `json:"-" yaml:"-"`
	RefreshToken string       `json:"-" yaml:"-"`
	SessionID    string       `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	User         *UserProfile `json:"user,omitempty" yaml:"user,omitempty"`
}

// Authenticated reports whether both an access token and a user are held.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// CanRefresh reports whether the refresh credentials are both present.
func (s Session) CanRefresh() bool {
	return s.RefreshToken != "" && s.SessionID != ""
}

// UserProfile is the backend's profile payload. The shape is owned by the
// backend; accessors read the fields the client needs and the raw JSON is
// preserved as received.
type UserProfile struct {
	raw    json.RawMessage
	fields map[string]any
}

// ParseUserProfile decodes a profile. The payload must be a JSON object.
func ParseUserProfile(raw []byte) (*UserProfile, error) {
	trimmed := bytes.TrimSpace(raw)
	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("invalid user profile: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("invalid user profile: null")
	}
	return &UserProfile{raw: append(json.RawMessage(nil), trimmed...), fields: fields}, nil
}

// Raw returns the profile JSON.
func (u *UserProfile) Raw() json.RawMessage {
	return u.raw
}

// Fields returns a shallow copy of the decoded profile.
func (u *UserProfile) Fields() map[string]any {
	out := make(map[string]any, len(u.fields))
	for k, v := range u.fields {
		out[k] = v
	}
	return out
}

// MarshalJSON emits the profile unchanged.
func (u *UserProfile) MarshalJSON() ([]byte, error) {
	return u.raw, nil
}

// MarshalYAML renders the decoded fields.
func (u *UserProfile) MarshalYAML() (any, error) {
	return u.fields, nil
}

// Merge returns a profile with partial's top-level keys overriding u's.
func (u *UserProfile) Merge(partial map[string]any) (*UserProfile, error) {
	merged := make(map[string]any, len(partial))
	if u != nil {
		merged = u.Fields()
	}
	for k, v := range partial {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user profile: %w", err)
	}
	// Round-trip so fields hold JSON-decoded types.
	return ParseUserProfile(raw)
}

// nested returns the embedded "user" object that the profile endpoint wraps
// around the account fields.
func (u *UserProfile) nested() map[string]any {
	if inner, ok := u.fields["user"].(map[string]any); ok {
		return inner
	}
	return nil
}

// lookup returns key from the nested user object, falling back to the top
// level.
func (u *UserProfile) lookup(key string) any {
	if inner := u.nested(); inner != nil {
		if v, ok := inner[key]; ok && v != nil {
			return v
		}
	}
	return u.fields[key]
}

// ID returns the user id as text.
func (u *UserProfile) ID() string {
	if u == nil {
		return ""
	}
	return scalar(u.lookup("id"))
}

// Role returns the first role, or "".
func (u *UserProfile) Role() string {
	if u == nil {
		return ""
	}
	roles, ok := u.fields["roles"].([]any)
	if !ok {
		if inner := u.nested(); inner != nil {
			roles, _ = inner["roles"].([]any)
		}
	}
	if len(roles) == 0 {
		return ""
	}
	if m, ok := roles[0].(map[string]any); ok {
		return scalar(m["name"])
	}
	return scalar(roles[0])
}

// DisplayName returns "first last", else the username, else the name.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	first, last := scalar(u.lookup("first_name")), scalar(u.lookup("last_name"))
	if first != "" && last != "" {
		return first + " " + last
	}
	if username := scalar(u.lookup("username")); username != "" {
		return username
	}
	return scalar(u.fields["name"])
}

// Phone returns the phone number, or "".
func (u *UserProfile) Phone() string {
	if u == nil {
		return ""
	}
	return scalar(u.lookup("phone"))
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return fmt.Sprintf("%.0f", x)
	case bool:
		return fmt.Sprint(x)
	default:
		return ""
	}
}
