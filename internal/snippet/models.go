package snippet

import "time"

// Snippet is the persistent paste record. Records are written once and never
// updated; expiry is decided at read time by comparing ExpiresAt with the clock.
type Snippet struct {
	ID        string     `json:"id" bson:"_id"`
	Title     *string    `json:"title,omitempty" bson:"title,omitempty"`
	Language  *string    `json:"language,omitempty" bson:"language,omitempty"`
	IsPrivate bool       `json:"isPrivate" bson:"isPrivate"`
	Content   string     `json:"content" bson:"content"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// ExpiredAt reports whether the snippet is expired at instant now.
// A snippet whose ExpiresAt equals now is still readable.
func (s *Snippet) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// CreateInput carries the caller-supplied fields for a new snippet.
// Content is a pointer so that a missing payload can be told apart from an
// empty one.
type CreateInput struct {
	Title      *string
	Language   *string
	IsPrivate  bool
	Content    *string
	TTLMinutes *int
}

// View is the read model handed back to callers of the service.
type View struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title,omitempty"`
	Language  *string    `json:"language,omitempty"`
	IsPrivate bool       `json:"isPrivate"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ToView copies a stored record into a View. Pointer fields are cloned so the
// view never aliases storage-owned memory.
func ToView(s *Snippet) *View {
	return &View{
		ID:        s.ID,
		Title:     cloneString(s.Title),
		Language:  cloneString(s.Language),
		IsPrivate: s.IsPrivate,
		Content:   s.Content,
		CreatedAt: s.CreatedAt,
		ExpiresAt: cloneTime(s.ExpiresAt),
	}
}

// Clone returns a deep copy of s.
func (s *Snippet) Clone() *Snippet {
	c := *s
	c.Title = cloneString(s.Title)
	c.Language = cloneString(s.Language)
	c.ExpiresAt = cloneTime(s.ExpiresAt)
	return &c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
