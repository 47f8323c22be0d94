package snippet

import (
	"fmt"
	"sort"
	"time"
)

// Field names a Snippet attribute that predicates and orderings refer to.
type Field string

const (
	FieldID        Field = "id"
	FieldTitle     Field = "title"
	FieldLanguage  Field = "language"
	FieldIsPrivate Field = "is_private"
	FieldContent   Field = "content"
	FieldCreatedAt Field = "created_at"
	FieldExpiresAt Field = "expires_at"
)

// Predicate is a filter a store evaluates during Scan. The set of predicates
// is closed so every store can translate it into its native query language.
type Predicate interface {
	Match(s *Snippet) bool
	validate() error
}

// Eq matches records whose Field equals Value. Value is a bool for
// FieldIsPrivate and a string for the text fields; a nil optional field
// never equals anything.
type Eq struct {
	Field Field
	Value any
}

// IsNull matches records whose optional Field is unset.
type IsNull struct {
	Field Field
}

// After matches records whose time Field is set and strictly later than Time.
type After struct {
	Field Field
	Time  time.Time
}

// Before matches records whose time Field is set and strictly earlier than Time.
type Before struct {
	Field Field
	Time  time.Time
}

// And matches when every member matches. An empty And matches everything.
type And []Predicate

// Or matches when at least one member matches. An empty Or matches nothing.
type Or []Predicate

func (p Eq) Match(s *Snippet) bool {
	switch p.Field {
	case FieldIsPrivate:
		v, ok := p.Value.(bool)
		return ok && s.IsPrivate == v
	case FieldID:
		v, ok := p.Value.(string)
		return ok && s.ID == v
	case FieldContent:
		v, ok := p.Value.(string)
		return ok && s.Content == v
	case FieldTitle:
		return optionalEquals(s.Title, p.Value)
	case FieldLanguage:
		return optionalEquals(s.Language, p.Value)
	}
	return false
}

func (p Eq) validate() error {
	switch p.Field {
	case FieldIsPrivate:
		if _, ok := p.Value.(bool); !ok {
			return fmt.Errorf("%w: %s needs a bool value", ErrUnsupportedQuery, p.Field)
		}
	case FieldID, FieldContent, FieldTitle, FieldLanguage:
		if _, ok := p.Value.(string); !ok {
			return fmt.Errorf("%w: %s needs a string value", ErrUnsupportedQuery, p.Field)
		}
	default:
		return fmt.Errorf("%w: eq on %q", ErrUnsupportedQuery, p.Field)
	}
	return nil
}

func (p IsNull) Match(s *Snippet) bool {
	switch p.Field {
	case FieldTitle:
		return s.Title == nil
	case FieldLanguage:
		return s.Language == nil
	case FieldExpiresAt:
		return s.ExpiresAt == nil
	}
	return false
}

func (p IsNull) validate() error {
	switch p.Field {
	case FieldTitle, FieldLanguage, FieldExpiresAt:
		return nil
	}
	return fmt.Errorf("%w: %q is not optional", ErrUnsupportedQuery, p.Field)
}

func (p After) Match(s *Snippet) bool {
	t, ok := timeValue(s, p.Field)
	return ok && t.After(p.Time)
}

func (p After) validate() error { return validateTimeField(p.Field) }

func (p Before) Match(s *Snippet) bool {
	t, ok := timeValue(s, p.Field)
	return ok && t.Before(p.Time)
}

func (p Before) validate() error { return validateTimeField(p.Field) }

func (p And) Match(s *Snippet) bool {
	for _, m := range p {
		if !m.Match(s) {
			return false
		}
	}
	return true
}

func (p And) validate() error { return validateAll(p) }

func (p Or) Match(s *Snippet) bool {
	for _, m := range p {
		if m.Match(s) {
			return true
		}
	}
	return false
}

func (p Or) validate() error { return validateAll(p) }

// Validate checks that a predicate only uses field/value combinations every
// store understands. A nil predicate is valid and matches everything.
func Validate(p Predicate) error {
	if p == nil {
		return nil
	}
	return p.validate()
}

func validateAll(ps []Predicate) error {
	for _, p := range ps {
		if p == nil {
			return fmt.Errorf("%w: nil member", ErrUnsupportedQuery)
		}
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateTimeField(f Field) error {
	if f == FieldCreatedAt || f == FieldExpiresAt {
		return nil
	}
	return fmt.Errorf("%w: %q is not a time field", ErrUnsupportedQuery, f)
}

func timeValue(s *Snippet, f Field) (time.Time, bool) {
	switch f {
	case FieldCreatedAt:
		return s.CreatedAt, true
	case FieldExpiresAt:
		if s.ExpiresAt == nil {
			return time.Time{}, false
		}
		return *s.ExpiresAt, true
	}
	return time.Time{}, false
}

func optionalEquals(p *string, v any) bool {
	want, ok := v.(string)
	return ok && p != nil && *p == want
}

// Order sorts scan results by Field. Records with equal Field values are
// ordered by ID in the same direction, so repeated scans are stable.
type Order struct {
	Field      Field
	Descending bool
}

// ByCreatedDesc is the newest-first ordering used by the recent listing.
var ByCreatedDesc = Order{Field: FieldCreatedAt, Descending: true}

// Key returns the effective sort field; the zero Order sorts by creation time.
func (o Order) Key() Field {
	if o.Field == "" {
		return FieldCreatedAt
	}
	return o.Field
}

// Validate reports whether the order can be applied.
func (o Order) Validate() error {
	switch o.Key() {
	case FieldCreatedAt, FieldID:
		return nil
	}
	return fmt.Errorf("%w: cannot order by %q", ErrUnsupportedQuery, o.Field)
}

// Less reports whether a sorts before b.
func (o Order) Less(a, b *Snippet) bool {
	if o.Key() == FieldCreatedAt && !a.CreatedAt.Equal(b.CreatedAt) {
		if o.Descending {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if o.Descending {
		return a.ID > b.ID
	}
	return a.ID < b.ID
}

// Query bundles the arguments of a store scan.
type Query struct {
	Where Predicate
	Order Order
	Limit int
}

// Validate checks the predicate and ordering of q.
func (q Query) Validate() error {
	if err := Validate(q.Where); err != nil {
		return err
	}
	return q.Order.Validate()
}

// Matches evaluates the query predicate against s.
func (q Query) Matches(s *Snippet) bool {
	return q.Where == nil || q.Where.Match(s)
}

// Apply filters, sorts and truncates records in process. Stores without a
// native query engine use it to implement Scan. The input slice is not
// modified.
func (q Query) Apply(records []*Snippet) []*Snippet {
	if q.Limit <= 0 {
		return []*Snippet{}
	}
	out := make([]*Snippet, 0, len(records))
	for _, s := range records {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return q.Order.Less(out[i], out[j]) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
