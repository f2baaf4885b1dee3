package things

import (
	"fmt"

	"github.com/nathoo/storyrules/engine/tags"
)

// Order is the cardinality of a relationship definition. Bit 0 set means
// the subject may hold many objects; bit 1 set means an object may be held
// by many subjects.
type Order int

const (
	OneToOne   Order = 0b00
	OneToMany  Order = 0b01
	ManyToOne  Order = 0b10
	ManyToMany Order = 0b11
)

func (o Order) String() string {
	switch o {
	case OneToOne:
		return "one_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder converts the snake_case name of an order back to an Order.
func ParseOrder(s string) (Order, error) {
	for _, o := range []Order{OneToOne, OneToMany, ManyToOne, ManyToMany} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship order %q", s)
}

// Reversed returns the cardinality seen from the other end.
func (o Order) Reversed() Order {
	switch o {
	case OneToMany:
		return ManyToOne
	case ManyToOne:
		return OneToMany
	default:
		return o
	}
}

// Definition reads as "Type relates things with SubjectTag to things with
// ObjectTag". Definitions always come in pairs and each half points at the
// other through Reversed.
type Definition struct {
	Type       *tags.Tag
	SubjectTag *tags.Tag
	ObjectTag  *tags.Tag
	Order      Order
	Reversed   *Definition
}

// Name is the relationship's registered name.
func (d *Definition) Name() string {
	return d.Type.Name
}

// Define declares a relationship and its reverse, e.g.
// Define(character, "carrying", OneToMany, carryable, "carriedBy").
func Define(subjectTag *tags.Tag, name string, order Order, objectTag *tags.Tag, reverseName string) (forward, reverse *Definition) {
	forward = &Definition{
		Type:       tags.Get(name),
		SubjectTag: subjectTag,
		ObjectTag:  objectTag,
		Order:      order,
	}
	reverse = &Definition{
		Type:       tags.Get(reverseName),
		SubjectTag: objectTag,
		ObjectTag:  subjectTag,
		Order:      order.Reversed(),
	}
	forward.Reversed = reverse
	reverse.Reversed = forward
	return forward, reverse
}

// Reason classifies why a relationship is not allowed.
type Reason int

const (
	SubjectKindMismatch Reason = iota + 1
	ObjectKindMismatch
	ObjectAlreadyLinked
	SubjectAlreadyLinked
)

func (r Reason) String() string {
	switch r {
	case SubjectKindMismatch:
		return "subject kind mismatch"
	case ObjectKindMismatch:
		return "object kind mismatch"
	case ObjectAlreadyLinked:
		return "object already linked"
	case SubjectAlreadyLinked:
		return "subject already linked"
	default:
		return "unknown"
	}
}

// RelationshipError reports a relationship that would violate a kind or
// cardinality constraint. Message is narration-ready.
type RelationshipError struct {
	Reason  Reason
	Message string
}

func (e *RelationshipError) Error() string {
	return e.Message
}

// Allowed validates that subject may be related to object by def. It never
// mutates either thing.
func Allowed(subject *Thing, def *Definition, object *Thing) error {
	verb := def.Type.Description

	if !subject.Has(def.SubjectTag) {
		return &RelationshipError{
			Reason: SubjectKindMismatch,
			Message: fmt.Sprintf("%s is not %s (so cannot be %s %s)",
				subject.Name, def.SubjectTag.Description, verb, object.Name),
		}
	}

	if !object.Has(def.ObjectTag) {
		return &RelationshipError{
			Reason: ObjectKindMismatch,
			Message: fmt.Sprintf("%s is not %s (so %s cannot be %s it)",
				object.Name, def.ObjectTag.Description, subject.Name, verb),
		}
	}

	// An object may only be held by one subject.
	if def.Order == OneToMany || def.Order == OneToOne {
		for _, r := range object.Relationships {
			if r.Type == def.Reversed.Type {
				return &RelationshipError{
					Reason: ObjectAlreadyLinked,
					Message: fmt.Sprintf("%s is already %s %s (so %s cannot be %s it)",
						r.Other.Name, verb, object.Name, subject.Name, verb),
				}
			}
		}
	}

	// A subject may only hold one object.
	if def.Order == ManyToOne || def.Order == OneToOne {
		for _, r := range subject.Relationships {
			if r.Type == def.Type {
				return &RelationshipError{
					Reason: SubjectAlreadyLinked,
					Message: fmt.Sprintf("%s is already %s %s (so cannot be %s %s)",
						subject.Name, verb, r.Other.Name, verb, object.Name),
				}
			}
		}
	}

	return nil
}

// Make relates subject to object if Allowed permits it. On failure neither
// thing is modified.
func Make(subject *Thing, def *Definition, object *Thing) (Relationship, error) {
	if err := Allowed(subject, def, object); err != nil {
		return Relationship{}, err
	}
	return Relate(subject, def, object), nil
}

// Relate records the relationship on both things without validation.
func Relate(subject *Thing, def *Definition, object *Thing) Relationship {
	forward := Relationship{Type: def.Type, Other: object}
	subject.Relationships = append(subject.Relationships, forward)
	object.Relationships = append(object.Relationships, Relationship{
		Type:  def.Reversed.Type,
		Other: subject,
	})
	return forward
}

// Remove deletes the first def relationship from subject (to object, if
// given) together with its mirrored record. Missing records are a no-op.
func Remove(subject *Thing, def *Definition, object *Thing) {
	var pattern *ObjectContext
	if object != nil {
		pattern = &ObjectContext{Object: object}
	}
	RemoveMatching(subject, def, pattern)
}

// RemoveMatching deletes the first def relationship from subject whose other
// thing satisfies pattern, matched as in Find, together with its mirrored
// record. A nil pattern matches any other thing.
func RemoveMatching(subject *Thing, def *Definition, pattern *ObjectContext) {
	i := -1
	for k, r := range subject.Relationships {
		if r.Type == def.Type && (pattern == nil || ObjectAllows(*pattern, ObjectContext{Object: r.Other})) {
			i = k
			break
		}
	}
	if i < 0 {
		return
	}
	other := subject.Relationships[i].Other
	subject.Relationships = removeAt(subject.Relationships, i)

	if j := indexOf(other, def.Reversed.Type, subject); j >= 0 {
		other.Relationships = removeAt(other.Relationships, j)
	}
}

// Find returns the first relationship of the given type on subject whose
// other thing satisfies pattern. A nil pattern matches any other thing.
func Find(subject *Thing, relType *tags.Tag, pattern *ObjectContext) (Relationship, bool) {
	for _, r := range subject.Relationships {
		if r.Type != relType {
			continue
		}
		if pattern == nil || ObjectAllows(*pattern, ObjectContext{Object: r.Other}) {
			return r, true
		}
	}
	return Relationship{}, false
}

// FindAll returns every relationship of the given type on subject, in
// insertion order.
func FindAll(subject *Thing, relType *tags.Tag) []Relationship {
	var out []Relationship
	for _, r := range subject.Relationships {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

// DescribeRelationship narrates one record, e.g. "bob is currently carrying rope".
func DescribeRelationship(t *Thing, r Relationship) string {
	return fmt.Sprintf("%s is currently %s %s", t.Name, r.Type.Description, r.Other.Name)
}

// DescribeDefinition narrates a definition's cardinality, e.g.
// "a character thing can be carrying many carryable things".
func DescribeDefinition(def *Definition) string {
	subjectPlural := def.Order&ManyToOne != 0
	objectPlural := def.Order&OneToMany != 0
	return fmt.Sprintf("%s %s %s can be %s %s %s %s",
		determiner(subjectPlural), def.SubjectTag.Description, noun(subjectPlural),
		def.Type.Description,
		determiner(objectPlural), def.ObjectTag.Description, noun(objectPlural))
}

func determiner(plural bool) string {
	if plural {
		return "many"
	}
	return "a"
}

func noun(plural bool) string {
	if plural {
		return "things"
	}
	return "thing"
}

func indexOf(t *Thing, relType *tags.Tag, other *Thing) int {
	for i, r := range t.Relationships {
		if r.Type == relType && (other == nil || r.Other == other) {
			return i
		}
	}
	return -1
}

func removeAt(rs []Relationship, i int) []Relationship {
	out := make([]Relationship, 0, len(rs)-1)
	out = append(out, rs[:i]...)
	return append(out, rs[i+1:]...)
}
