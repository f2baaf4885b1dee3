package things

import "github.com/nathoo/storyrules/engine/tags"

// ObjectContext is a partial description of the object(s) of what is
// happening. Any field may be unset; unset fields do not constrain a match.
type ObjectContext struct {
	Object       *Thing
	SecondObject *Thing
	Tags         tags.Set
}

// Clone copies the context, including its tag set.
func (c ObjectContext) Clone() ObjectContext {
	c.Tags = c.Tags.Clone()
	return c
}

// effectiveTags is Tags if given, else the object's kinds, else nil.
func (c ObjectContext) effectiveTags() tags.Set {
	if c.Tags != nil {
		return c.Tags
	}
	if c.Object != nil {
		return c.Object.Kinds
	}
	return nil
}

// ObjectAllows reports whether actual is compatible with the expected
// pattern. Identities must agree where both sides name one. When expected
// constrains tags (and does not include the universal tag) and actual has
// tags of its own, the two tag sets must overlap. An empty pattern matches
// everything.
func ObjectAllows(expected, actual ObjectContext) bool {
	if expected.Object != nil && actual.Object != nil && expected.Object != actual.Object {
		return false
	}
	if expected.SecondObject != nil && actual.SecondObject != nil && expected.SecondObject != actual.SecondObject {
		return false
	}

	want := expected.effectiveTags()
	if want == nil || want.Has(tags.Something) {
		return true
	}
	got := actual.effectiveTags()
	if got != nil && !want.Overlaps(got) {
		return false
	}
	return true
}
