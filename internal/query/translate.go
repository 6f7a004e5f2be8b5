package query

// Translator maps a logical query to the physical query executed by a
// storage reader. The physical query has the same shape and accessors.
type Translator func(*Query) *Query

// IdentityTranslate returns a clone of q, for storages whose schema matches
// the entity schema column for column.
func IdentityTranslate(q *Query) *Query {
	return q.Clone()
}
