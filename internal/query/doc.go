// Package query provides the mutable query aggregate that the parser builds,
// query processors rewrite and the split strategies execute.
//
// A Query owns expression tree fragments from package expr: the select list,
// the filters, grouping, ordering and limits. The fragments themselves are
// persistent values, so a Query can be cloned by copying its containers and
// rewritten by replacing its roots.
//
// OWNERSHIP:
//
// A Query belongs to exactly one request. It is not safe for concurrent use
// and is never shared between requests; strategies that need a different
// shape call Clone and modify the copy.
//
// TRAVERSAL ORDER:
//
// AllExpressions walks the roots in a fixed order:
//
//	select list → array join → condition → group by → having → order by
//
// PREWHERE and LIMIT BY are not part of the traversal. TransformExpressions
// and TransformVisitor rewrite every root, PREWHERE included.
//
// ALIASES:
//
// ValidateAliases checks that every referenced symbol is declared. An
// expression with an alias declares it, except a column aliased to its own
// qualified name: SELECT a AS a only references a. An unaliased, unqualified
// column references its name. The data source's columns are always declared.
//
// LOGICAL AND PHYSICAL:
//
// The logical query carries an entity binding; the physical query handed to
// the storage reader has the same shape. Translator maps one to the other and
// IdentityTranslate is the translation used when the storage schema matches
// the entity schema.
package query
