package binder

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// ResolvedCol names a ColRef's concrete binding: which table instance
// (alias, for joins/self-joins) and which catalog column.
type ResolvedCol struct {
	Alias  string
	Table  string // underlying table name (== Alias unless self-joined)
	Column catalog.Column
}

// ResolvedProj is one bound projection item: either a plain column or an
// aggregate over one.
type ResolvedProj struct {
	Col       *ResolvedCol
	Agg       *ast.Aggregate
	AggTarget *ResolvedCol // the column the aggregate reads, when Agg != nil
	Label     string       // output key: "col", "table.col", or "FUNC(col)"
}

// InsertPlan is a bound INSERT: the statement's columns resolved to
// catalog columns in the order the statement lists them, with each value
// already checked against its column type (there are no defaults).
type InsertPlan struct {
	Table   *catalog.Table
	Columns []catalog.Column
	Values  []types.Value
}

// SelectPlan is a bound SELECT, annotated enough that the executor never
// needs to re-resolve a name or re-check a type.
type SelectPlan struct {
	Scope       *scope
	Projections []ResolvedProj
	From        ast.TableRef
	Join        *ast.JoinClause
	JoinLeft    ResolvedCol
	JoinRight   ResolvedCol
	Where       ast.Predicate
	GroupBy     []ResolvedCol
	Having      ast.Predicate
	OrderBy     []ast.OrderKey
	Grouped     bool // GROUP BY present, or an aggregate with no GROUP BY (one implicit group)
}

// UpdatePlan is a bound UPDATE.
type UpdatePlan struct {
	Table      *catalog.Table
	Set        []BoundAssignment
	Where      ast.Predicate
	PKAssigned bool
}

type BoundAssignment struct {
	Column catalog.Column
	Value  types.Value
}

// DeletePlan is a bound DELETE.
type DeletePlan struct {
	Table *catalog.Table
	Where ast.Predicate
}

// Plan is the Bound Plan handed to the executor or DDL manager. At most
// one of the typed fields is non-nil, matching the AQT's Stmt variant;
// DDL statements set none of them and pass through unannotated since Catalog enforces their
// invariants directly at mutation time.
type Plan struct {
	Stmt   ast.Stmt
	Insert *InsertPlan
	Select *SelectPlan
	Update *UpdatePlan
	Delete *DeletePlan
}
