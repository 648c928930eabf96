// Package ast defines the Abstract Query Tree (AQT): the parser's typed
// output, one variant per statement kind, plus a canonical unparser used
// both for debug printing and for the parse/unparse round-trip property.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vinaxue/cs5510-project3/internal/types"
)

// Stmt is implemented by every statement variant.
type Stmt interface {
	stmtNode()
	String() string
}

// --- DDL ---

type ColumnDef struct {
	Name string
	Type types.Kind
	PK   bool
	FK   *FKRef // nil if this column has no foreign key
}

type FKRef struct {
	Table  string
	Column string
}

type CreateTable struct {
	Name    string
	Columns []ColumnDef
}

func (*CreateTable) stmtNode() {}

func (s *CreateTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (", s.Name)
	for i, c := range s.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", c.Name, c.Type)
		if c.PK {
			sb.WriteString(" PRIMARY KEY")
		}
		if c.FK != nil {
			fmt.Fprintf(&sb, " FOREIGN KEY REFERENCES %s(%s)", c.FK.Table, c.FK.Column)
		}
	}
	sb.WriteString(");")
	return sb.String()
}

type DropTable struct {
	Name string
}

func (*DropTable) stmtNode()        {}
func (s *DropTable) String() string { return fmt.Sprintf("DROP TABLE %s;", s.Name) }

type CreateIndex struct {
	Name   string
	Table  string
	Column string
}

func (*CreateIndex) stmtNode() {}
func (s *CreateIndex) String() string {
	return fmt.Sprintf("CREATE INDEX %s ON %s(%s);", s.Name, s.Table, s.Column)
}

type DropIndex struct {
	Name  string
	Table string
}

func (*DropIndex) stmtNode() {}
func (s *DropIndex) String() string {
	return fmt.Sprintf("DROP INDEX %s ON %s;", s.Name, s.Table)
}

// --- DML ---

// Literal is a parsed constant value.
type Literal struct {
	Kind types.Kind
	I    int64
	D    float64
	S    string
}

func (l Literal) Value() types.Value {
	return types.Value{Kind: l.Kind, I: l.I, D: l.D, S: l.S}
}

func (l Literal) String() string {
	switch l.Kind {
	case types.Int64:
		return strconv.FormatInt(l.I, 10)
	case types.Double:
		// Always keep a decimal point so the literal re-lexes as FLOAT.
		s := strconv.FormatFloat(l.D, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case types.String:
		return "'" + strings.ReplaceAll(l.S, "'", "''") + "'"
	default:
		return "<invalid literal>"
	}
}

func LiteralFromValue(v types.Value) Literal {
	return Literal{Kind: v.Kind, I: v.I, D: v.D, S: v.S}
}

type Insert struct {
	Table   string
	Columns []string // nil means "full table, in declared order"
	Values  []Literal
}

func (*Insert) stmtNode() {}
func (s *Insert) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s ", s.Table)
	if len(s.Columns) > 0 {
		fmt.Fprintf(&sb, "(%s) ", strings.Join(s.Columns, ", "))
	}
	sb.WriteString("VALUES (")
	for i, v := range s.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteString(");")
	return sb.String()
}

// ColRef names a column, optionally qualified by table/alias.
type ColRef struct {
	Table  string // "" if unqualified
	Column string
}

func (c ColRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// AggFunc is one of the three supported aggregate functions.
type AggFunc string

const (
	AggMin AggFunc = "MIN"
	AggMax AggFunc = "MAX"
	AggSum AggFunc = "SUM"
)

type Aggregate struct {
	Func AggFunc
	Col  ColRef
}

func (a Aggregate) String() string { return fmt.Sprintf("%s(%s)", a.Func, a.Col) }

// ProjItem is a single projected output: either a bare column reference
// or an aggregate call. Exactly one of Col/Agg is set.
type ProjItem struct {
	Col *ColRef
	Agg *Aggregate
}

func (p ProjItem) String() string {
	if p.Agg != nil {
		return p.Agg.String()
	}
	if p.Col != nil {
		return p.Col.String()
	}
	return "*"
}

// CmpOp is one of the three comparison operators the grammar supports.
type CmpOp string

const (
	OpEq CmpOp = "="
	OpLt CmpOp = "<"
	OpGt CmpOp = ">"
)

// Predicate is either a Comparison leaf or a two-leaf Logical combination.
type Predicate interface {
	predicateNode()
	String() string
}

// Comparison compares a column (or, in HAVING, an aggregate) to either a
// literal or another column. LeftAgg is set instead of Left when the
// left-hand side is an aggregate call, which only the HAVING grammar allows.
type Comparison struct {
	Left     ColRef
	LeftAgg  *Aggregate
	Op       CmpOp
	RightCol *ColRef  // set if comparing column to column
	RightLit *Literal // set if comparing column to literal
}

func (*Comparison) predicateNode() {}
func (c *Comparison) String() string {
	var left fmt.Stringer
	if c.LeftAgg != nil {
		left = c.LeftAgg
	} else {
		left = c.Left
	}
	if c.RightCol != nil {
		return fmt.Sprintf("%s %s %s", left, c.Op, c.RightCol)
	}
	return fmt.Sprintf("%s %s %s", left, c.Op, c.RightLit)
}

// LogicalOp joins exactly two Comparison leaves.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

type Logical struct {
	Op    LogicalOp
	Left  Predicate
	Right Predicate
}

func (*Logical) predicateNode() {}
func (l *Logical) String() string {
	return fmt.Sprintf("%s %s %s", l.Left, l.Op, l.Right)
}

type TableRef struct {
	Table string
	Alias string // equals Table unless this is a self-joined side
}

func (t TableRef) String() string {
	if t.Alias == "" || t.Alias == t.Table {
		return t.Table
	}
	return t.Table // alias is synthesized for resolution only; self-join syntax is "JOIN t ON alias.col=..."
}

type JoinClause struct {
	Other    TableRef
	OnLeft   ColRef
	OnRight  ColRef
	SelfJoin bool // true when Other.Table == From.Table
}

type OrderKey struct {
	Col  ColRef
	Desc bool
}

func (o OrderKey) String() string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", o.Col, dir)
}

type Select struct {
	Projections []ProjItem
	From        TableRef
	Join        *JoinClause
	Where       Predicate
	GroupBy     []ColRef
	Having      Predicate
	OrderBy     []OrderKey
}

func (*Select) stmtNode() {}

func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(s.Projections) == 0 {
		sb.WriteString("*")
	} else {
		parts := make([]string, len(s.Projections))
		for i, p := range s.Projections {
			parts[i] = p.String()
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	fmt.Fprintf(&sb, " FROM %s", s.From.Table)
	if s.Join != nil {
		fmt.Fprintf(&sb, " JOIN %s ON %s = %s", s.Join.Other.Table, s.Join.OnLeft, s.Join.OnRight)
	}
	if s.Where != nil {
		fmt.Fprintf(&sb, " WHERE %s", s.Where)
	}
	if len(s.GroupBy) > 0 {
		parts := make([]string, len(s.GroupBy))
		for i, c := range s.GroupBy {
			parts[i] = c.String()
		}
		fmt.Fprintf(&sb, " GROUP BY %s", strings.Join(parts, ", "))
	}
	if s.Having != nil {
		fmt.Fprintf(&sb, " HAVING %s", s.Having)
	}
	if len(s.OrderBy) > 0 {
		parts := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			parts[i] = o.String()
		}
		fmt.Fprintf(&sb, " ORDER BY %s", strings.Join(parts, ", "))
	}
	sb.WriteString(";")
	return sb.String()
}

type Delete struct {
	Table string
	Where Predicate
}

func (*Delete) stmtNode() {}
func (s *Delete) String() string {
	if s.Where == nil {
		return fmt.Sprintf("DELETE FROM %s;", s.Table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s;", s.Table, s.Where)
}

type Assignment struct {
	Col string
	Val Literal
}

type Update struct {
	Table string
	Set   []Assignment
	Where Predicate
}

func (*Update) stmtNode() {}
func (s *Update) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET ", s.Table)
	parts := make([]string, len(s.Set))
	for i, a := range s.Set {
		parts[i] = fmt.Sprintf("%s = %s", a.Col, a.Val)
	}
	sb.WriteString(strings.Join(parts, ", "))
	if s.Where != nil {
		fmt.Fprintf(&sb, " WHERE %s", s.Where)
	}
	sb.WriteString(";")
	return sb.String()
}
