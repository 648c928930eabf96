// Package sqlparse implements the recursive-descent parser that turns a
// lexer.Item stream into an ast.Stmt (the AQT). One production per
// statement keyword; grammar deviations raise a ParseError{position,expected}.
package sqlparse

import (
	"strconv"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/lexer"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

type parser struct {
	items []lexer.Item
	pos   int
}

// Parse tokenizes and parses a single SQL statement (the trailing ';' is
// optional but consumed if present) into an AQT node.
func Parse(src string) (ast.Stmt, error) {
	items, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, errs.New(errs.KindParseError, "%s", err.Error())
	}
	p := &parser{items: items}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if p.cur().Type == lexer.SEMI {
		p.advance()
	}
	if p.cur().Type != lexer.EOF {
		return nil, errs.ParseError(int(p.cur().Pos), "end of statement", "unexpected trailing token %q", p.cur().Value)
	}
	return stmt, nil
}

func (p *parser) cur() lexer.Item  { return p.items[p.pos] }
func (p *parser) advance()         { p.pos++ }
func (p *parser) at(t lexer.Token) bool { return p.cur().Type == t }

func (p *parser) expect(t lexer.Token) (lexer.Item, error) {
	if p.cur().Type != t {
		return lexer.Item{}, errs.ParseError(int(p.cur().Pos), t.String(), "got %q", p.cur().Value)
	}
	it := p.cur()
	p.advance()
	return it, nil
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Type {
	case lexer.CREATE:
		return p.parseCreate()
	case lexer.DROP:
		return p.parseDrop()
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.SELECT:
		return p.parseSelect()
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.UPDATE:
		return p.parseUpdate()
	default:
		return nil, errs.ParseError(int(p.cur().Pos), "CREATE, DROP, INSERT, SELECT, DELETE or UPDATE", "unexpected token %q", p.cur().Value)
	}
}

// --- DDL ---

func (p *parser) parseCreate() (ast.Stmt, error) {
	p.advance() // CREATE
	switch p.cur().Type {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.INDEX:
		return p.parseCreateIndex()
	default:
		return nil, errs.ParseError(int(p.cur().Pos), "TABLE or INDEX", "got %q", p.cur().Value)
	}
}

func (p *parser) parseCreateTable() (ast.Stmt, error) {
	p.advance() // TABLE
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	var cols []ast.ColumnDef
	for {
		colName, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		kind, err := p.parseTypeKeyword()
		if err != nil {
			return nil, err
		}
		cd := ast.ColumnDef{Name: colName.Value, Type: kind}

		for p.at(lexer.PRIMARY) || p.at(lexer.FOREIGN) {
			if p.at(lexer.PRIMARY) {
				p.advance()
				if _, err := p.expect(lexer.KEY); err != nil {
					return nil, err
				}
				cd.PK = true
				continue
			}
			p.advance() // FOREIGN
			if _, err := p.expect(lexer.KEY); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.REFERENCES); err != nil {
				return nil, err
			}
			refTable, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.LPAREN); err != nil {
				return nil, err
			}
			refCol, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
			cd.FK = &ast.FKRef{Table: refTable.Value, Column: refCol.Value}
		}

		cols = append(cols, cd)

		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}

	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreateTable{Name: name.Value, Columns: cols}, nil
}

func (p *parser) parseTypeKeyword() (types.Kind, error) {
	switch p.cur().Type {
	case lexer.INT_TYPE:
		p.advance()
		return types.Int64, nil
	case lexer.DOUBLE_TYPE:
		p.advance()
		return types.Double, nil
	case lexer.STRING_TYPE:
		p.advance()
		return types.String, nil
	default:
		return 0, errs.ParseError(int(p.cur().Pos), "INT, DOUBLE or STRING", "got %q", p.cur().Value)
	}
}

func (p *parser) parseCreateIndex() (ast.Stmt, error) {
	p.advance() // INDEX
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ON); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	col, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreateIndex{Name: name.Value, Table: table.Value, Column: col.Value}, nil
}

func (p *parser) parseDrop() (ast.Stmt, error) {
	p.advance() // DROP
	switch p.cur().Type {
	case lexer.TABLE:
		p.advance()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropTable{Name: name.Value}, nil
	case lexer.INDEX:
		p.advance()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.ON); err != nil {
			return nil, err
		}
		table, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropIndex{Name: name.Value, Table: table.Value}, nil
	default:
		return nil, errs.ParseError(int(p.cur().Pos), "TABLE or INDEX", "got %q", p.cur().Value)
	}
}

// --- DML ---

func (p *parser) parseInsert() (ast.Stmt, error) {
	p.advance() // INSERT
	if _, err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	var cols []string
	if p.at(lexer.LPAREN) {
		p.advance()
		for {
			c, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c.Value)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var vals []ast.Literal
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		vals = append(vals, lit)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	return &ast.Insert{Table: table.Value, Columns: cols, Values: vals}, nil
}

func (p *parser) parseLiteral() (ast.Literal, error) {
	switch p.cur().Type {
	case lexer.INT:
		v, err := strconv.ParseInt(p.cur().Value, 10, 64)
		if err != nil {
			return ast.Literal{}, errs.ParseError(int(p.cur().Pos), "integer literal", "%s", err.Error())
		}
		p.advance()
		return ast.Literal{Kind: types.Int64, I: v}, nil
	case lexer.FLOAT:
		v, err := strconv.ParseFloat(p.cur().Value, 64)
		if err != nil {
			return ast.Literal{}, errs.ParseError(int(p.cur().Pos), "double literal", "%s", err.Error())
		}
		p.advance()
		return ast.Literal{Kind: types.Double, D: v}, nil
	case lexer.STRING:
		v := p.cur().Value
		p.advance()
		return ast.Literal{Kind: types.String, S: v}, nil
	default:
		return ast.Literal{}, errs.ParseError(int(p.cur().Pos), "literal value", "got %q", p.cur().Value)
	}
}

func (p *parser) parseColRef() (ast.ColRef, error) {
	first, err := p.expect(lexer.IDENT)
	if err != nil {
		return ast.ColRef{}, err
	}
	if p.at(lexer.DOT) {
		p.advance()
		second, err := p.expect(lexer.IDENT)
		if err != nil {
			return ast.ColRef{}, err
		}
		return ast.ColRef{Table: first.Value, Column: second.Value}, nil
	}
	return ast.ColRef{Column: first.Value}, nil
}

func (p *parser) parseSelect() (ast.Stmt, error) {
	p.advance() // SELECT
	var projs []ast.ProjItem
	if p.at(lexer.STAR) {
		p.advance()
	} else {
		for {
			item, err := p.parseProjItem()
			if err != nil {
				return nil, err
			}
			projs = append(projs, item)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}

	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	fromTable, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	from := ast.TableRef{Table: fromTable.Value, Alias: fromTable.Value}

	sel := &ast.Select{Projections: projs, From: from}

	if p.at(lexer.JOIN) {
		p.advance()
		otherTable, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		other := ast.TableRef{Table: otherTable.Value, Alias: otherTable.Value}
		if _, err := p.expect(lexer.ON); err != nil {
			return nil, err
		}
		left, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		right, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		selfJoin := other.Table == from.Table
		if selfJoin {
			sel.From.Alias = from.Table + "_L"
			other.Alias = other.Table + "_R"
		}
		sel.Join = &ast.JoinClause{Other: other, OnLeft: left, OnRight: right, SelfJoin: selfJoin}
	}

	if p.at(lexer.WHERE) {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Where = pred
	}

	if p.at(lexer.GROUP) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			c, err := p.parseColRef()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, c)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}

	if p.at(lexer.HAVING) {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Having = pred
	}

	if p.at(lexer.ORDER) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			c, err := p.parseColRef()
			if err != nil {
				return nil, err
			}
			desc := false
			if p.at(lexer.ASC) {
				p.advance()
			} else if p.at(lexer.DESC) {
				p.advance()
				desc = true
			}
			sel.OrderBy = append(sel.OrderBy, ast.OrderKey{Col: c, Desc: desc})
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}

	return sel, nil
}

func (p *parser) parseProjItem() (ast.ProjItem, error) {
	switch p.cur().Type {
	case lexer.MIN, lexer.MAX, lexer.SUM:
		var fn ast.AggFunc
		switch p.cur().Type {
		case lexer.MIN:
			fn = ast.AggMin
		case lexer.MAX:
			fn = ast.AggMax
		case lexer.SUM:
			fn = ast.AggSum
		}
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return ast.ProjItem{}, err
		}
		col, err := p.parseColRef()
		if err != nil {
			return ast.ProjItem{}, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return ast.ProjItem{}, err
		}
		return ast.ProjItem{Agg: &ast.Aggregate{Func: fn, Col: col}}, nil
	default:
		col, err := p.parseColRef()
		if err != nil {
			return ast.ProjItem{}, err
		}
		return ast.ProjItem{Col: &col}, nil
	}
}

// parsePredicate parses a leaf comparison or a single AND/OR of two leaves.
func (p *parser) parsePredicate() (ast.Predicate, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.AND) || p.at(lexer.OR) {
		op := ast.LogicalAnd
		if p.at(lexer.OR) {
			op = ast.LogicalOr
		}
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		return &ast.Logical{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Predicate, error) {
	var left ast.ColRef
	var leftAgg *ast.Aggregate
	switch p.cur().Type {
	case lexer.MIN, lexer.MAX, lexer.SUM:
		item, err := p.parseProjItem()
		if err != nil {
			return nil, err
		}
		leftAgg = item.Agg
	default:
		c, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		left = c
	}
	var op ast.CmpOp
	switch p.cur().Type {
	case lexer.EQ:
		op = ast.OpEq
	case lexer.LT:
		op = ast.OpLt
	case lexer.GT:
		op = ast.OpGt
	default:
		return nil, errs.ParseError(int(p.cur().Pos), "=, < or >", "got %q", p.cur().Value)
	}
	p.advance()

	cmp := &ast.Comparison{Left: left, LeftAgg: leftAgg, Op: op}
	if p.at(lexer.IDENT) {
		right, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		cmp.RightCol = &right
	} else {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		cmp.RightLit = &lit
	}
	return cmp, nil
}

func (p *parser) parseDelete() (ast.Stmt, error) {
	p.advance() // DELETE
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	del := &ast.Delete{Table: table.Value}
	if p.at(lexer.WHERE) {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		del.Where = pred
	}
	return del, nil
}

func (p *parser) parseUpdate() (ast.Stmt, error) {
	p.advance() // UPDATE
	table, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SET); err != nil {
		return nil, err
	}
	upd := &ast.Update{Table: table.Value}
	for {
		col, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		upd.Set = append(upd.Set, ast.Assignment{Col: col.Value, Val: lit})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if p.at(lexer.WHERE) {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		upd.Where = pred
	}
	return upd, nil
}
