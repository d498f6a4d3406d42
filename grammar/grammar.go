// Package grammar defines the textual DSL for one self-loop rule: a guard,
// a parallel update, and an optional cost, e.g.
//
//	rule counter {
//	  guard: i < N;
//	  update: i = i + 1;
//	  cost: 1;
//	}
//
// This is not the ITS parser (out of scope per §1) — it only builds the
// its.Rule the core calculus accelerates; a whole-ITS frontend with
// multiple locations and control flow is an external collaborator's
// concern.
package grammar

import "github.com/alecthomas/participle/v2/lexer"

type Program struct {
	Pos   lexer.Position
	Rules []*RuleDecl `@@*`
}

type RuleDecl struct {
	Pos    lexer.Position
	Name   string        `"rule" @Ident "{"`
	Guard  *GuardClause  `@@`
	Update *UpdateClause `@@`
	Cost   *CostClause   `@@?`
	Close  string        `"}"`
}

type GuardClause struct {
	Pos  lexer.Position
	Expr *OrExpr `"guard" ":" @@ ";"`
}

type UpdateClause struct {
	Pos         lexer.Position
	Assignments []*Assignment `"update" ":" @@ ("," @@)* ";"`
}

type Assignment struct {
	Pos   lexer.Position
	Var   string   `@Ident "="`
	Value *AddExpr `@@`
}

type CostClause struct {
	Pos  lexer.Position
	Expr *AddExpr `"cost" ":" @@ ";"`
}

// OrExpr .. RelExpr form the boolean layer (disjunction over conjunction
// over a single relational comparison — the calculus's BoolExpr/Relation
// shape has no nested comparisons, so RelExpr is not itself recursive).
type OrExpr struct {
	Pos  lexer.Position
	Left *AndExpr   `@@`
	Rest []*AndExpr `("||" @@)*`
}

type AndExpr struct {
	Pos  lexer.Position
	Left *RelExpr   `@@`
	Rest []*RelExpr `("&&" @@)*`
}

type RelExpr struct {
	Pos   lexer.Position
	Left  *AddExpr `@@`
	Op    string   `@("<=" | ">=" | "==" | "!=" | "<" | ">")`
	Right *AddExpr `@@`
}

// AddExpr .. Atom form the arithmetic layer, standard precedence-climbing
// shape (left recursion expressed as a head plus a tail slice, since
// participle grammars cannot recurse left directly).
type AddExpr struct {
	Pos  lexer.Position
	Left *MulExpr `@@`
	Tail []*AddOp `@@*`
}

type AddOp struct {
	Pos   lexer.Position
	Op    string   `@("+" | "-")`
	Right *MulExpr `@@`
}

type MulExpr struct {
	Pos  lexer.Position
	Left *UnaryExpr `@@`
	Tail []*MulOp   `@@*`
}

type MulOp struct {
	Pos   lexer.Position
	Op    string     `@"*"`
	Right *UnaryExpr `@@`
}

type UnaryExpr struct {
	Pos  lexer.Position
	Neg  bool  `@"-"?`
	Atom *Atom `@@`
}

type Atom struct {
	Pos   lexer.Position
	Int   *int64   `  @Integer`
	Ident *string  `| @Ident`
	Paren *AddExpr `| "(" @@ ")"`
}
