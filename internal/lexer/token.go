// Package lexer turns a module's source bytes into a token stream.
package lexer

import "fmt"

// TokenType tags a lexical token.
type TokenType int

const (
	// Literals
	Integer TokenType = iota
	Float
	True_
	False_
	String
	Identifier

	// Arithmetic
	Plus
	Minus
	Mult
	Div
	Modulo
	Increment
	Decrement

	// Comparison
	EqualEqual
	NotEqual
	LessThan
	LessEqual
	GreaterThan
	GreaterEqual

	// Logical keywords
	And
	Or
	Not

	// Assignment
	Assign
	InferAssign
	PlusEqual
	MinusEqual
	MultEqual
	DivEqual
	ModuloEqual

	// Range
	Range
	InclusiveRange

	// Keywords
	Let
	Mut
	Ref
	Function
	Return
	If
	Else
	While
	For
	In
	Break
	Continue
	Match
	Struct
	Import
	As
	Extern
	Opaque
	AddrOf
	Self_
	Pub
	Null

	// Delimiters
	LParen
	RParen
	LSquare
	RSquare
	LBrace
	RBrace

	// Misc
	Colon
	DoubleColon
	Semicolon
	Arrow
	FatArrow
	Dot
	Comma

	EndOfFile
)

var tokenNames = map[TokenType]string{
	Integer: "Integer", Float: "Float", True_: "True", False_: "False", String: "String", Identifier: "Identifier",
	Plus: "Plus", Minus: "Minus", Mult: "Mult", Div: "Div", Modulo: "Modulo", Increment: "Increment", Decrement: "Decrement",
	EqualEqual: "EqualEqual", NotEqual: "NotEqual", LessThan: "LessThan", LessEqual: "LessEqual", GreaterThan: "GreaterThan", GreaterEqual: "GreaterEqual",
	And: "And", Or: "Or", Not: "Not",
	Assign: "Assign", InferAssign: "InferAssign", PlusEqual: "PlusEqual", MinusEqual: "MinusEqual", MultEqual: "MultEqual", DivEqual: "DivEqual", ModuloEqual: "ModuloEqual",
	Range: "Range", InclusiveRange: "InclusiveRange",
	Let: "Let", Mut: "Mut", Ref: "Ref", Function: "Function", Return: "Return", If: "If", Else: "Else", While: "While", For: "For", In: "In",
	Break: "Break", Continue: "Continue", Match: "Match", Struct: "Struct", Import: "Import", As: "As", Extern: "Extern", Opaque: "Opaque",
	AddrOf: "AddrOf", Self_: "Self", Pub: "Pub", Null: "Null",
	LParen: "LParen", RParen: "RParen", LSquare: "LSquare", RSquare: "RSquare", LBrace: "LBrace", RBrace: "RBrace",
	Colon: "Colon", DoubleColon: "DoubleColon", Semicolon: "Semicolon", Arrow: "Arrow", FatArrow: "FatArrow", Dot: "Dot", Comma: "Comma",
	EndOfFile: "EndOfFile",
}

func (t TokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return "Unknown"
}

var keywords = map[string]TokenType{
	"let": Let, "mut": Mut, "ref": Ref, "fn": Function, "return": Return,
	"if": If, "else": Else, "while": While, "for": For, "in": In,
	"break": Break, "continue": Continue, "match": Match, "struct": Struct,
	"import": Import, "as": As, "extern": Extern, "opaque": Opaque,
	"addrof": AddrOf, "self": Self_, "pub": Pub, "null": Null,
	"true": True_, "false": False_, "and": And, "or": Or, "not": Not,
}

// Token is one lexeme with its 1-based source position (spec.md §4.3).
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("[%-12s] line=%d col=%d lexeme=%q", t.Type, t.Line, t.Column, t.Lexeme)
}
