package parser

import "github.com/alecthomas/participle/v2/lexer"

// The grammar keeps binary operators flat; precedence is applied while
// converting to the ast package.

type program struct {
	Body []*statement `@@*`
}

type statement struct {
	Pos lexer.Position

	Function *functionDecl `  @@`
	Class    *classDecl    `| @@`
	Var      *varDecl      `| @@ ";"?`
	If       *ifStmt       `| @@`
	While    *whileStmt    `| @@`
	DoWhile  *doWhileStmt  `| @@ ";"?`
	ForEach  *forEachStmt  `| @@`
	For      *forStmt      `| @@`
	Return   *returnStmt   `| @@ ";"?`
	Break    *breakStmt    `| @@ ";"?`
	Continue *continueStmt `| @@ ";"?`
	Throw    *throwStmt    `| @@ ";"?`
	Try      *tryStmt      `| @@`
	Switch   *switchStmt   `| @@`
	Block    *blockStmt    `| @@`
	Empty    bool          `| @";"`
	Labeled  *labeledStmt  `| @@`
	Expr     *seqExpr      `| @@ ";"?`

	EndPos lexer.Position
}

type ident struct {
	Pos  lexer.Position
	Name string `@Ident`
}

type functionDecl struct {
	Pos       lexer.Position
	Async     bool      `@"async"?`
	Generator bool      `"function" @"*"?`
	Name      *ident    `@@`
	Params    []*param  `"(" ( @@ ( "," @@ )* ","? )? ")"`
	Body      *funcBody `@@`
	EndPos    lexer.Position
}

type funcBody struct {
	Body []*statement `"{" @@* "}"`
}

type param struct {
	Pos     lexer.Position
	Rest    bool        `@"..."?`
	Target  *pattern    `@@`
	Default *assignExpr `( "=" @@ )?`
	EndPos  lexer.Position
}

type classDecl struct {
	Pos    lexer.Position
	Name   *ident      `"class" @@`
	Super  *assignExpr `( "extends" @@ )? "{" "}"`
	EndPos lexer.Position
}

type varDecl struct {
	Pos    lexer.Position
	Kind   string        `@( "var" | "let" | "const" )`
	Decls  []*declarator `@@ ( "," @@ )*`
	EndPos lexer.Position
}

type declarator struct {
	Pos    lexer.Position
	Target *pattern    `@@`
	Init   *assignExpr `( "=" @@ )?`
	EndPos lexer.Position
}

type ifStmt struct {
	Test *seqExpr   `"if" "(" @@ ")"`
	Cons *statement `@@`
	Alt  *statement `( "else" @@ )?`
}

type whileStmt struct {
	Test *seqExpr   `"while" "(" @@ ")"`
	Body *statement `@@`
}

type doWhileStmt struct {
	Body *statement `"do" @@`
	Test *seqExpr   `"while" "(" @@ ")"`
}

type forEachStmt struct {
	Decl  *string    `"for" "(" @( "var" | "let" | "const" )?`
	Left  *pattern   `@@`
	Op    string     `@( "in" | "of" )`
	Right *seqExpr   `@@ ")"`
	Body  *statement `@@`
}

type forStmt struct {
	InitVar  *varDecl   `"for" "(" ( @@`
	InitExpr *seqExpr   `| @@ )? ";"`
	Test     *seqExpr   `@@? ";"`
	Update   *seqExpr   `@@? ")"`
	Body     *statement `@@`
}

type returnStmt struct {
	Value *seqExpr `"return" @@?`
}

type breakStmt struct {
	Label *ident `"break" @@?`
}

type continueStmt struct {
	Label *ident `"continue" @@?`
}

type throwStmt struct {
	Value *seqExpr `"throw" @@`
}

type tryStmt struct {
	Block     *blockStmt `"try" @@`
	Catch     bool       `( @"catch"`
	Param     *pattern   `  ( "(" @@ ")" )?`
	Handler   *blockStmt `  @@ )?`
	Finalizer *blockStmt `( "finally" @@ )?`
}

type blockStmt struct {
	Pos    lexer.Position
	Body   []*statement `"{" @@* "}"`
	EndPos lexer.Position
}

type switchStmt struct {
	Disc  *seqExpr      `"switch" "(" @@ ")"`
	Cases []*switchCase `"{" @@* "}"`
}

type switchCase struct {
	Pos     lexer.Position
	Test    *seqExpr     `( "case" @@`
	Default bool         `| @"default" ) ":"`
	Body    []*statement `@@*`
	EndPos  lexer.Position
}

type labeledStmt struct {
	Label *ident     `@@ ":"`
	Body  *statement `@@`
}

// Patterns

type pattern struct {
	Pos    lexer.Position
	Ident  *ident          `  @@`
	Array  []*arrayPatElem `| "[" @@* "]"`
	Object *objectPattern  `| @@`
	EndPos lexer.Position
}

// arrayPatElem treats a lone comma as a hole; every other element consumes
// its own trailing comma.
type arrayPatElem struct {
	Pos     lexer.Position
	Hole    bool        `(  @","`
	Rest    bool        `| @"..."?`
	Target  *pattern    `  @@`
	Default *assignExpr `  ( "=" @@ )? ","? )`
	EndPos  lexer.Position
}

type objectPattern struct {
	Props []*objPatProp `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type objPatProp struct {
	Pos     lexer.Position
	Rest    *ident      `  "..." @@`
	Key     *propKey    `| @@`
	Value   *pattern    `  ( ":" @@ )?`
	Default *assignExpr `  ( "=" @@ )?`
	EndPos  lexer.Position
}

type propKey struct {
	Name   *string `  @( Ident | Keyword )`
	String *string `| @String`
	Number *string `| @Number`
}

// Expressions

type seqExpr struct {
	Pos    lexer.Position
	Exprs  []*assignExpr `@@ ( "," @@ )*`
	EndPos lexer.Position
}

type assignExpr struct {
	Pos    lexer.Position
	Left   *condExpr   `@@`
	Op     string      `( @( "=" | "+=" | "-=" | "*=" | "/=" | "%=" | "&=" | "|=" | "^=" | "<<=" | ">>=" )`
	Right  *assignExpr `  @@ )?`
	EndPos lexer.Position
}

type condExpr struct {
	Pos    lexer.Position
	Test   *binaryExpr `@@`
	Cons   *assignExpr `( "?" @@`
	Alt    *assignExpr `  ":" @@ )?`
	EndPos lexer.Position
}

type binaryExpr struct {
	Left *unaryExpr `@@`
	Ops  []*binOp   `@@*`
}

type binOp struct {
	Op    string     `@( "??" | "||" | "&&" | "|" | "^" | "&" | "===" | "!==" | "==" | "!=" | "<=" | ">=" | "<" | ">" | "instanceof" | "in" | "<<" | ">>>" | ">>" | "+" | "-" | "**" | "*" | "/" | "%" )`
	Right *unaryExpr `@@`
}

type unaryExpr struct {
	Pos     lexer.Position
	Ops     []string     `@( "!" | "-" | "+" | "~" | "typeof" | "void" | "delete" | "++" | "--" | "await" | "yield" )*`
	Operand *postfixExpr `@@`
	EndPos  lexer.Position
}

type postfixExpr struct {
	Pos      lexer.Position
	Primary  *primaryExpr `@@`
	Suffixes []*suffix    `@@*`
	Update   *string      `@( "++" | "--" )?`
	EndPos   lexer.Position
}

type suffix struct {
	EndPos lexer.Position
	Member *propName  `  "." @@`
	Index  *seqExpr   `| "[" @@ "]"`
	Call   *arguments `| @@`
}

type propName struct {
	Name string `@( Ident | Keyword )`
}

type arguments struct {
	Args []*argument `"(" ( @@ ( "," @@ )* ","? )? ")"`
}

type argument struct {
	Pos    lexer.Position
	Spread bool        `@"..."?`
	Value  *assignExpr `@@`
	EndPos lexer.Position
}

type primaryExpr struct {
	Pos      lexer.Position
	Function *functionExpr `  @@`
	Arrow    *arrowFunc    `| @@`
	New      *newExpr      `| @@`
	Number   *string       `| @Number`
	String   *string       `| @String`
	Bool     *string       `| @( "true" | "false" )`
	Null     bool          `| @"null"`
	Array    *arrayLit     `| @@`
	Object   *objectLit    `| @@`
	Paren    *seqExpr      `| "(" @@ ")"`
	Ident    *ident        `| @@`
	EndPos   lexer.Position
}

type functionExpr struct {
	Async     bool      `@"async"?`
	Generator bool      `"function" @"*"?`
	Name      *ident    `@@?`
	Params    []*param  `"(" ( @@ ( "," @@ )* ","? )? ")"`
	Body      *funcBody `@@`
}

type arrowFunc struct {
	Async  bool        `@"async"?`
	Single *ident      `( @@`
	Params []*param    `| "(" ( @@ ( "," @@ )* ","? )? ")" ) "=>"`
	Block  *funcBody   `( @@`
	Expr   *assignExpr `| @@ )`
}

type newExpr struct {
	Callee  *primaryExpr    `"new" @@`
	Members []*memberSuffix `@@*`
	Args    *arguments      `@@?`
	EndPos  lexer.Position
}

type memberSuffix struct {
	EndPos lexer.Position
	Member *propName `  "." @@`
	Index  *seqExpr  `| "[" @@ "]"`
}

type arrayLit struct {
	Elems []*argument `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

type objectLit struct {
	Props []*objProp `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type objProp struct {
	Pos      lexer.Position
	Spread   *assignExpr `  "..." @@`
	Computed *assignExpr `| ( "[" @@ "]"`
	Key      *propKey    `  | @@ )`
	Value    *assignExpr `  ( ":" @@ )?`
	EndPos   lexer.Position
}
