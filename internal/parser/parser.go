// Package parser implements the Pangea recursive-descent parser: one-token
// lookahead, explicit precedence climbing, diagnostics-and-resynchronize
// error recovery (never panics across the parser boundary).
package parser

import (
	"fmt"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/token"
)

// Parser consumes a Lexer's token stream and produces a *ast.Module.
type Parser struct {
	lex       *lexer.Lexer
	collector *diagnostics.Collector
	source    string

	cur  token.Token
	next token.Token
}

func New(lex *lexer.Lexer, collector *diagnostics.Collector, source string) *Parser {
	p := &Parser{lex: lex, collector: collector, source: source}
	p.cur = p.lex.Next()
	p.next = p.lex.Next()
	p.skipNewlinesAndComments()
	return p
}

func (p *Parser) advance() {
	p.cur = p.next
	p.next = p.lex.Next()
}

func (p *Parser) skipNewlinesAndComments() {
	for p.cur.Kind == token.NEWLINE || p.cur.Kind == token.COMMENT {
		p.advance()
	}
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		p.skipDeclSeparators()
		return true
	}
	return false
}

// skipDeclSeparators consumes any run of NEWLINE/COMMENT tokens; newlines
// act as statement terminators per spec.md §4.2/§4.3, and both are
// otherwise uninteresting to the grammar once consumed at a safe point.
// Semicolons are left for terminateStmt.
func (p *Parser) skipDeclSeparators() {
	for p.cur.Kind == token.NEWLINE || p.cur.Kind == token.COMMENT {
		p.advance()
	}
}

func (p *Parser) errorf(pos token.Pos, lexeme string, format string, args ...any) error {
	return p.collector.ReportAndSave(diagnostics.Diag{
		Severity: diagnostics.Error,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
		Lexeme:   lexeme,
		Source:   p.source,
	})
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		tok := p.cur
		err := p.errorf(tok.Pos, tok.Lexeme, "expected %s, found %s", k, tok.Kind)
		return tok, err
	}
	tok := p.cur
	p.advance()
	p.skipDeclSeparators()
	return tok, nil
}

// terminateStmt consumes every consecutive `;` and NEWLINE token. No
// terminator is required: before `}`, EOF or any other token it consumes
// nothing, and neither a missing nor an extra terminator is diagnosed.
func (p *Parser) terminateStmt() {
	for p.cur.Kind == token.SEMICOLON || p.cur.Kind == token.NEWLINE {
		p.advance()
	}
}

// ParseModule parses an entire file into an *ast.Module.
func ParseModule(lex *lexer.Lexer, collector *diagnostics.Collector, source, name, path string) (*ast.Module, error) {
	p := New(lex, collector, source)
	mod := &ast.Module{Name: name, Path: path}

	for !p.at(token.EOF) {
		if p.at(token.IMPORT) {
			imp, err := p.parseImport()
			if err != nil {
				p.synchronizeDecl()
				continue
			}
			mod.Imports = append(mod.Imports, *imp)
			continue
		}
		decl, err := p.parseDecl()
		if err != nil {
			p.synchronizeDecl()
			continue
		}
		if decl != nil {
			mod.Decls = append(mod.Decls, decl)
		}
	}
	return mod, nil
}

func (p *Parser) synchronizeDecl() {
	for !p.at(token.EOF) {
		switch p.cur.Kind {
		case token.SEMICOLON, token.NEWLINE:
			p.advance()
			return
		case token.FN, token.CLASS, token.STRUCT, token.ENUM, token.IMPORT, token.LET, token.CONST, token.TYPE, token.FOREIGN, token.EXPORT:
			return
		}
		p.advance()
	}
}

func (p *Parser) synchronizeStmt() {
	for !p.at(token.EOF) {
		switch p.cur.Kind {
		case token.SEMICOLON, token.NEWLINE, token.RIGHT_BRACE:
			return
		case token.IF, token.WHILE, token.FOR, token.RETURN, token.LET, token.CONST:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseImport() (*ast.ImportDecl, error) {
	p.advance() // import
	strTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	imp := &ast.ImportDecl{Path: strTok.Value.Str, Wildcard: true}
	p.terminateStmt()
	return imp, nil
}

func (p *Parser) parseDecl() (*ast.Node, error) {
	isExported := p.match(token.EXPORT)
	isForeign := p.match(token.FOREIGN)

	switch p.cur.Kind {
	case token.FN:
		return p.parseFunctionDecl(isExported, isForeign)
	case token.LET, token.CONST:
		return p.parseVariableDecl(isExported, isForeign)
	case token.CLASS:
		return p.parseClassDecl(isExported)
	case token.STRUCT:
		return p.parseStructDecl(isExported, isForeign)
	case token.ENUM:
		return p.parseEnumDecl(isExported, isForeign)
	case token.TYPE:
		return p.parseTypeAlias()
	default:
		tok := p.cur
		err := p.errorf(tok.Pos, tok.Lexeme, "unexpected non-declaration statement on global scope: %s", tok.Kind)
		return nil, err
	}
}

func (p *Parser) parseTypeAlias() (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // type
	_, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	if _, err := p.parseType(); err != nil {
		return nil, err
	}
	p.terminateStmt()
	// Type aliases are parsed and discarded: the placeholder returned here is
	// a nameless variable decl that sema and codegen skip, so the alias name
	// is never bound and cannot be used as a type, mirroring the teacher's own
	// parseTypeAlias which also does not thread the alias into codegen.
	return &ast.Node{Kind: ast.DECL_VARIABLE, Pos: pos, N: &ast.VariableDecl{}}, nil
}

func (p *Parser) parseFunctionDecl(isExported, isForeign bool) (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // fn
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	retType, err := p.parseReturnType()
	if err != nil {
		return nil, err
	}

	fn := &ast.FunctionDecl{
		Name:       nameTok.Lexeme,
		Params:     params,
		ReturnType: retType,
		IsForeign:  isForeign,
		IsExported: isExported,
		IsVariadic: variadic,
	}

	if isForeign {
		p.terminateStmt()
		return &ast.Node{Kind: ast.DECL_FUNCTION, Pos: pos, N: fn}, nil
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return &ast.Node{Kind: ast.DECL_FUNCTION, Pos: pos, N: fn}, nil
}

func (p *Parser) parseParamList() ([]ast.Param, bool, error) {
	if _, err := p.expect(token.LEFT_PAREN); err != nil {
		return nil, false, err
	}
	var params []ast.Param
	variadic := false
	for !p.at(token.RIGHT_PAREN) && !p.at(token.EOF) {
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, false, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, false, err
		}
		if pt, ok := typ.N.(*ast.PrimitiveType); ok && pt.Kind == token.RAW_VA_LIST {
			variadic = true
		}
		params = append(params, ast.Param{Name: nameTok.Lexeme, Type: typ})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RIGHT_PAREN); err != nil {
		return nil, false, err
	}
	return params, variadic, nil
}

func (p *Parser) parseReturnType() (*ast.Node, error) {
	if p.at(token.ARROW) {
		p.advance()
		return p.parseType()
	}
	return nil, nil // implicit void
}

// parseType: [ptr-kind...] (primitive | self | raw_va_list | ident[<T,...>]) [[size]]
func (p *Parser) parseType() (*ast.Node, error) {
	pos := p.cur.Pos

	if token.POINTER_KINDS[p.cur.Kind] {
		kindTok := p.cur
		p.advance()
		pointee, err := p.parseType()
		if err != nil {
			return nil, err
		}
		var pk ast.PointerKind
		switch kindTok.Kind {
		case token.CPTR:
			pk = ast.PointerCptr
		case token.UNIQUE:
			pk = ast.PointerUnique
		case token.SHARED:
			pk = ast.PointerShared
		case token.WEAK:
			pk = ast.PointerWeak
		}
		return &ast.Node{Kind: ast.TYPE_POINTER, Pos: pos, N: &ast.PointerType{PtrKind: pk, Pointee: pointee}}, nil
	}

	if p.at(token.CONST) {
		p.advance()
		base, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.TYPE_CONST, Pos: pos, N: &ast.ConstType{Base: base}}, nil
	}

	var base *ast.Node
	switch {
	case token.BASIC_TYPES[p.cur.Kind]:
		k := p.cur.Kind
		p.advance()
		base = &ast.Node{Kind: ast.TYPE_PRIMITIVE, Pos: pos, N: &ast.PrimitiveType{Kind: k}}
	case p.at(token.IDENTIFIER):
		name := p.cur.Lexeme
		p.advance()
		if p.at(token.LESS) {
			p.advance()
			var args []*ast.Node
			for !p.at(token.GREATER) && !p.at(token.EOF) {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(token.COMMA) {
					break
				}
			}
			if _, err := p.expect(token.GREATER); err != nil {
				return nil, err
			}
			base = &ast.Node{Kind: ast.TYPE_GENERIC, Pos: pos, N: &ast.GenericType{Base: name, Args: args}}
		} else {
			base = &ast.Node{Kind: ast.TYPE_IDENT, Pos: pos, N: &ast.IdentType{Name: name}}
		}
	default:
		tok := p.cur
		return nil, p.errorf(tok.Pos, tok.Lexeme, "expected a type, found %s", tok.Kind)
	}

	if p.at(token.LEFT_BRACKET) {
		p.advance()
		sizeTok, err := p.expect(token.INTEGER_LITERAL)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RIGHT_BRACKET); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.TYPE_ARRAY, Pos: pos, N: &ast.ArrayType{Elem: base, Size: sizeTok.Value.Int}}, nil
	}
	return base, nil
}

func (p *Parser) parseVariableDecl(isExported, isForeign bool) (*ast.Node, error) {
	pos := p.cur.Pos
	isConst := p.at(token.CONST)
	p.advance() // let | const
	isMutable := false
	if p.at(token.MUT) {
		isMutable = true
		p.advance()
	}
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	decl := &ast.VariableDecl{
		Name:       nameTok.Lexeme,
		IsMutable:  isMutable && !isConst,
		IsConst:    isConst,
		IsExported: isExported,
		IsForeign:  isForeign,
	}
	if p.match(token.COLON) {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Type = typ
	}
	if isForeign {
		p.terminateStmt()
		return &ast.Node{Kind: ast.DECL_VARIABLE, Pos: pos, N: decl}, nil
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	decl.Init = init
	p.terminateStmt()
	return &ast.Node{Kind: ast.DECL_VARIABLE, Pos: pos, N: decl}, nil
}

func (p *Parser) parseClassDecl(isExported bool) (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // class
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	cls := &ast.ClassDecl{Name: nameTok.Lexeme, IsExported: isExported}

	if p.match(token.LESS) {
		for !p.at(token.GREATER) && !p.at(token.EOF) {
			tp, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			cls.TypeParams = append(cls.TypeParams, tp.Lexeme)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.expect(token.GREATER); err != nil {
			return nil, err
		}
	}
	if p.match(token.COLON) {
		baseTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		cls.Base = baseTok.Lexeme
	}

	if _, err := p.expect(token.LEFT_BRACE); err != nil {
		return nil, err
	}
	for !p.at(token.RIGHT_BRACE) && !p.at(token.EOF) {
		member, err := p.parseClassMember(cls.Name)
		if err != nil {
			p.synchronizeStmt()
			p.terminateStmt()
			continue
		}
		cls.Members = append(cls.Members, member)
	}
	if _, err := p.expect(token.RIGHT_BRACE); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.DECL_CLASS, Pos: pos, N: cls}, nil
}

func (p *Parser) parseClassMember(className string) (*ast.Node, error) {
	pos := p.cur.Pos
	public := p.match(token.PUB)
	_ = p.match(token.PRIV)

	if p.at(token.LET) {
		p.advance()
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		field := &ast.ClassField{Name: nameTok.Lexeme, Type: typ, Public: public}
		if p.match(token.ASSIGN) {
			init, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			field.Init = init
		}
		p.terminateStmt()
		return &ast.Node{Kind: ast.CLASS_FIELD, Pos: pos, N: field}, nil
	}

	isStatic := p.match(token.STATIC)
	isVirtual := p.match(token.VIRTUAL)
	isOverride := p.match(token.OVERRIDE)

	// Try the bare-identifier constructor form: `ClassName(params) -> self { ... }`
	if p.at(token.IDENTIFIER) && p.cur.Lexeme == className {
		return p.parseConstructor(className, public)
	}
	if _, err := p.expect(token.FN); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	retType, err := p.parseReturnType()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	method := &ast.ClassMethod{
		Fn: ast.FunctionDecl{
			Name: nameTok.Lexeme, Params: params, ReturnType: retType,
			Body: body, IsVariadic: variadic,
		},
		Public: public, IsStatic: isStatic, IsVirtual: isVirtual, IsOverride: isOverride,
	}
	return &ast.Node{Kind: ast.CLASS_METHOD, Pos: pos, N: method}, nil
}

func (p *Parser) parseConstructor(className string, public bool) (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // the identifier matching className
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ARROW); err != nil {
		return nil, err
	}
	selfTok, err := p.expect(token.SELF)
	if err != nil {
		return nil, err
	}
	if selfTok.Kind != token.SELF {
		return nil, p.errorf(selfTok.Pos, selfTok.Lexeme, "constructor must declare return type self")
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	retType := &ast.Node{Kind: ast.TYPE_PRIMITIVE, Pos: selfTok.Pos, N: &ast.PrimitiveType{Kind: token.SELF}}
	method := &ast.ClassMethod{
		Fn: ast.FunctionDecl{Name: className, Params: params, ReturnType: retType, Body: body, IsVariadic: variadic},
		Public: public,
	}
	return &ast.Node{Kind: ast.CLASS_METHOD, Pos: pos, N: method}, nil
}

func (p *Parser) parseStructDecl(isExported, isForeign bool) (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // struct
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	decl := &ast.StructDecl{Name: nameTok.Lexeme, IsForeign: isForeign, IsExported: isExported}
	if _, err := p.expect(token.LEFT_BRACE); err != nil {
		return nil, err
	}
	for !p.at(token.RIGHT_BRACE) && !p.at(token.EOF) {
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			p.synchronizeStmt()
			p.terminateStmt()
			continue
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, ast.ClassField{Name: nameTok.Lexeme, Type: typ, Public: true})
		p.terminateStmt()
	}
	if _, err := p.expect(token.RIGHT_BRACE); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.DECL_STRUCT, Pos: pos, N: decl}, nil
}

func (p *Parser) parseEnumDecl(isExported, isForeign bool) (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // enum
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	decl := &ast.EnumDecl{Name: nameTok.Lexeme, IsForeign: isForeign, IsExported: isExported}
	if _, err := p.expect(token.LEFT_BRACE); err != nil {
		return nil, err
	}
	for !p.at(token.RIGHT_BRACE) && !p.at(token.EOF) {
		variantTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			p.synchronizeStmt()
			p.terminateStmt()
			continue
		}
		decl.Variants = append(decl.Variants, variantTok.Lexeme)
		if !p.match(token.COMMA) {
			p.terminateStmt()
		}
	}
	if _, err := p.expect(token.RIGHT_BRACE); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.DECL_ENUM, Pos: pos, N: decl}, nil
}

// ---- statements ----

func (p *Parser) parseBlock() (*ast.Node, error) {
	pos := p.cur.Pos
	if _, err := p.expect(token.LEFT_BRACE); err != nil {
		return nil, err
	}
	block := &ast.BlockStmt{}
	for !p.at(token.RIGHT_BRACE) && !p.at(token.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			p.synchronizeStmt()
			p.terminateStmt()
			continue
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	if _, err := p.expect(token.RIGHT_BRACE); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.STMT_BLOCK, Pos: pos, N: block}, nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	switch p.cur.Kind {
	case token.LEFT_BRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.LET, token.CONST:
		pos := p.cur.Pos
		decl, err := p.parseVariableDecl(false, false)
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.STMT_DECL, Pos: pos, N: &ast.DeclStmt{Decl: decl}}, nil
	default:
		pos := p.cur.Pos
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.terminateStmt()
		return &ast.Node{Kind: ast.STMT_EXPR, Pos: pos, N: &ast.ExprStmt{Expr: expr}}, nil
	}
}

func (p *Parser) parseIfStmt() (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.at(token.ELIF) {
		elifPos := p.cur.Pos
		elifNode, err := p.parseElifAsIf(elifPos)
		if err != nil {
			return nil, err
		}
		stmt.Else = elifNode
	} else if p.match(token.ELSE) {
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlock
	}
	return &ast.Node{Kind: ast.STMT_IF, Pos: pos, N: stmt}, nil
}

func (p *Parser) parseElifAsIf(pos token.Pos) (*ast.Node, error) {
	p.advance() // elif
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.at(token.ELIF) {
		nextPos := p.cur.Pos
		nested, err := p.parseElifAsIf(nextPos)
		if err != nil {
			return nil, err
		}
		stmt.Else = nested
	} else if p.match(token.ELSE) {
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlock
	}
	return &ast.Node{Kind: ast.STMT_IF, Pos: pos, N: stmt}, nil
}

func (p *Parser) parseWhileStmt() (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // while
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.STMT_WHILE, Pos: pos, N: &ast.WhileStmt{Cond: cond, Body: body}}, nil
}

func (p *Parser) parseForStmt() (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // for
	binderTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.STMT_FOR, Pos: pos, N: &ast.ForStmt{Binder: binderTok.Lexeme, Iterable: iterable, Body: body}}, nil
}

func (p *Parser) parseReturnStmt() (*ast.Node, error) {
	pos := p.cur.Pos
	p.advance() // return
	stmt := &ast.ReturnStmt{}
	if !p.at(token.SEMICOLON) && !p.at(token.NEWLINE) && !p.at(token.RIGHT_BRACE) && !p.at(token.EOF) {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = val
	}
	p.terminateStmt()
	return &ast.Node{Kind: ast.STMT_RETURN, Pos: pos, N: stmt}, nil
}

// ---- expressions: precedence ladder, low to high ----
//
//  1 assignment   2 as   3 or   4 and   5 equality   6 relational
//  7 shift        8 additive   9 multiplicative   10 power
// 11 unary       12 postfix   13 primary

func (p *Parser) parseExpr() (*ast.Node, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (*ast.Node, error) {
	left, err := p.parseAs()
	if err != nil {
		return nil, err
	}
	switch p.cur.Kind {
	case token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN, token.PERCENT_ASSIGN:
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right, err := p.parseAssignment() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.EXPR_ASSIGN, Pos: pos, N: &ast.AssignExpr{Target: left, Op: op, Value: right}}, nil
	}
	return left, nil
}

func (p *Parser) parseAs() (*ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.AS) {
		pos := p.cur.Pos
		p.advance()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		left = &ast.Node{Kind: ast.EXPR_AS, Pos: pos, N: &ast.AsExpr{Expr: left, Target: typ}}
	}
	return left, nil
}

func (p *Parser) binaryLevel(next func() (*ast.Node, error), ops ...token.Kind) (*ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.cur.Kind == op {
				matched = true
				pos := p.cur.Pos
				p.advance()
				right, err := next()
				if err != nil {
					return nil, err
				}
				left = &ast.Node{Kind: ast.EXPR_BINARY, Pos: pos, N: &ast.BinaryExpr{Left: left, Op: op, Right: right}}
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *Parser) parseOr() (*ast.Node, error) {
	return p.binaryLevel(p.parseAnd, token.OR_OR)
}

func (p *Parser) parseAnd() (*ast.Node, error) {
	return p.binaryLevel(p.parseEquality, token.AND_AND)
}

func (p *Parser) parseEquality() (*ast.Node, error) {
	return p.binaryLevel(p.parseRelational, token.EQUAL_EQUAL, token.BANG_EQUAL)
}

func (p *Parser) parseRelational() (*ast.Node, error) {
	return p.binaryLevel(p.parseShift, token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL)
}

func (p *Parser) parseShift() (*ast.Node, error) {
	return p.binaryLevel(p.parseAdditive, token.SHL, token.SHR)
}

func (p *Parser) parseAdditive() (*ast.Node, error) {
	return p.binaryLevel(p.parseMultiplicative, token.PLUS, token.MINUS)
}

func (p *Parser) parseMultiplicative() (*ast.Node, error) {
	return p.binaryLevel(p.parsePower, token.STAR, token.SLASH, token.PERCENT)
}

// parsePower is right-associative: a ** b ** c == a ** (b ** c).
func (p *Parser) parsePower() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(token.POWER) {
		pos := p.cur.Pos
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.EXPR_BINARY, Pos: pos, N: &ast.BinaryExpr{Left: left, Op: token.POWER, Right: right}}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	if p.at(token.BANG) || p.at(token.MINUS) {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.EXPR_UNARY, Pos: pos, N: &ast.UnaryExpr{Op: op, Operand: operand}}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.LEFT_PAREN:
			pos := p.cur.Pos
			p.advance()
			var args []*ast.Node
			for !p.at(token.RIGHT_PAREN) && !p.at(token.EOF) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(token.COMMA) {
					break
				}
			}
			if _, err := p.expect(token.RIGHT_PAREN); err != nil {
				return nil, err
			}
			expr = &ast.Node{Kind: ast.EXPR_CALL, Pos: pos, N: &ast.CallExpr{Callee: expr, Args: args}}
		case token.DOT:
			pos := p.cur.Pos
			p.advance()
			fieldTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = &ast.Node{Kind: ast.EXPR_MEMBER, Pos: pos, N: &ast.MemberExpr{Object: expr, Field: fieldTok.Lexeme}}
		case token.LEFT_BRACKET:
			pos := p.cur.Pos
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RIGHT_BRACKET); err != nil {
				return nil, err
			}
			expr = &ast.Node{Kind: ast.EXPR_INDEX, Pos: pos, N: &ast.IndexExpr{Object: expr, Index: idx}}
		case token.INCREMENT, token.DECREMENT:
			pos := p.cur.Pos
			op := p.cur.Kind
			p.advance()
			expr = &ast.Node{Kind: ast.EXPR_POSTFIX, Pos: pos, N: &ast.PostfixExpr{Operand: expr, Op: op}}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok := p.cur

	switch tok.Kind {
	case token.CAST, token.TRY_CAST:
		return p.parseCastExpr()
	case token.SELF:
		p.advance()
		return &ast.Node{Kind: ast.EXPR_IDENT, Pos: tok.Pos, N: &ast.IdentExpr{Name: "self"}}, nil
	case token.IDENTIFIER:
		p.advance()
		return &ast.Node{Kind: ast.EXPR_IDENT, Pos: tok.Pos, N: &ast.IdentExpr{Name: tok.Lexeme}}, nil
	case token.LEFT_PAREN:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RIGHT_PAREN); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		if tok.IsLiteral() {
			p.advance()
			return &ast.Node{Kind: ast.EXPR_LITERAL, Pos: tok.Pos, N: &ast.LiteralExpr{Tok: tok}}, nil
		}
		return nil, p.errorf(tok.Pos, tok.Lexeme, "unexpected token %s in expression", tok.Kind)
	}
}

func (p *Parser) parseCastExpr() (*ast.Node, error) {
	pos := p.cur.Pos
	safe := p.at(token.TRY_CAST)
	p.advance() // cast | try_cast
	if _, err := p.expect(token.LESS); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.GREATER); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LEFT_PAREN); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RIGHT_PAREN); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.EXPR_CAST, Pos: pos, N: &ast.CastExpr{Target: typ, Expr: expr, Safe: safe}}, nil
}
