// Package search parses commit search queries and translates them into the
// hosting API's commit search syntax.
package search

import (
	"strings"
)

// Operator is a recognized search operator.
type Operator string

const (
	OpCommit  Operator = "commit:"
	OpMessage Operator = "message:"
	OpAuthor  Operator = "author:"
	OpFile    Operator = "file:"
	OpChange  Operator = "change:"
	OpType    Operator = "type:"
)

// Me is the author token replaced with the signed-in user's login.
const Me = "@me"

var aliases = map[string]Operator{
	"commit:":  OpCommit,
	"#:":       OpCommit,
	"message:": OpMessage,
	"=:":       OpMessage,
	"author:":  OpAuthor,
	"@:":       OpAuthor,
	"file:":    OpFile,
	"?:":       OpFile,
	"change:":  OpChange,
	"~:":       OpChange,
	"type:":    OpType,
}

// Query is a parsed search query. Values keep their quotes stripped.
type Query struct {
	Commits  []string
	Messages []string
	Authors  []string

	// Unsupported holds values of operators the remote cannot search on.
	Unsupported map[Operator][]string
}

// Parse splits query into operators and values. Double quotes group words.
// Bare words are message terms. Tokens of the form "word:value" with an
// unknown operator are dropped.
func Parse(query string) Query {
	var q Query
	for _, tok := range tokenize(query) {
		op, value, ok := splitOperator(tok)
		if !ok {
			if looksLikeOperator(tok) {
				continue
			}
			op, value = OpMessage, tok
		}
		value = unquote(value)
		if value == "" {
			continue
		}

		switch op {
		case OpCommit:
			q.Commits = append(q.Commits, value)
		case OpMessage:
			q.Messages = append(q.Messages, value)
		case OpAuthor:
			q.Authors = append(q.Authors, value)
		default:
			if q.Unsupported == nil {
				q.Unsupported = make(map[Operator][]string)
			}
			q.Unsupported[op] = append(q.Unsupported[op], value)
		}
	}
	return q
}

// Searchable reports whether the query has terms the remote search can use.
func (q Query) Searchable() bool {
	return len(q.Messages) > 0 || len(q.Authors) > 0
}

// Empty reports whether the query yields no work at all.
func (q Query) Empty() bool {
	return len(q.Commits) == 0 && !q.Searchable()
}

// Translate renders the remote search terms. selfLogin replaces Me; if it is
// empty, Me terms are dropped.
func (q Query) Translate(selfLogin string) string {
	var terms []string
	for _, m := range q.Messages {
		terms = append(terms, quoteIfNeeded(m))
	}
	for _, a := range q.Authors {
		if t := authorTerm(a, selfLogin); t != "" {
			terms = append(terms, t)
		}
	}
	return strings.Join(terms, " ")
}

func authorTerm(value, selfLogin string) string {
	if value == Me {
		if selfLogin == "" {
			return ""
		}
		return "author:" + selfLogin
	}
	switch {
	case strings.HasPrefix(value, "@"):
		return "author:" + strings.TrimPrefix(value, "@")
	case strings.Contains(value, "@"):
		return "author-email:" + value
	default:
		return `author-name:"` + value + `"`
	}
}

func splitOperator(tok string) (Operator, string, bool) {
	for alias, op := range aliases {
		if strings.HasPrefix(tok, alias) {
			return op, tok[len(alias):], true
		}
	}
	return "", "", false
}

func looksLikeOperator(tok string) bool {
	i := strings.IndexByte(tok, ':')
	if i <= 0 || strings.HasPrefix(tok, `"`) {
		return false
	}
	for _, r := range tok[:i] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && r != '-' {
			return false
		}
	}
	return true
}

// tokenize splits on whitespace outside double quotes.
func tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func unquote(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
