package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/study"
)

// Filter is a compiled CEL boolean expression over a card and its record.
//
// Available variables:
//
//	level      int     proficiency level
//	score      double  history score
//	history    int     number of recorded outcomes
//	is_new     bool    level == 0
//	word_type  string  word type ("type" is reserved in CEL)
//	russian    string  normalized russian text
//	english    string  normalized english text
type Filter struct {
	expr string
	prg  cel.Program
}

var filterEnv = mustFilterEnv()

func mustFilterEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("level", cel.IntType),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("history", cel.IntType),
		cel.Variable("is_new", cel.BoolType),
		cel.Variable("word_type", cel.StringType),
		cel.Variable("russian", cel.StringType),
		cel.Variable("english", cel.StringType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		panic(fmt.Sprintf("query: build filter env: %v", err))
	}
	return env
}

// ParseFilter compiles a filter expression. An empty expression returns nil.
func ParseFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	ast, issues := filterEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter: %w", issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %v", ast.OutputType())
	}

	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Matches evaluates the filter. Evaluation errors count as a non-match.
func (f *Filter) Matches(card cards.Card, rec study.Record) bool {
	key := card.Key()
	out, _, err := f.prg.Eval(map[string]any{
		"level":     int64(rec.ProficiencyLevel),
		"score":     rec.Score(),
		"history":   int64(len(rec.History)),
		"is_new":    rec.IsNew(),
		"word_type": string(card.Type),
		"russian":   key.Russian,
		"english":   key.English,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
