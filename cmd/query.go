package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/query"
)

// addQueryFlags registers the card selection flags shared by study and cards list.
func addQueryFlags(fs *pflag.FlagSet) {
	fs.String("type", "", "Only cards of this word type (noun, verb, adjective, ...)")
	fs.Int("max-level", -1, "Only cards at or below this proficiency level (0 = new cards only)")
	fs.Float64("max-score", -1, "Only cards with a history score at or below this value")
	fs.Int("max-count", 0, "Select at most this many cards (0 = unlimited)")
	fs.String("filter", "", `CEL expression over level, score, history, is_new, word_type, russian, english (e.g. "level < 3 && word_type == 'verb'")`)
}

// queryFromFlags builds a card query from the flags registered by addQueryFlags.
func queryFromFlags(cmd *cobra.Command) (query.Query, error) {
	var q query.Query
	fs := cmd.Flags()

	typ, _ := fs.GetString("type")
	wt, err := cards.ParseWordType(typ)
	if err != nil {
		return q, err
	}
	q.CardType = wt

	if fs.Changed("max-level") {
		lvl, _ := fs.GetInt("max-level")
		if lvl < 0 {
			return q, fmt.Errorf("--max-level must be >= 0")
		}
		q.MaxProficiency = &lvl
	}
	if fs.Changed("max-score") {
		score, _ := fs.GetFloat64("max-score")
		if score < 0 || score > 1 {
			return q, fmt.Errorf("--max-score must be within [0, 1]")
		}
		q.MaxScore = &score
	}

	q.MaxCount, _ = fs.GetInt("max-count")
	if q.MaxCount < 0 {
		return q, fmt.Errorf("--max-count must be >= 0")
	}

	if expr, _ := fs.GetString("filter"); expr != "" {
		f, err := query.ParseFilter(expr)
		if err != nil {
			return q, err
		}
		q.Where = f
	}
	return q, nil
}
