package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Drift is an account whose stored balance disagrees with its journal.
type Drift struct {
	Account Account         `json:"account"`
	Balance decimal.Decimal `json:"balance"`
	Journal decimal.Decimal `json:"journal"`
	Diff    decimal.Decimal `json:"diff"`
}

// Verify compares stored balances with the sum of applied journal amounts.
func Verify(balances, sums map[Account]decimal.Decimal) []Drift {
	accts := make([]Account, 0, len(balances)+len(sums))
	for acct := range balances {
		accts = append(accts, acct)
	}
	for acct := range sums {
		if _, ok := balances[acct]; !ok {
			accts = append(accts, acct)
		}
	}
	sortAccounts(accts)

	var drifts []Drift
	for _, acct := range accts {
		bal, sum := balances[acct], sums[acct]
		if bal.Equal(sum) {
			continue
		}
		drifts = append(drifts, Drift{Account: acct, Balance: bal, Journal: sum, Diff: bal.Sub(sum)})
	}
	return drifts
}

// SourceEffects pairs a document with the effects it had when it was exported.
type SourceEffects struct {
	Source   Source
	Effects  []Effect
	PostedAt time.Time
}

// OpeningSource keys every opening and import adjustment entry. The account
// of the entry, not the source id, says which balance it belongs to.
var OpeningSource = Source{Kind: SourceOpening}

// Rebuild reconstructs a journal for imported data. Sources are replayed in
// PostedAt order with the same clamping Post uses, so each entry records what
// the document could really have moved. Per account the smallest opening
// balance that replays to the imported balance is chosen; a balance below
// what the documents explain gets a closing adjustment instead.
func Rebuild(balances map[Account]decimal.Decimal, sources []SourceEffects, now time.Time) []Entry {
	ordered := make([]SourceEffects, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PostedAt.Before(ordered[j].PostedAt)
	})

	steps := make(map[Account][]decimal.Decimal)
	merged := make([][]Effect, len(ordered))
	for i, src := range ordered {
		merged[i] = mergeEffects(src.Effects)
		for _, eff := range merged[i] {
			steps[eff.Account] = append(steps[eff.Account], eff.Amount)
		}
	}

	accts := make([]Account, 0, len(balances)+len(steps))
	for acct := range balances {
		accts = append(accts, acct)
	}
	for acct := range steps {
		if _, ok := balances[acct]; !ok {
			accts = append(accts, acct)
		}
	}
	sortAccounts(accts)

	openings := make(map[Account]decimal.Decimal, len(accts))
	closings := make(map[Account]decimal.Decimal)
	for _, acct := range accts {
		target := balances[acct]
		fromZero, total := replay(decimal.Zero, steps[acct])
		switch {
		case target.Equal(fromZero):
		case target.GreaterThan(fromZero):
			openings[acct] = target.Sub(total)
		default:
			closings[acct] = target.Sub(fromZero)
		}
	}

	at := now.UTC()
	running := make(map[Account]decimal.Decimal, len(accts))
	var entries []Entry
	for _, acct := range accts {
		opening, ok := openings[acct]
		if !ok || opening.IsZero() {
			continue
		}
		running[acct] = opening
		entries = append(entries, Entry{
			Account:      acct,
			Source:       OpeningSource,
			Requested:    opening,
			Applied:      opening,
			BalanceAfter: opening,
			Memo:         "opening balance",
			PostedAt:     at,
		})
	}
	for i, src := range ordered {
		postedAt := src.PostedAt
		if postedAt.IsZero() {
			postedAt = now
		}
		for _, eff := range merged[i] {
			next, applied := Clamp(running[eff.Account], eff.Amount)
			running[eff.Account] = next
			entries = append(entries, Entry{
				Account:      eff.Account,
				Source:       src.Source,
				Requested:    eff.Amount,
				Applied:      applied,
				BalanceAfter: next,
				Memo:         "imported",
				PostedAt:     postedAt.UTC(),
			})
		}
	}
	for _, acct := range accts {
		closing, ok := closings[acct]
		if !ok {
			continue
		}
		next, applied := Clamp(running[acct], closing)
		running[acct] = next
		entries = append(entries, Entry{
			Account:      acct,
			Source:       OpeningSource,
			Requested:    closing,
			Applied:      applied,
			BalanceAfter: next,
			Memo:         "import adjustment",
			PostedAt:     at,
		})
	}
	return entries
}

// replay applies steps from start with clamping and returns the final balance
// together with the unclamped sum of the steps.
func replay(start decimal.Decimal, steps []decimal.Decimal) (final, total decimal.Decimal) {
	final = start
	for _, amount := range steps {
		final, _ = Clamp(final, amount)
		total = total.Add(amount)
	}
	return final, total
}
