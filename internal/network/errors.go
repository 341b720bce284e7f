package network

import "fmt"

// AmbiguousContractionError reports a contraction whose result indices
// cannot be inferred: a hyperindex is fully internal to the contracted group
// and no explicit output indices were given. Surfaced rather than guessed.
type AmbiguousContractionError struct {
	Ind string
}

func (e *AmbiguousContractionError) Error() string {
	return fmt.Sprintf("network: hyperindex %q makes the contraction output ambiguous; specify OutputInds", e.Ind)
}

// BudgetError reports that the estimated contraction width exceeds the
// caller's budget. It is surfaced before any contraction work or network
// mutation, so the caller can slice or abort.
type BudgetError struct {
	Width  float64 // log2 of the largest intermediate's element count
	Budget float64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("network: contraction width %.2f exceeds budget %.2f", e.Width, e.Budget)
}
