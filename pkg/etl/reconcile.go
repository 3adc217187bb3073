package etl

import "fmt"

// ReplaceProposal is one AI-proposed replace-dictionary delta (spec
// §4.5.2 input proposed_replace).
type ReplaceProposal struct {
	Source     string
	Target     string
	Confidence float64
	Examples   []string
}

// SpecialProposal is one AI-proposed special-word delta (spec §4.5.2
// input proposed_special).
type SpecialProposal struct {
	Word       string
	Type       string
	Confidence float64
	Examples   []string
}

// ReplaceOutcome is one reconciled, ready-to-stage replace-dictionary
// item.
type ReplaceOutcome struct {
	Source         string
	Target         string
	Transformation string
	Confidence     float64
	Examples       []string
}

// SpecialOutcome is one reconciled, ready-to-stage special-word item.
type SpecialOutcome struct {
	Word       string
	Type       string
	AutoAdded  bool
	Confidence float64
	Examples   []string
}

// Reconcile is the pure reconciliation function of spec §4.5.2: given
// a batch of AI proposals and the currently active dictionaries, it
// returns the items that should be staged as PendingReplaceWord /
// PendingSpecialWord rows. It has no side effects and depends only on
// its arguments (spec §8: "Reconciliation determinism").
func Reconcile(
	proposedReplace []ReplaceProposal,
	proposedSpecial []SpecialProposal,
	existingReplace map[string]string,
	existingSpecial map[string]bool,
) (filteredReplace []ReplaceOutcome, filteredSpecial []SpecialOutcome) {
	replaceSources := make(map[string]bool, len(existingReplace))
	protected := make(map[string]bool, len(existingReplace)+len(existingSpecial))
	for source, target := range existingReplace {
		replaceSources[source] = true
		protected[target] = true
	}
	for word := range existingSpecial {
		protected[word] = true
	}

	// currentSpecial accumulates R5 auto-seeds (and emitted proposals) so
	// duplicates within the same reconciliation batch are suppressed.
	currentSpecial := make(map[string]bool, len(existingSpecial))
	for word := range existingSpecial {
		currentSpecial[word] = true
	}

	for _, p := range proposedReplace {
		if outcome, ok := reconcileReplace(p, existingReplace, replaceSources, protected); ok {
			filteredReplace = append(filteredReplace, outcome)

			// R5 — Auto-seed special.
			if !currentSpecial[outcome.Target] {
				auto := SpecialOutcome{
					Word:       outcome.Target,
					Type:       "auto_from_replace",
					Confidence: 1.0,
					AutoAdded:  true,
				}
				filteredSpecial = append(filteredSpecial, auto)
				currentSpecial[outcome.Target] = true
			}
		}
	}

	for _, p := range proposedSpecial {
		// R6 — Skip existing.
		if currentSpecial[p.Word] {
			continue
		}
		filteredSpecial = append(filteredSpecial, SpecialOutcome{
			Word:       p.Word,
			Type:       p.Type,
			Confidence: p.Confidence,
			Examples:   p.Examples,
		})
		currentSpecial[p.Word] = true
	}

	return filteredReplace, filteredSpecial
}

// reconcileReplace applies R0–R4 to a single replace proposal.
func reconcileReplace(p ReplaceProposal, existingReplace map[string]string, replaceSources, protected map[string]bool) (ReplaceOutcome, bool) {
	source, target := p.Source, p.Target

	// R0 — Degenerate.
	if source == target {
		return ReplaceOutcome{}, false
	}

	transformation := ""

	// R1 — Protected swap.
	if protected[source] {
		source, target = target, source
		transformation = "swapped (protected)"
		if existingReplace[source] == target {
			return ReplaceOutcome{}, false // duplicate after swap
		}
	}

	// R2 — Source-exists transform.
	if replaceSources[source] {
		dbTarget := existingReplace[source]
		origSource, origTarget := source, target
		source, target = target, dbTarget
		transformation = fmt.Sprintf("transformed: %s→%s ⇒ %s→%s", origSource, origTarget, source, target)

		// R3 — Post-transform dedup.
		if replaceSources[source] {
			return ReplaceOutcome{}, false
		}
	}

	// R4 — Accept.
	return ReplaceOutcome{
		Source:         source,
		Target:         target,
		Transformation: transformation,
		Confidence:     p.Confidence,
		Examples:       p.Examples,
	}, true
}
