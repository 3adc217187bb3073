package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/GallonShih/hermes/pkg/models"
	"github.com/GallonShih/hermes/pkg/store"
)

// DiscoveryStore is the subset of store.Store the word-discovery job needs.
type DiscoveryStore interface {
	GetActiveDictionaries(ctx context.Context) (*store.ActiveDictionaries, error)
	ListRecentMessagesForDiscovery(ctx context.Context, since time.Time) ([]*models.ChatMessage, error)
	StagePendingReplace(ctx context.Context, w *models.PendingReplaceWord) error
	StagePendingSpecial(ctx context.Context, w *models.PendingSpecialWord) error
}

// Proposer is the external collaborator of spec §6.4.
type Proposer interface {
	Propose(ctx context.Context, messages []proposeMessage, protected []string) ([]ReplaceProposal, []SpecialProposal, error)
}

// DiscoveryWindow is how far back discover_new_words looks for recently
// processed messages (spec §4.5.2, default matches the 3h cadence).
const DiscoveryWindow = 3 * time.Hour

// WordDiscoveryJob runs discover_new_words once: it gathers a recent
// window of processed messages, asks the AI collaborator for proposals,
// reconciles them against the active dictionaries with Reconcile, and
// stages every surviving item as a pending row awaiting human review.
type WordDiscoveryJob struct {
	Store    DiscoveryStore
	Proposer Proposer
	Window   time.Duration
}

func (j *WordDiscoveryJob) windowOrDefault() time.Duration {
	if j.Window > 0 {
		return j.Window
	}
	return DiscoveryWindow
}

func (j *WordDiscoveryJob) Run(ctx context.Context) (recordsProcessed int, err error) {
	dicts, err := j.Store.GetActiveDictionaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("etl: load active dictionaries: %w", err)
	}

	existingReplace := make(map[string]string, len(dicts.Replace))
	for _, w := range dicts.Replace {
		existingReplace[w.Source] = w.Target
	}
	existingSpecial := make(map[string]bool, len(dicts.Special))
	for _, w := range dicts.Special {
		existingSpecial[w.Word] = true
	}

	since := time.Now().Add(-j.windowOrDefault())
	recent, err := j.Store.ListRecentMessagesForDiscovery(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("etl: list recent messages: %w", err)
	}
	if len(recent) == 0 {
		return 0, nil
	}

	messages := make([]proposeMessage, 0, len(recent))
	for _, m := range recent {
		text := m.Message
		if m.ProcessedText != nil {
			text = *m.ProcessedText
		}
		messages = append(messages, proposeMessage{MessageID: m.MessageID, Text: text, Tokens: m.Tokens})
	}

	protected := make([]string, 0, len(existingReplace)+len(existingSpecial))
	for _, target := range existingReplace {
		protected = append(protected, target)
	}
	for word := range existingSpecial {
		protected = append(protected, word)
	}

	proposedReplace, proposedSpecial, err := j.Proposer.Propose(ctx, messages, protected)
	if err != nil {
		return 0, fmt.Errorf("etl: ai propose call: %w", err)
	}
	if len(proposedReplace) == 0 && len(proposedSpecial) == 0 {
		return 0, nil
	}

	filteredReplace, filteredSpecial := Reconcile(
		proposedReplace,
		proposedSpecial,
		existingReplace,
		existingSpecial,
	)

	now := time.Now()
	staged := 0
	for _, r := range filteredReplace {
		w := &models.PendingReplaceWord{
			Source:          r.Source,
			Target:          r.Target,
			Status:          models.PendingStatusPending,
			ConfidenceScore: r.Confidence,
			OccurrenceCount: len(r.Examples),
			ExampleMessages: r.Examples,
			Transformation:  r.Transformation,
			DiscoveredAt:    now,
		}
		if err := j.Store.StagePendingReplace(ctx, w); err != nil {
			return staged, fmt.Errorf("etl: stage pending replace %s: %w", r.Source, err)
		}
		staged++
	}

	for _, sp := range filteredSpecial {
		w := &models.PendingSpecialWord{
			Word:            sp.Word,
			Type:            sp.Type,
			Status:          models.PendingStatusPending,
			ConfidenceScore: sp.Confidence,
			OccurrenceCount: len(sp.Examples),
			ExampleMessages: sp.Examples,
			AutoAdded:       sp.AutoAdded,
			DiscoveredAt:    now,
		}
		if err := j.Store.StagePendingSpecial(ctx, w); err != nil {
			return staged, fmt.Errorf("etl: stage pending special %s: %w", sp.Word, err)
		}
		staged++
	}

	return staged, nil
}
