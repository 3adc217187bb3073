package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile_ProtectedSwap(t *testing.T) {
	existingSpecial := map[string]bool{"甄嬛": true}
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "甄嬛", Target: "甄環"}},
		nil,
		map[string]string{},
		existingSpecial,
	)
	require := assert.New(t)
	require.Equal([]ReplaceOutcome{{Source: "甄環", Target: "甄嬛", Transformation: "swapped (protected)"}}, replace)
	require.Empty(special)
}

func TestReconcile_SourceExistsTransform(t *testing.T) {
	existingReplace := map[string]string{"隨風搖GG": "隨風搖雞雞"}
	existingSpecial := map[string]bool{"隨風搖雞雞": true}
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "隨風搖GG", Target: "隨風搖ㄐㄐ"}},
		nil,
		existingReplace,
		existingSpecial,
	)
	require := assert.New(t)
	require.Len(replace, 1)
	require.Equal("隨風搖ㄐㄐ", replace[0].Source)
	require.Equal("隨風搖雞雞", replace[0].Target)
	require.Empty(special)
}

func TestReconcile_TransformedDuplicateSkip(t *testing.T) {
	existingReplace := map[string]string{"10初": "10粗", "10初初": "10粗"}
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "10初", Target: "10初初"}},
		nil,
		existingReplace,
		map[string]bool{},
	)
	assert.Empty(t, replace)
	assert.Empty(t, special)
}

func TestReconcile_AutoSeedSpecial(t *testing.T) {
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "眉姊姊", Target: "眉姐姐"}},
		nil,
		map[string]string{},
		map[string]bool{},
	)
	require := assert.New(t)
	require.Len(replace, 1)
	require.Equal("眉姊姊", replace[0].Source)
	require.Equal("眉姐姐", replace[0].Target)
	require.Len(special, 1)
	require.Equal("眉姐姐", special[0].Word)
	require.True(special[0].AutoAdded)
}

func TestReconcile_Degenerate(t *testing.T) {
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "甄嬛", Target: "甄嬛"}},
		nil,
		map[string]string{},
		map[string]bool{},
	)
	assert.Empty(t, replace)
	assert.Empty(t, special)
}

func TestReconcile_ChainedSwapThenDedup(t *testing.T) {
	existingSpecial := map[string]bool{"眉姐姐": true}
	existingReplace := map[string]string{"眉姊姊": "眉姐姐"}
	replace, special := Reconcile(
		[]ReplaceProposal{{Source: "眉姐姐", Target: "眉姊姊"}},
		nil,
		existingReplace,
		existingSpecial,
	)
	assert.Empty(t, replace)
	assert.Empty(t, special)
}

func TestReconcile_SpecialProposalSkipsExisting(t *testing.T) {
	_, special := Reconcile(nil, []SpecialProposal{{Word: "87", Type: "slang"}}, map[string]string{}, map[string]bool{"87": true})
	assert.Empty(t, special)
}

func TestReconcile_SpecialProposalEmitsNew(t *testing.T) {
	_, special := Reconcile(nil, []SpecialProposal{{Word: "87", Type: "slang", Confidence: 0.9}}, map[string]string{}, map[string]bool{})
	require := assert.New(t)
	require.Len(special, 1)
	require.Equal("87", special[0].Word)
	require.False(special[0].AutoAdded)
}
