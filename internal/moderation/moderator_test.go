package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_FlagsBannedWords(t *testing.T) {
	moderator, err := NewModerator([]string{"badword", "worse"})
	require.NoError(t, err)

	require.True(t, moderator.IsProfane("badword"))
	require.True(t, moderator.IsProfane("that was worse than expected"))
	require.False(t, moderator.IsProfane("a perfectly fine sentence"))
}

func TestModerator_MatchingIsCaseInsensitive(t *testing.T) {
	moderator, err := NewModerator([]string{"BadWord"})
	require.NoError(t, err)

	require.True(t, moderator.IsProfane("BADWORD"))
	require.True(t, moderator.IsProfane("badword"))
	require.True(t, moderator.IsProfane("BaDwOrD"))
}

func TestModerator_MatchesInsideCompounds(t *testing.T) {
	moderator, err := NewModerator([]string{"badword"})
	require.NoError(t, err)

	require.True(t, moderator.IsProfane("superbadwordish"))
}

func TestModerator_IgnoresBlankEntries(t *testing.T) {
	moderator, err := NewModerator([]string{"  ", "", "badword "})
	require.NoError(t, err)

	require.True(t, moderator.IsProfane("badword"))
	require.False(t, moderator.IsProfane("clean"))
}

func TestModerator_EmptyListFlagsNothing(t *testing.T) {
	moderator, err := NewModerator(nil)
	require.NoError(t, err)

	require.False(t, moderator.IsProfane("anything at all"))
}
