package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordIfNewFirstThenDuplicate(t *testing.T) {
	t.Parallel()

	set := NewPostcodeSet()
	ctx := context.Background()

	isNew, err := set.RecordIfNew(ctx, "3220")
	require.NoError(t, err)
	require.True(t, isNew)

	isNew, err = set.RecordIfNew(ctx, "3220")
	require.NoError(t, err)
	require.False(t, isNew)
}

func TestRecordIfNewRejectsEmpty(t *testing.T) {
	t.Parallel()

	set := NewPostcodeSet()
	_, err := set.RecordIfNew(context.Background(), "")
	require.Error(t, err)
}

func TestListAllSorted(t *testing.T) {
	t.Parallel()

	set := NewPostcodeSet()
	ctx := context.Background()
	for _, pc := range []string{"3220", "2000", "4000"} {
		_, err := set.RecordIfNew(ctx, pc)
		require.NoError(t, err)
	}

	got, err := set.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2000", "3220", "4000"}, got)
}

func TestScanCompletionBookkeeping(t *testing.T) {
	t.Parallel()

	set := NewPostcodeSet()
	ctx := context.Background()

	last, err := set.LastScanCompleted(ctx)
	require.NoError(t, err)
	require.True(t, last.IsZero())

	at := time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC)
	require.NoError(t, set.MarkScanCompleted(ctx, at))

	last, err = set.LastScanCompleted(ctx)
	require.NoError(t, err)
	require.Equal(t, at, last)
}
