package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

func sampleRequest(id string, at time.Time) catalogue.Request {
	return catalogue.Request{
		RequestID:   id,
		Postcode:    "3220",
		ProductName: "Sourdough Loaf",
		Discount:    10,
		PhoneNumber: "0400000000",
		SubmittedAt: at,
	}
}

func TestCreateAndListOrdersBySubmission(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, sampleRequest("r-2", base.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, sampleRequest("r-1", base)))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "r-1", got[0].RequestID)
	require.Equal(t, "r-2", got[1].RequestID)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	at := time.Now().UTC()
	require.NoError(t, s.Create(ctx, sampleRequest("r-1", at)))
	require.Error(t, s.Create(ctx, sampleRequest("r-1", at)))
}

func TestDeleteRemovesRequest(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleRequest("r-1", time.Now().UTC())))
	require.NoError(t, s.Delete(ctx, "r-1"))
	require.ErrorIs(t, s.Delete(ctx, "r-1"), ErrNotFound)
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleRequest("r-1", time.Now().UTC())))

	discount := 25.0
	require.NoError(t, s.Update(ctx, "r-1", catalogue.RequestUpdate{Discount: &discount}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 25.0, got[0].Discount)
	require.Equal(t, "Sourdough Loaf", got[0].ProductName)
	require.Equal(t, "0400000000", got[0].PhoneNumber)
}

func TestUpdateUnknownRequest(t *testing.T) {
	t.Parallel()

	s := NewStore()
	name := "Eggs"
	err := s.Update(context.Background(), "missing", catalogue.RequestUpdate{ProductName: &name})
	require.ErrorIs(t, err, ErrNotFound)
}
