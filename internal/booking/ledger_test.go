package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minds-hub/backend/pkg/timerange"
)

func TestLedger_IncrementDecrement(t *testing.T) {
	s := newMemStore()
	id := s.addActivity("Choir", thursday, timerange.Clock(9, 0), timerange.Clock(10, 0), 2)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return Ledger{}.Increment(ctx, tx, id) }))
	assert.Equal(t, 1, s.activity(id).CurrentParticipants)

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return Ledger{}.Decrement(ctx, tx, id) }))
	assert.Equal(t, 0, s.activity(id).CurrentParticipants)
}

func TestLedger_DecrementAtZeroIsNoop(t *testing.T) {
	s := newMemStore()
	id := s.addActivity("Choir", thursday, timerange.Clock(9, 0), timerange.Clock(10, 0), 2)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return Ledger{}.Decrement(ctx, tx, id) }))
	assert.Equal(t, 0, s.activity(id).CurrentParticipants)
}

func TestLedger_IncrementPastMaxFailsTheStore(t *testing.T) {
	s := newMemStore()
	id := s.addActivity("Tiny", thursday, timerange.Clock(9, 0), timerange.Clock(10, 0), 1)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return Ledger{}.Increment(ctx, tx, id) }))
	err := s.InTx(ctx, func(tx Tx) error { return Ledger{}.Increment(ctx, tx, id) })
	require.ErrorIs(t, err, errCheckViolation)
	_, isRejection := KindOf(err)
	assert.False(t, isRejection)
	assert.Equal(t, 1, s.activity(id).CurrentParticipants)
}

func TestLedger_MissingActivity(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx Tx) error { return Ledger{}.Increment(ctx, tx, uuid.New()) })
	assert.True(t, IsKind(err, KindNotFound))
	err = s.InTx(ctx, func(tx Tx) error { return Ledger{}.Decrement(ctx, tx, uuid.New()) })
	assert.True(t, IsKind(err, KindNotFound))
}
