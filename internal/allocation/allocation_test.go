package allocation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusReserved, StatusAllocated, true},
		{StatusAllocated, StatusPicked, true},
		{StatusPicked, StatusShipped, true},
		{StatusReserved, StatusCancelled, true},
		{StatusAllocated, StatusCancelled, true},
		{StatusPicked, StatusCancelled, true},
		{StatusReserved, StatusPicked, false},
		{StatusReserved, StatusShipped, false},
		{StatusAllocated, StatusShipped, false},
		{StatusShipped, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusReserved, false},
		{Status("bogus"), StatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestTransition_WrapsValidation(t *testing.T) {
	err := Transition(StatusReserved, StatusPicked)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, Transition(StatusReserved, StatusAllocated))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusReserved.IsActive())
	assert.True(t, StatusShipped.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.True(t, StatusShipped.IsTerminal())
	assert.False(t, StatusPicked.IsTerminal())
	assert.Equal(t, TierProduct, TierFor(StatusReserved))
	assert.Equal(t, TierBatch, TierFor(StatusPicked))
}

func TestCheckTierBatch(t *testing.T) {
	id := uuid.New()
	assert.NoError(t, CheckTierBatch(TierProduct, nil))
	assert.NoError(t, CheckTierBatch(TierBatch, &id))
	assert.ErrorIs(t, CheckTierBatch(TierProduct, &id), ErrValidation)
	assert.ErrorIs(t, CheckTierBatch(TierBatch, nil), ErrValidation)
	nilID := uuid.Nil
	assert.ErrorIs(t, CheckTierBatch(TierBatch, &nilID), ErrValidation)
	assert.ErrorIs(t, CheckTierBatch(Tier("x"), nil), ErrValidation)
}

func TestEffectiveATS(t *testing.T) {
	assert.Equal(t, 7, EffectiveATS(10, nil, 3))
	override := 4
	assert.Equal(t, 1, EffectiveATS(10, &override, 3))
	assert.Equal(t, -2, EffectiveATS(1, nil, 3))
}

func TestStockLevel(t *testing.T) {
	assert.Equal(t, LevelOutOfStock, StockLevel(0, 5))
	assert.Equal(t, LevelOutOfStock, StockLevel(-3, 5))
	assert.Equal(t, LevelLow, StockLevel(5, 5))
	assert.Equal(t, LevelOK, StockLevel(6, 5))
}

func TestCheckOversell(t *testing.T) {
	w, err := CheckOversell("Buxus 9cm", 10, 10, false)
	assert.NoError(t, err)
	assert.Empty(t, w)

	_, err = CheckOversell("Buxus 9cm", 10, 4, false)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	w, err = CheckOversell("Buxus 9cm", 10, 4, true)
	assert.NoError(t, err)
	assert.Contains(t, w, "short 6")

	w, err = CheckOversell("Buxus 9cm", 3, -2, true)
	assert.NoError(t, err)
	assert.Contains(t, w, "0 available")
}

func TestShortage(t *testing.T) {
	assert.Nil(t, Shortage(10, 10))
	s := Shortage(10, 7)
	require.NotNil(t, s)
	assert.Equal(t, 3, *s)
	s = Shortage(5, 0)
	require.NotNil(t, s)
	assert.Equal(t, 5, *s)
}

func TestValidatePickedQuantity(t *testing.T) {
	assert.NoError(t, ValidatePickedQuantity(10, 0))
	assert.NoError(t, ValidatePickedQuantity(10, 10))
	assert.ErrorIs(t, ValidatePickedQuantity(10, 11), ErrValidation)
	assert.ErrorIs(t, ValidatePickedQuantity(10, -1), ErrValidation)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("x: %w", ErrValidation)))
	assert.Equal(t, KindStock, KindOf(fmt.Errorf("x: %w", ErrInsufficientStock)))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, KindInfrastructure, KindOf(errors.New("connection reset")))
}
