package discount

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/discount-engine/internal/domain/order"
)

type mockOrderCounter struct {
	count int
	err   error

	gotCustomerID string
	gotStatuses   []order.Status
	gotExcludeID  string
}

func (m *mockOrderCounter) CountByStatus(_ context.Context, customerID string, statuses []order.Status, excludeOrderID string) (int, error) {
	m.gotCustomerID = customerID
	m.gotStatuses = statuses
	m.gotExcludeID = excludeOrderID
	return m.count, m.err
}

func TestLoyaltyEvaluator_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  bool
	}{
		{name: "four prior orders is not loyal", count: 4, want: false},
		{name: "five prior orders is loyal", count: 5, want: true},
		{name: "more than five is loyal", count: 12, want: true},
		{name: "zero is not loyal", count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewLoyaltyEvaluator(&mockOrderCounter{count: tt.count})
			got, err := e.IsLoyal(context.Background(), "cust-1", "order-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoyaltyEvaluator_QueryShape(t *testing.T) {
	counter := &mockOrderCounter{count: 5}
	e := NewLoyaltyEvaluator(counter)

	_, err := e.IsLoyal(context.Background(), "cust-1", "order-under-evaluation")
	require.NoError(t, err)

	assert.Equal(t, "cust-1", counter.gotCustomerID)
	assert.Equal(t, "order-under-evaluation", counter.gotExcludeID)
	assert.ElementsMatch(t,
		[]order.Status{order.StatusCompleted, order.StatusShipped},
		counter.gotStatuses)
}

func TestLoyaltyEvaluator_CounterError(t *testing.T) {
	e := NewLoyaltyEvaluator(&mockOrderCounter{err: errors.New("db down")})

	loyal, err := e.IsLoyal(context.Background(), "cust-1", "order-1")
	require.Error(t, err)
	assert.False(t, loyal)
}
