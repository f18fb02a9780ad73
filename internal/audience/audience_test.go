package audience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-console/internal/apperr"
	"directory-console/internal/logging"
	"directory-console/internal/models"
)

func intPtr(v int) *int { return &v }

func TestSetDimensionIsPure(t *testing.T) {
	base := models.FilterCriteria{AreaIDs: []string{"Area1"}, AgeRange: models.AgeRange{Max: intPtr(60)}}

	next, err := SetDimension(base, DimMinAge, 18)
	require.NoError(t, err)
	require.NotNil(t, next.AgeRange.Min)
	assert.Equal(t, 18, *next.AgeRange.Min)
	assert.Equal(t, 60, *next.AgeRange.Max)
	assert.Nil(t, base.AgeRange.Min)

	next, err = SetDimension(next, DimGenders, []string{"2", "1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, next.GenderIDs)
	assert.Equal(t, []string{"Area1"}, next.AreaIDs)
	assert.Empty(t, base.GenderIDs)

	next.AreaIDs[0] = "changed"
	assert.Equal(t, "Area1", base.AreaIDs[0])
}

func TestSetDimensionClearsAge(t *testing.T) {
	base := models.FilterCriteria{AgeRange: models.AgeRange{Min: intPtr(18), Max: intPtr(30)}}

	next, err := SetDimension(base, DimMaxAge, nil)
	require.NoError(t, err)
	assert.Nil(t, next.AgeRange.Max)
	assert.Equal(t, 18, *next.AgeRange.Min)

	var none *int
	next, err = SetDimension(next, DimMinAge, none)
	require.NoError(t, err)
	assert.False(t, next.AgeRange.IsSet())
}

func TestSetDimensionRejectsBadValues(t *testing.T) {
	base := models.FilterCriteria{AgeRange: models.AgeRange{Min: intPtr(40)}}

	_, err := SetDimension(base, DimMaxAge, 30)
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.NotEmpty(t, v.Field(DimMaxAge))

	_, err = SetDimension(base, DimMinAge, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = SetDimension(base, DimAreas, 7)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = SetDimension(base, "planets", []string{"x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddAndRemoveMembers(t *testing.T) {
	c := AddMembers(models.FilterCriteria{}, "m1", "m2")
	c = AddMembers(c, "m2", "m3", "m1")
	assert.Equal(t, []string{"m1", "m2", "m3"}, c.MemberIDs)

	removed := RemoveMember(c, "m2")
	assert.Equal(t, []string{"m1", "m3"}, removed.MemberIDs)
	assert.Equal(t, []string{"m1", "m2", "m3"}, c.MemberIDs)

	assert.Empty(t, RemoveMember(models.FilterCriteria{}, "m1").MemberIDs)
}

type gatedCounter struct {
	mu      sync.Mutex
	calls   []models.FilterCriteria
	release map[string]chan int
}

func newGatedCounter() *gatedCounter {
	return &gatedCounter{release: make(map[string]chan int)}
}

func (g *gatedCounter) gate(area string) chan int {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.release[area]
	if !ok {
		ch = make(chan int, 1)
		g.release[area] = ch
	}
	return ch
}

// CountRecipients blocks until the area's gate is released, ignoring
// cancellation so late responses can be simulated.
func (g *gatedCounter) CountRecipients(_ context.Context, criteria models.FilterCriteria) (int, error) {
	g.mu.Lock()
	g.calls = append(g.calls, criteria)
	g.mu.Unlock()
	return <-g.gate(criteria.AreaIDs[0]), nil
}

func TestEstimateRejectsEmptyCriteria(t *testing.T) {
	g := newGatedCounter()
	e := NewEstimator(g, logging.Discard())

	_, err := e.Estimate(context.Background(), models.FilterCriteria{AreaIDs: []string{}})
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	f, _ := v.First()
	assert.Equal(t, FilterCriteriaName, f.Field)
	assert.Equal(t, "At least one filter must be set to target recipients", f.Message)
	assert.Empty(t, g.calls)
}

func TestLatestIssuedEstimateWins(t *testing.T) {
	g := newGatedCounter()
	e := NewEstimator(g, logging.Discard())
	ctx := context.Background()

	aDone := make(chan error, 1)
	go func() {
		_, err := e.Estimate(ctx, models.FilterCriteria{AreaIDs: []string{"A"}})
		aDone <- err
	}()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.calls) == 1
	}, time.Second, time.Millisecond)

	bDone := make(chan int, 1)
	go func() {
		n, err := e.Estimate(ctx, models.FilterCriteria{AreaIDs: []string{"B"}})
		assert.NoError(t, err)
		bDone <- n
	}()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.calls) == 2
	}, time.Second, time.Millisecond)

	// B resolves first, A afterwards.
	g.gate("B") <- 2
	assert.Equal(t, 2, <-bDone)
	g.gate("A") <- 9
	assert.ErrorIs(t, <-aDone, ErrSuperseded)

	cur, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, 2, cur.Count)
	assert.Equal(t, []string{"B"}, cur.Criteria.AreaIDs)
}

type funcCounter func(ctx context.Context, c models.FilterCriteria) (int, error)

func (f funcCounter) CountRecipients(ctx context.Context, c models.FilterCriteria) (int, error) {
	return f(ctx, c)
}

func TestNewEstimateCancelsPrevious(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	first := true
	var mu sync.Mutex
	e := NewEstimator(funcCounter(func(ctx context.Context, c models.FilterCriteria) (int, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if !isFirst {
			return 3, nil
		}
		close(started)
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	}), logging.Discard())

	errs := make(chan error, 1)
	go func() {
		_, err := e.Estimate(context.Background(), models.FilterCriteria{GenderIDs: []string{"1"}})
		errs <- err
	}()
	<-started

	n, err := e.Estimate(context.Background(), models.FilterCriteria{GenderIDs: []string{"2"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	<-cancelled
	assert.ErrorIs(t, <-errs, ErrSuperseded)
}

func TestEstimateErrorKeepsPreviousResult(t *testing.T) {
	fail := false
	e := NewEstimator(funcCounter(func(context.Context, models.FilterCriteria) (int, error) {
		if fail {
			return 0, errors.New("down")
		}
		return 4, nil
	}), logging.Discard())
	ctx := context.Background()

	_, err := e.Estimate(ctx, models.FilterCriteria{AreaIDs: []string{"Area1"}})
	require.NoError(t, err)

	fail = true
	_, err = e.Estimate(ctx, models.FilterCriteria{AreaIDs: []string{"Area2"}})
	require.Error(t, err)

	cur, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, 4, cur.Count)
}

func TestClosedEstimatorDiscardsResults(t *testing.T) {
	g := newGatedCounter()
	e := NewEstimator(g, logging.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := e.Estimate(context.Background(), models.FilterCriteria{AreaIDs: []string{"A"}})
		done <- err
	}()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.calls) == 1
	}, time.Second, time.Millisecond)

	e.Close()
	g.gate("A") <- 5
	assert.ErrorIs(t, <-done, ErrClosed)

	_, ok := e.Current()
	assert.False(t, ok)

	_, err := e.Estimate(context.Background(), models.FilterCriteria{AreaIDs: []string{"A"}})
	assert.ErrorIs(t, err, ErrClosed)
}
