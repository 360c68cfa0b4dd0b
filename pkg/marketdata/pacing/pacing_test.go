package pacing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/stretchr/testify/suite"
)

type PacingTestSuite struct {
	suite.Suite
	ok     types.FetchOutcome
	failed types.FetchOutcome
}

func TestPacingSuite(t *testing.T) {
	suite.Run(t, new(PacingTestSuite))
}

func (suite *PacingTestSuite) SetupTest() {
	suite.ok = types.Empty()
	suite.failed = types.Failed(fmt.Errorf("boom"))
}

func (suite *PacingTestSuite) TestFixedWaitsAtLeastDelay() {
	policy := Fixed(30 * time.Millisecond)

	start := time.Now()
	suite.NoError(policy.WaitBeforeNext(context.Background(), suite.ok))
	suite.GreaterOrEqual(time.Since(start), 30*time.Millisecond)

	suite.Equal(30*time.Millisecond, policy.NextDelay(suite.failed))
}

func (suite *PacingTestSuite) TestWaitIsCancellable() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Fixed(time.Hour).WaitBeforeNext(ctx, suite.ok)
	suite.ErrorIs(err, context.Canceled)
	suite.Less(time.Since(start), time.Second)
}

func (suite *PacingTestSuite) TestAlreadyCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite.ErrorIs(Fixed(time.Millisecond).WaitBeforeNext(ctx, suite.ok), context.Canceled)
	suite.ErrorIs(None().WaitBeforeNext(ctx, suite.ok), context.Canceled)
}

func (suite *PacingTestSuite) TestNone() {
	suite.NoError(None().WaitBeforeNext(context.Background(), suite.failed))
	suite.Equal(time.Duration(0), None().NextDelay(suite.failed))
}

func (suite *PacingTestSuite) TestBackoffGrowsOnConsecutiveFailures() {
	policy := Backoff(BackoffConfig{Base: time.Second, Max: 10 * time.Second, Factor: 2})

	suite.Equal(time.Second, policy.NextDelay(suite.failed))
	suite.Equal(2*time.Second, policy.NextDelay(suite.failed))
	suite.Equal(4*time.Second, policy.NextDelay(suite.failed))
	suite.Equal(8*time.Second, policy.NextDelay(suite.failed))
	suite.Equal(10*time.Second, policy.NextDelay(suite.failed))
	suite.Equal(10*time.Second, policy.NextDelay(suite.failed))

	suite.Equal(time.Second, policy.NextDelay(suite.ok))
	suite.Equal(time.Second, policy.NextDelay(suite.failed), "streak resets after a non-failed outcome")
}

func (suite *PacingTestSuite) TestBackoffNeverBelowBase() {
	policy := Backoff(BackoffConfig{Base: 500 * time.Millisecond, Max: 0, Factor: 0})

	for range 20 {
		suite.GreaterOrEqual(policy.NextDelay(suite.failed), 500*time.Millisecond)
		suite.LessOrEqual(policy.NextDelay(suite.failed), 30*time.Second)
	}

	suite.Equal(500*time.Millisecond, policy.NextDelay(suite.ok))
}

func (suite *PacingTestSuite) TestNewPolicy() {
	policy, err := NewPolicy(Config{Policy: "", Delay: time.Second}) //nolint:exhaustruct
	suite.NoError(err)
	suite.IsType(&FixedPolicy{}, policy) //nolint:exhaustruct

	policy, err = NewPolicy(Config{Policy: PolicyBackoff, Delay: time.Second, MaxDelay: time.Minute, Factor: 3})
	suite.NoError(err)
	suite.IsType(&BackoffPolicy{}, policy) //nolint:exhaustruct

	policy, err = NewPolicy(Config{Policy: PolicyNone}) //nolint:exhaustruct
	suite.NoError(err)
	suite.IsType(&NonePolicy{}, policy)

	_, err = NewPolicy(Config{Policy: PolicyFixed, Delay: 0}) //nolint:exhaustruct
	suite.Error(err)

	_, err = NewPolicy(Config{Policy: PolicyBackoff, Delay: -time.Second}) //nolint:exhaustruct
	suite.Error(err)

	_, err = NewPolicy(Config{Policy: "random", Delay: time.Second}) //nolint:exhaustruct
	suite.Error(err)
}
