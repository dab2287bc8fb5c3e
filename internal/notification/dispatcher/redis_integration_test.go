//go:build integration

package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"barangay/internal/notification/dispatcher"
	"barangay/pkg/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	queue *dispatcher.RedisQueue
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.redis.Reset(context.Background()))
	s.queue = dispatcher.NewRedisQueue(s.redis.Client.Client, "test:notifications", 2)
}

func (s *RedisQueueSuite) TestFIFOOrder() {
	ctx := context.Background()
	s.Require().NoError(s.queue.Push(ctx, dispatcher.Message{Kind: dispatcher.KindSubmitted, Phone: "1", Body: "first", RequestID: 1}))
	s.Require().NoError(s.queue.Push(ctx, dispatcher.Message{Kind: dispatcher.KindApproved, Phone: "1", Body: "second", RequestID: 1}))
	s.Equal(2, s.queue.Len())

	first, err := s.queue.Pop(ctx)
	s.Require().NoError(err)
	s.Equal("first", first.Body)
	second, err := s.queue.Pop(ctx)
	s.Require().NoError(err)
	s.Equal(dispatcher.KindApproved, second.Kind)
}

func (s *RedisQueueSuite) TestPushRejectsWhenFull() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.queue.Push(ctx, dispatcher.Message{Phone: "1", Body: "x"}))
	}
	s.ErrorIs(s.queue.Push(ctx, dispatcher.Message{Phone: "1", Body: "overflow"}), dispatcher.ErrQueueFull)
}

func (s *RedisQueueSuite) TestPopHonoursCancellation() {
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	_, err := s.queue.Pop(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
}
