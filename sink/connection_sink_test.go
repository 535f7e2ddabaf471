package sink

import (
	"collab-lab/domain/event"
	"collab-lab/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Consume(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewConnectionSink(1)

	// Given an empty buffer of one
	req.NotEmpty(s.ConnectionID())

	// When two events are delivered
	req.NoError(s.Consume(ctx, event.CodeBroadcast{Code: "a"}))
	err := s.Consume(ctx, event.CodeBroadcast{Code: "b"})

	// Then the second one is dropped without blocking
	req.ErrorIs(err, errors.ErrSinkFull)
	req.Equal(event.CodeBroadcast{Code: "a"}, <-s.Events())
}

func TestConnectionSink_Close(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(4)

	// When the sink is closed twice
	s.Close()
	s.Close()

	// Then deliveries are refused
	req.ErrorIs(s.Consume(context.Background(), event.CodeSnapshot{}), errors.ErrSinkClosed)
	_, open := <-s.Done()
	req.False(open)
}

func TestConnectionSink_Ids_Are_Unique(t *testing.T) {
	require.NotEqual(t, NewConnectionSink(1).ConnectionID(), NewConnectionSink(1).ConnectionID())
}
