package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"treeservice/domain/events"
	pkgerrors "treeservice/pkg/errors"
)

type mockPutEvents struct {
	mock.Mock
}

func (m *mockPutEvents) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func treeWritten(i int) events.DomainEvent {
	return events.NewTreeWritten("tree-1", "project-1", "root", []string{"root"}, i, time.Now())
}

func TestEventBridgePublisher_Batches(t *testing.T) {
	ctx := context.Background()
	client := new(mockPutEvents)
	client.On("PutEvents", ctx, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 10 && aws.ToString(in.Entries[0].Source) == EventSource
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()
	client.On("PutEvents", ctx, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 2 && aws.ToString(in.Entries[0].DetailType) == events.TypeTreeWritten
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	var batch []events.DomainEvent
	for i := 1; i <= 12; i++ {
		batch = append(batch, treeWritten(i))
	}

	p := NewEventBridgePublisher(client, "bus", zap.NewNop())
	require.NoError(t, p.Publish(ctx, batch...))
	client.AssertExpectations(t)
}

func TestEventBridgePublisher_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("client error", func(t *testing.T) {
		client := new(mockPutEvents)
		client.On("PutEvents", ctx, mock.Anything).Return(nil, errors.New("denied"))

		err := NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(ctx, treeWritten(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "denied")
	})

	t.Run("failed entries", func(t *testing.T) {
		client := new(mockPutEvents)
		client.On("PutEvents", ctx, mock.Anything).Return(&eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("Throttled")}},
		}, nil)

		err := NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(ctx, treeWritten(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 events failed to publish")
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
	})

	t.Run("nothing to send", func(t *testing.T) {
		client := new(mockPutEvents)
		require.NoError(t, NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(ctx))
		client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
	})
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), treeWritten(3)))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Domain event", entry.Message)
	assert.Equal(t, events.TypeTreeWritten, entry.ContextMap()["eventType"])
	assert.Equal(t, int64(3), entry.ContextMap()["version"])
}
