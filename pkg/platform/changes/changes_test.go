package changes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanoutSkipsNil(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	pub := Fanout(a, nil, b)

	pub.Publish(context.Background(), Event{Entity: "staff", Action: ActionCreate, ID: 1})

	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
	assert.Equal(t, "staff", b.Events[0].Entity)
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	b.Failure()
	assert.True(t, b.Allow())
	b.Failure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	assert.False(t, b.IsOpen())

	b.Failure()
	b.Success()
	b.Failure()
	assert.False(t, b.IsOpen())
}
