package amqpnotify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starload/internal/etl"
	"starload/internal/schema"
	"starload/internal/storage"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func report(statuses ...etl.Status) etl.Report {
	rep := etl.Report{
		RunID:    uuid.MustParse("7b0f3c9e-3f5a-4c8e-9d7e-2f1a6b4c8d90"),
		Catalog:  "vehicle",
		Started:  time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC),
		Finished: time.Date(2024, 3, 1, 1, 0, 5, 0, time.UTC),
	}
	for _, s := range statuses {
		rep.Jobs = append(rep.Jobs, etl.JobResult{Table: "DIM_VEHICLE", Status: s})
	}
	return rep
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", RunStatus(report(etl.StatusOK, etl.StatusSkipped)))
	assert.Equal(t, "partial", RunStatus(report(etl.StatusOK, etl.StatusFailed)))
	assert.Equal(t, "failure", RunStatus(report(etl.StatusFailed, etl.StatusPartial)))
}

func TestPublishReport_ConnectionFailure(t *testing.T) {
	t.Parallel()

	r := &etl.Runner{
		Catalog: schema.Vehicle(),
		Open: func(context.Context) (storage.Repository, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	rep, err := r.RunDefault(context.Background())
	require.ErrorIs(t, err, etl.ErrConnection)
	assert.Equal(t, "failure", RunStatus(rep))

	ch := &fakeChannel{}
	require.NoError(t, NewWithChannel(ch, "", "").PublishReport(context.Background(), rep))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "run.vehicle.failure", ch.sent[0].key)
	assert.Contains(t, string(ch.sent[0].msg.Body), "connection refused")
}

func TestPublishReport(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p := NewWithChannel(ch, "", "")
	require.NoError(t, p.PublishReport(context.Background(), report(etl.StatusOK, etl.StatusFailed)))

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, "run.vehicle.partial", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "7b0f3c9e-3f5a-4c8e-9d7e-2f1a6b4c8d90", got.msg.MessageId)
	assert.Equal(t, "partial", got.msg.Headers["status"])

	var body struct {
		Catalog string `json:"catalog"`
		Jobs    []struct {
			Status string `json:"status"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "vehicle", body.Catalog)
	assert.Len(t, body.Jobs, 2)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishReport_FixedKeyAndError(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p := NewWithChannel(ch, "etl", "loads")
	require.NoError(t, p.PublishReport(context.Background(), report(etl.StatusOK)))
	assert.Equal(t, "etl", ch.sent[0].exchange)
	assert.Equal(t, "loads", ch.sent[0].key)

	ch.err = errors.New("channel closed")
	err := p.PublishReport(context.Background(), report(etl.StatusOK))
	require.Error(t, err)
	assert.ErrorIs(t, err, ch.err)
}

func TestDial_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := Dial(Config{})
	assert.Error(t, err)
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestPublishReport_RedialsClosedChannel(t *testing.T) {
	t.Parallel()

	dead := &fakeChannel{err: amqp.ErrClosed}
	deadConn := &fakeConn{}
	fresh := &fakeChannel{}
	dials := 0
	p := newWithDialer(func() (io.Closer, Channel, error) {
		dials++
		if dials == 1 {
			return deadConn, dead, nil
		}
		return &fakeConn{}, fresh, nil
	}, "", "")
	require.NoError(t, p.connect())

	require.NoError(t, p.PublishReport(context.Background(), report(etl.StatusOK)))
	assert.Equal(t, 2, dials)
	assert.True(t, dead.closed)
	assert.True(t, deadConn.closed)
	require.Len(t, fresh.sent, 1)
	assert.Equal(t, "run.vehicle.success", fresh.sent[0].key)

	require.NoError(t, p.PublishReport(context.Background(), report(etl.StatusOK)))
	assert.Equal(t, 2, dials, "healthy channel is reused")
	assert.Len(t, fresh.sent, 2)
}

// A broker still down at publish time fails that report; the next publish
// tries again.
func TestPublishReport_RedialFailureRetriedNextTime(t *testing.T) {
	t.Parallel()

	down := errors.New("dial tcp: connection refused")
	fresh := &fakeChannel{}
	dials := 0
	p := newWithDialer(func() (io.Closer, Channel, error) {
		dials++
		if dials == 1 {
			return nil, nil, down
		}
		return &fakeConn{}, fresh, nil
	}, "", "")

	err := p.PublishReport(context.Background(), report(etl.StatusOK))
	require.ErrorIs(t, err, down)

	require.NoError(t, p.PublishReport(context.Background(), report(etl.StatusOK)))
	assert.Len(t, fresh.sent, 1)
	require.NoError(t, p.Close())
	assert.True(t, fresh.closed)
}
