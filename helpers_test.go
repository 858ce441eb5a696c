package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saisaket2004/ai-resume-analyzer/internal/extract"
)

// fakeChannel records the declarations and publishes made through it, so the
// broker topology set up by the publish helpers can be asserted without a
// running broker.
type fakeChannel struct {
	queues      []fakeDeclare
	exchanges   []fakeDeclare
	published   []fakePublish
	exchangeErr error
}

type fakeDeclare struct {
	name    string
	kind    string
	durable bool
}

type fakePublish struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.queues = append(c.queues, fakeDeclare{name: name, durable: durable})
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if c.exchangeErr != nil {
		return c.exchangeErr
	}
	c.exchanges = append(c.exchanges, fakeDeclare{name: name, kind: kind, durable: durable})
	return nil
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.published = append(c.published, fakePublish{exchange: exchange, routingKey: key, msg: msg})
	return nil
}

func TestPublishSessionDeclaresDurableQueue(t *testing.T) {
	ch := &fakeChannel{}
	queued := Session{ID: uuid.New(), Status: StatusQueued}

	require.NoError(t, publishSessionOnChannel(ch, queued))

	require.Len(t, ch.queues, 1)
	assert.Equal(t, analysesQueue, ch.queues[0].name)
	assert.True(t, ch.queues[0].durable)

	require.Len(t, ch.published, 1)
	assert.Empty(t, ch.published[0].exchange)
	assert.Equal(t, analysesQueue, ch.published[0].routingKey)
	assert.Equal(t, uint8(amqp.Persistent), ch.published[0].msg.DeliveryMode)

	var roundTripped Session
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &roundTripped))
	assert.Equal(t, queued.ID, roundTripped.ID)
}

func TestPublishUpdateDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	sessionID := uuid.NewString()

	err := publishUpdateOnChannel(ch, sessionID, map[string]any{"status": StatusProcessing})
	require.NoError(t, err)

	// The exchange must exist before the publish, otherwise a fresh broker
	// drops the event with NOT_FOUND.
	require.Len(t, ch.exchanges, 1)
	assert.Equal(t, sessionUpdatesExchange, ch.exchanges[0].name)
	assert.Equal(t, "topic", ch.exchanges[0].kind)
	assert.True(t, ch.exchanges[0].durable)

	require.Len(t, ch.published, 1)
	assert.Equal(t, sessionUpdatesExchange, ch.published[0].exchange)
	assert.Equal(t, "session."+sessionID, ch.published[0].routingKey)
	assert.Contains(t, string(ch.published[0].msg.Body), StatusProcessing)
}

func TestPublishUpdateExchangeDeclareFailure(t *testing.T) {
	ch := &fakeChannel{exchangeErr: errors.New("NOT_FOUND")}

	err := publishUpdateOnChannel(ch, uuid.NewString(), map[string]any{"status": StatusFailed})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to declare exchange")
	assert.Empty(t, ch.published)
}

func TestCleanJson(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"match_score": 80}`, `{"match_score": 80}`},
		{"json fence", "```json\n{\"match_score\": 80}\n```", `{"match_score": 80}`},
		{"bare fence", "```\n{\"match_score\": 80}\n```", `{"match_score": 80}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJson(tc.in))
		})
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := retry(3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	_, err := retry(2, func() (int, error) {
		calls++
		return 0, errors.New("always failing")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestResolveMime(t *testing.T) {
	pdfHeader := append([]byte("%PDF-1.4\n"), make([]byte, 32)...)
	zipHeader := append([]byte("PK\x03\x04"), make([]byte, 32)...)

	assert.Equal(t, extract.MimePDF, resolveMime("resume.pdf", pdfHeader))
	assert.Equal(t, extract.MimePlain, resolveMime("resume.txt", []byte("just some resume text")))
	assert.Equal(t, extract.MimeDocx, resolveMime("resume.docx", zipHeader))
	assert.Equal(t, extract.MimeDocx, resolveMime("RESUME.DOCX", zipHeader))

	// A zip that is not a docx stays a zip and gets rejected upstream.
	assert.Equal(t, "application/zip", resolveMime("archive.zip", zipHeader))
	assert.False(t, extract.Supported(resolveMime("archive.zip", zipHeader)))
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "resumes/s1/r1-jane.pdf", resumeObjectKey("s1", "r1", "jane.pdf"))
	assert.Equal(t, "reports/s1.pdf", reportObjectKey("s1"))
}
