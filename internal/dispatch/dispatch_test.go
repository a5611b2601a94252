package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/domain/document"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// --- Fakes ---

type fakeDocRepo struct {
	docs []*document.Document
}

func (r *fakeDocRepo) InsertBatch(_ context.Context, docs []*document.Document) error {
	r.docs = append(r.docs, docs...)
	return nil
}

func (r *fakeDocRepo) FindByTransactionID(_ context.Context, transactionID string) ([]*document.Document, error) {
	var out []*document.Document
	for _, d := range r.docs {
		if d.TransactionID == transactionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) DeleteByLandTitle(_ context.Context, landTitleID string) (int64, error) {
	var kept []*document.Document
	var deleted int64
	for _, d := range r.docs {
		if d.LandTitleID == landTitleID {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	r.docs = kept
	return deleted, nil
}

type fakeInbox struct {
	seen map[string]bool
}

func (i *fakeInbox) Seen(_ context.Context, consumer, transactionID, eventType string) (bool, error) {
	return i.seen[consumer+"/"+transactionID+"/"+eventType], nil
}

func (i *fakeInbox) Mark(_ context.Context, consumer, transactionID, eventType string) error {
	if i.seen == nil {
		i.seen = make(map[string]bool)
	}
	i.seen[consumer+"/"+transactionID+"/"+eventType] = true
	return nil
}

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type published struct {
	queue string
	env   events.Envelope
}

type recordingPublisher struct {
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, body []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	p.messages = append(p.messages, published{queue: queue, env: env})
	return nil
}

func newDocumentDispatcher(t *testing.T) (*Document, *fakeDocRepo, *recordingPublisher) {
	t.Helper()
	repo := &fakeDocRepo{}
	pub := &recordingPublisher{}
	svc := document.NewService(repo, &fakeInbox{}, nopTx{}, pub, logger.Default())
	return NewDocument(svc, logger.Default()), repo, pub
}

// --- Tests ---

func TestDocumentHandle_RoutesUploadRequest(t *testing.T) {
	d, repo, pub := newDocumentDispatcher(t)

	body, err := events.Encode(events.TypeDocumentUploadRequest, "tx-42", events.DocumentUploadRequest{
		LandTitleID: "018f-aaaa",
		Attachments: []events.Attachment{
			{FileName: "deed.pdf", ContentType: "application/pdf", StorageKey: "s3://deeds/1", Size: 512},
		},
		UserID: "user-1",
	})
	require.NoError(t, err)

	require.NoError(t, d.Handle(context.Background(), body))

	require.Len(t, repo.docs, 1)
	// The envelope's correlation id flows through the saga context into
	// everything the handler writes and publishes.
	assert.Equal(t, "tx-42", repo.docs[0].TransactionID)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, events.QueueLandRegistry, pub.messages[0].queue)
	assert.Equal(t, events.TypeDocumentUploaded, pub.messages[0].env.EventType)
	assert.Equal(t, "tx-42", pub.messages[0].env.TransactionID)
}

func TestDocumentHandle_RoutesRollback(t *testing.T) {
	d, repo, _ := newDocumentDispatcher(t)
	repo.docs = []*document.Document{
		{LandTitleID: "018f-aaaa", TransactionID: "tx-1"},
		{LandTitleID: "018f-bbbb", TransactionID: "tx-2"},
	}

	body, err := events.Encode(events.TypeDocumentRollback, "tx-1", events.DocumentRollback{
		LandTitleID: "018f-aaaa",
		Reason:      "create rolled back",
	})
	require.NoError(t, err)

	require.NoError(t, d.Handle(context.Background(), body))

	require.Len(t, repo.docs, 1)
	assert.Equal(t, "018f-bbbb", repo.docs[0].LandTitleID)
}

func TestDocumentHandle_AcksUndecodableMessage(t *testing.T) {
	d, repo, pub := newDocumentDispatcher(t)

	err := d.Handle(context.Background(), []byte("not json at all"))
	require.NoError(t, err)
	assert.Empty(t, repo.docs)
	assert.Empty(t, pub.messages)
}

func TestDocumentHandle_AcksForeignEvent(t *testing.T) {
	d, repo, pub := newDocumentDispatcher(t)

	// A registry event delivered to the document queue is dropped, not requeued.
	body, err := events.Encode(events.TypePaymentStatusUpdate, "tx-9", events.PaymentStatusUpdate{
		ReferenceID: "LT-001",
		Status:      "ACTIVE",
	})
	require.NoError(t, err)

	require.NoError(t, d.Handle(context.Background(), body))
	assert.Empty(t, repo.docs)
	assert.Empty(t, pub.messages)
}
