package document

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "landregistry/internal/core/context"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// --- Fakes ---

type fakeRepo struct {
	docs    []*Document
	inserts int
}

func (r *fakeRepo) InsertBatch(_ context.Context, docs []*Document) error {
	r.inserts++
	for _, d := range docs {
		cp := *d
		r.docs = append(r.docs, &cp)
	}
	return nil
}

func (r *fakeRepo) FindByTransactionID(_ context.Context, transactionID string) ([]*Document, error) {
	var out []*Document
	for _, d := range r.docs {
		if d.TransactionID == transactionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteByLandTitle(_ context.Context, landTitleID string) (int64, error) {
	var kept []*Document
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

func newFakeInbox() *fakeInbox {
	return &fakeInbox{seen: make(map[string]bool)}
}

func (i *fakeInbox) key(consumer, transactionID, eventType string) string {
	return consumer + "/" + transactionID + "/" + eventType
}

func (i *fakeInbox) Seen(_ context.Context, consumer, transactionID, eventType string) (bool, error) {
	return i.seen[i.key(consumer, transactionID, eventType)], nil
}

func (i *fakeInbox) Mark(_ context.Context, consumer, transactionID, eventType string) error {
	i.seen[i.key(consumer, transactionID, eventType)] = true
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

func sagaCtx(txID string) context.Context {
	return appctx.WithSaga(context.Background(), &appctx.SagaContext{
		TransactionID: txID,
		UserID:        "user-1",
	})
}

func uploadRequest() events.DocumentUploadRequest {
	return events.DocumentUploadRequest{
		LandTitleID: "018f-aaaa",
		Attachments: []events.Attachment{
			{FileName: "deed.pdf", ContentType: "application/pdf", StorageKey: "s3://deeds/1", Size: 1024},
			{FileName: "survey.pdf", ContentType: "application/pdf", StorageKey: "s3://surveys/1", Size: 2048},
		},
		UserID: "user-1",
	}
}

// --- Tests ---

func TestHandleUploadRequest_PersistsAndReplies(t *testing.T) {
	repo := &fakeRepo{}
	inbox := newFakeInbox()
	pub := &recordingPublisher{}
	svc := NewService(repo, inbox, nopTx{}, pub, logger.Default())

	err := svc.HandleUploadRequest(sagaCtx("tx-1"), uploadRequest())
	require.NoError(t, err)

	require.Len(t, repo.docs, 2)
	assert.Equal(t, "018f-aaaa", repo.docs[0].LandTitleID)
	assert.Equal(t, "tx-1", repo.docs[0].TransactionID)
	assert.Equal(t, "user-1", repo.docs[0].UploadedBy)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, events.QueueLandRegistry, msg.queue)
	assert.Equal(t, events.TypeDocumentUploaded, msg.env.EventType)

	var uploaded events.DocumentUploaded
	require.NoError(t, json.Unmarshal(msg.env.Payload, &uploaded))
	assert.Equal(t, "018f-aaaa", uploaded.LandTitleID)
	assert.Len(t, uploaded.UploadedDocuments, 2)
}

func TestHandleUploadRequest_RedeliveryRepliesWithoutReinserting(t *testing.T) {
	repo := &fakeRepo{}
	inbox := newFakeInbox()
	pub := &recordingPublisher{}
	svc := NewService(repo, inbox, nopTx{}, pub, logger.Default())

	require.NoError(t, svc.HandleUploadRequest(sagaCtx("tx-1"), uploadRequest()))
	require.NoError(t, svc.HandleUploadRequest(sagaCtx("tx-1"), uploadRequest()))

	// One insert, two success replies.
	assert.Equal(t, 1, repo.inserts)
	assert.Len(t, repo.docs, 2)
	require.Len(t, pub.messages, 2)
	assert.Equal(t, events.TypeDocumentUploaded, pub.messages[1].env.EventType)

	var uploaded events.DocumentUploaded
	require.NoError(t, json.Unmarshal(pub.messages[1].env.Payload, &uploaded))
	assert.Len(t, uploaded.UploadedDocuments, 2)
}

func TestHandleUploadRequest_ValidationFailureReplies(t *testing.T) {
	repo := &fakeRepo{}
	pub := &recordingPublisher{}
	svc := NewService(repo, newFakeInbox(), nopTx{}, pub, logger.Default())

	req := uploadRequest()
	req.Attachments[1].StorageKey = ""

	err := svc.HandleUploadRequest(sagaCtx("tx-2"), req)
	require.NoError(t, err)

	assert.Empty(t, repo.docs)
	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, events.QueueLandRegistry, msg.queue)
	assert.Equal(t, events.TypeDocumentFailed, msg.env.EventType)

	var failed events.DocumentFailed
	require.NoError(t, json.Unmarshal(msg.env.Payload, &failed))
	assert.Equal(t, "018f-aaaa", failed.LandTitleID)
	assert.NotEmpty(t, failed.Error)
}

func TestHandleUploadRequest_EmptyAttachmentsReplies(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(&fakeRepo{}, newFakeInbox(), nopTx{}, pub, logger.Default())

	err := svc.HandleUploadRequest(sagaCtx("tx-3"), events.DocumentUploadRequest{
		LandTitleID: "018f-aaaa",
	})
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, events.TypeDocumentFailed, pub.messages[0].env.EventType)
}

func TestHandleRollback_DeletesAllForTitle(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeInbox(), nopTx{}, &recordingPublisher{}, logger.Default())

	require.NoError(t, svc.HandleUploadRequest(sagaCtx("tx-1"), uploadRequest()))
	require.Len(t, repo.docs, 2)

	err := svc.HandleRollback(sagaCtx("tx-1"), events.DocumentRollback{
		LandTitleID: "018f-aaaa",
		Reason:      "create rolled back",
	})
	require.NoError(t, err)
	assert.Empty(t, repo.docs)
}

func TestHandleRollback_RedeliveryIsIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeInbox(), nopTx{}, &recordingPublisher{}, logger.Default())

	err := svc.HandleRollback(sagaCtx("tx-1"), events.DocumentRollback{
		LandTitleID: "018f-aaaa",
	})
	require.NoError(t, err)
}
