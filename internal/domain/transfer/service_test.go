package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/core/apperror"
	appctx "landregistry/internal/core/context"
	"landregistry/internal/core/id"
	"landregistry/internal/core/ledger"
	"landregistry/internal/domain/title"
	"landregistry/internal/events"
	"landregistry/pkg/logger"
)

// --- Fakes ---

type fakeTransferRepo struct {
	byTransferID map[string]*Transfer
}

func newFakeTransferRepo(transfers ...*Transfer) *fakeTransferRepo {
	r := &fakeTransferRepo{byTransferID: make(map[string]*Transfer)}
	for _, tr := range transfers {
		r.byTransferID[tr.TransferID] = tr
	}
	return r
}

func (r *fakeTransferRepo) Insert(_ context.Context, t *Transfer) error {
	cp := *t
	r.byTransferID[t.TransferID] = &cp
	return nil
}

func (r *fakeTransferRepo) FindByTransferID(_ context.Context, transferID string) (*Transfer, error) {
	t, ok := r.byTransferID[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTransferRepo) FindPendingByTitle(_ context.Context, titleNumber string) (*Transfer, error) {
	for _, t := range r.byTransferID {
		if t.TitleNumber == titleNumber && t.Status == StatusPending {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("pending transfer", titleNumber)
}

func (r *fakeTransferRepo) Complete(_ context.Context, transferID string, at time.Time) (bool, error) {
	t, ok := r.byTransferID[transferID]
	if !ok || t.Status != StatusPending {
		return false, nil
	}
	t.Status = StatusCompleted
	t.CompletedAt = &at
	return true, nil
}

func (r *fakeTransferRepo) SetBlockchainHash(_ context.Context, transferID, hash string) error {
	r.byTransferID[transferID].BlockchainHash = &hash
	return nil
}

type fakeTitleRepo struct {
	byNumber map[string]*title.LandTitle
}

func newFakeTitleRepo(titles ...*title.LandTitle) *fakeTitleRepo {
	r := &fakeTitleRepo{byNumber: make(map[string]*title.LandTitle)}
	for _, t := range titles {
		r.byNumber[t.TitleNumber] = t
	}
	return r
}

func (r *fakeTitleRepo) Insert(_ context.Context, t *title.LandTitle) error {
	r.byNumber[t.TitleNumber] = t
	return nil
}

func (r *fakeTitleRepo) FindByTitleNumber(_ context.Context, titleNumber string) (*title.LandTitle, error) {
	t, ok := r.byNumber[titleNumber]
	if !ok {
		return nil, apperror.NewNotFound("land title", titleNumber)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTitleRepo) List(_ context.Context, _, _ int) ([]*title.LandTitle, error) {
	return nil, nil
}

func (r *fakeTitleRepo) UpdateStatus(_ context.Context, _ string, _, _ title.Status) (bool, error) {
	return false, nil
}

func (r *fakeTitleRepo) SetStatus(_ context.Context, _ string, _ title.Status) error { return nil }
func (r *fakeTitleRepo) SetBlockchainHash(_ context.Context, _, _ string) error      { return nil }
func (r *fakeTitleRepo) SetCancellation(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}
func (r *fakeTitleRepo) SetReactivationHash(_ context.Context, _, _ string) error { return nil }

func (r *fakeTitleRepo) SetOwner(_ context.Context, titleNumber, name, address, contact string) error {
	t := r.byNumber[titleNumber]
	t.OwnerName, t.OwnerAddress, t.OwnerContact = name, address, contact
	return nil
}

func (r *fakeTitleRepo) DeleteByID(_ context.Context, _ id.ID) (bool, error) { return false, nil }

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

// scriptedLedger returns per-party hashes and can fail a chosen party.
type scriptedLedger struct {
	failParty string
	calls     []ledger.TransferRecord
}

func (l *scriptedLedger) RecordLandTitle(context.Context, ledger.TitleRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (l *scriptedLedger) RecordCancellation(context.Context, ledger.CancellationRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (l *scriptedLedger) RecordReactivation(context.Context, ledger.ReactivationRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (l *scriptedLedger) RecordTransfer(_ context.Context, rec ledger.TransferRecord) (string, error) {
	l.calls = append(l.calls, rec)
	if rec.Party == l.failParty {
		return "", apperror.NewLedgerUnavailable(errors.New("down"))
	}
	return "hash-" + rec.Party, nil
}

func sagaCtx(txID string) context.Context {
	return appctx.WithSaga(context.Background(), &appctx.SagaContext{TransactionID: txID})
}

func activeTitle() *title.LandTitle {
	return &title.LandTitle{
		ID:           id.New(),
		TitleNumber:  "LT-001",
		OwnerName:    "Ana Reyes",
		OwnerAddress: "Seller St",
		OwnerContact: "0900-1",
		Status:       title.StatusActive,
	}
}

func pendingTransfer() *Transfer {
	return &Transfer{
		ID:          id.New(),
		TransferID:  "TRF-OPEN",
		TitleNumber: "LT-001",

		SellerName:    "Ana Reyes",
		SellerAddress: "Seller St",
		SellerContact: "0900-1",

		BuyerName:    "Ben Cruz",
		BuyerAddress: "Buyer Ave",
		BuyerContact: "0900-2",

		TransferFee: decimal.NewFromInt(750),
		Status:      StatusPending,
	}
}

// --- Tests ---

func TestSubmit_OpensTransferAndRequestsPayment(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, titles, nopTx{}, &scriptedLedger{}, pub, logger.Default())

	tr, err := svc.Submit(sagaCtx("tx-1"), events.TransferCreateData{
		TitleNumber:  "LT-001",
		BuyerName:    "Ben Cruz",
		BuyerAddress: "Buyer Ave",
		TransferFee:  decimal.NewFromInt(750),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, tr.Status)
	assert.Contains(t, tr.TransferID, "TRF-")

	// Seller fields snapshot the title's owner at submission time.
	assert.Equal(t, "Ana Reyes", tr.SellerName)
	assert.Equal(t, "Seller St", tr.SellerAddress)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, events.QueuePayment, msg.queue)
	assert.Equal(t, events.TypePaymentCreate, msg.env.EventType)

	var create events.PaymentCreateData
	require.NoError(t, json.Unmarshal(msg.env.Payload, &create))
	assert.Equal(t, events.ReferenceTypeTransfer, create.ReferenceType)
	assert.Equal(t, tr.TransferID, create.ReferenceID)
	assert.Equal(t, "LT-001", create.TitleNumber)
	assert.Equal(t, "Ben Cruz", create.PayerName)
	assert.True(t, create.Amount.Equal(decimal.NewFromInt(750)))
}

func TestSubmit_InactiveTitleRejected(t *testing.T) {
	inactive := activeTitle()
	inactive.Status = title.StatusPending
	titles := newFakeTitleRepo(inactive)
	repo := newFakeTransferRepo()
	svc := NewService(repo, titles, nopTx{}, &scriptedLedger{}, &recordingPublisher{}, logger.Default())

	_, err := svc.Submit(sagaCtx("tx-1"), events.TransferCreateData{
		TitleNumber: "LT-001",
		BuyerName:   "Ben Cruz",
		TransferFee: decimal.NewFromInt(750),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTitleInactive, appErr.Code)
	assert.Empty(t, repo.byTransferID)
}

func TestSubmit_OpenTransferRejected(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo(pendingTransfer())
	svc := NewService(repo, titles, nopTx{}, &scriptedLedger{}, &recordingPublisher{}, logger.Default())

	_, err := svc.Submit(sagaCtx("tx-2"), events.TransferCreateData{
		TitleNumber: "LT-001",
		BuyerName:   "Carla Diaz",
		TransferFee: decimal.NewFromInt(750),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOpenTransfer, appErr.Code)
}

func TestSubmit_ValidationFailures(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	svc := NewService(newFakeTransferRepo(), titles, nopTx{}, &scriptedLedger{}, &recordingPublisher{}, logger.Default())

	_, err := svc.Submit(sagaCtx("tx-1"), events.TransferCreateData{
		TitleNumber: "LT-001",
		TransferFee: decimal.NewFromInt(750),
	})
	require.Error(t, err)

	_, err = svc.Submit(sagaCtx("tx-1"), events.TransferCreateData{
		TitleNumber: "LT-001",
		BuyerName:   "Ben Cruz",
		TransferFee: decimal.Zero,
	})
	require.Error(t, err)
}

func TestHandlePaymentConfirmed_CompletesAndRecordsBothParties(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo(pendingTransfer())
	led := &scriptedLedger{}
	pub := &recordingPublisher{}
	svc := NewService(repo, titles, nopTx{}, led, pub, logger.Default())

	err := svc.HandlePaymentConfirmed(sagaCtx("tx-3"), events.PaymentConfirmed{
		TitleNumber: "LT-001",
		PaymentID:   "PAY-01ABC",
	})
	require.NoError(t, err)

	tr := repo.byTransferID["TRF-OPEN"]
	assert.Equal(t, StatusCompleted, tr.Status)
	assert.NotNil(t, tr.CompletedAt)
	require.NotNil(t, tr.BlockchainHash)
	assert.Equal(t, "hash-seller,hash-buyer", *tr.BlockchainHash)

	// The title's owner becomes the buyer.
	owner := titles.byNumber["LT-001"]
	assert.Equal(t, "Ben Cruz", owner.OwnerName)
	assert.Equal(t, "Buyer Ave", owner.OwnerAddress)

	require.Len(t, led.calls, 2)
	assert.Equal(t, "seller", led.calls[0].Party)
	assert.Equal(t, "Ana Reyes", led.calls[0].Owner)
	assert.Equal(t, "buyer", led.calls[1].Party)
	assert.Equal(t, "Ben Cruz", led.calls[1].Owner)
}

func TestHandlePaymentConfirmed_PartialLedgerFailureKeepsOneHash(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo(pendingTransfer())
	led := &scriptedLedger{failParty: "seller"}
	svc := NewService(repo, titles, nopTx{}, led, &recordingPublisher{}, logger.Default())

	err := svc.HandlePaymentConfirmed(sagaCtx("tx-4"), events.PaymentConfirmed{
		TitleNumber: "LT-001", PaymentID: "PAY-01ABC",
	})

	// Uncompensated by design: completion stands, the surviving hash is kept.
	require.NoError(t, err)
	tr := repo.byTransferID["TRF-OPEN"]
	assert.Equal(t, StatusCompleted, tr.Status)
	require.NotNil(t, tr.BlockchainHash)
	assert.Equal(t, "hash-buyer", *tr.BlockchainHash)
}

func TestHandlePaymentConfirmed_BothLedgerCallsFail(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo(pendingTransfer())
	svc := NewService(repo, titles, nopTx{}, failingLedger{}, &recordingPublisher{}, logger.Default())

	err := svc.HandlePaymentConfirmed(sagaCtx("tx-5"), events.PaymentConfirmed{
		TitleNumber: "LT-001", PaymentID: "PAY-01ABC",
	})
	require.NoError(t, err)
	assert.Nil(t, repo.byTransferID["TRF-OPEN"].BlockchainHash)
}

func TestHandlePaymentConfirmed_NoOpenTransferReportsFailure(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, titles, nopTx{}, &scriptedLedger{}, pub, logger.Default())

	err := svc.HandlePaymentConfirmed(sagaCtx("tx-6"), events.PaymentConfirmed{
		TitleNumber: "LT-001", PaymentID: "PAY-01ABC",
	})
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, events.QueuePayment, msg.queue)
	assert.Equal(t, events.TypeTitleUpdateFailed, msg.env.EventType)
}

func TestHandlePaymentConfirmed_LostRaceSkips(t *testing.T) {
	titles := newFakeTitleRepo(activeTitle())
	repo := newFakeTransferRepo(pendingTransfer())
	led := &scriptedLedger{}

	// The lookup sees PENDING but the conditional completion reports that a
	// concurrent message already applied it.
	svc := NewService(&racingRepo{fakeTransferRepo: repo}, titles, nopTx{}, led, &recordingPublisher{}, logger.Default())

	err := svc.HandlePaymentConfirmed(sagaCtx("tx-7"), events.PaymentConfirmed{
		TitleNumber: "LT-001", PaymentID: "PAY-01ABC",
	})
	require.NoError(t, err)
	assert.Empty(t, led.calls)
	assert.Equal(t, "Ana Reyes", titles.byNumber["LT-001"].OwnerName)
}

// racingRepo reports the conditional completion as already applied.
type racingRepo struct {
	*fakeTransferRepo
}

func (r *racingRepo) Complete(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

// failingLedger fails every transfer recording.
type failingLedger struct{}

func (failingLedger) RecordLandTitle(context.Context, ledger.TitleRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (failingLedger) RecordCancellation(context.Context, ledger.CancellationRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (failingLedger) RecordReactivation(context.Context, ledger.ReactivationRecord) (string, error) {
	return "", errors.New("unexpected call")
}

func (failingLedger) RecordTransfer(context.Context, ledger.TransferRecord) (string, error) {
	return "", apperror.NewLedgerUnavailable(errors.New("down"))
}
