package events

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegistry_CreateImpliedByLandTitleData(t *testing.T) {
	body, err := EncodeCreate("tx-1", "user-1", TitleCreateData{
		TitleNumber: "LT-001",
		OwnerName:   "Ana Reyes",
		AreaSqm:     decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	env, payload, err := DecodeRegistry(body)
	require.NoError(t, err)

	// No explicit event_type on the wire; presence of land_title_data decides.
	assert.Equal(t, TypeLandTitleCreate, env.EventType)
	assert.Equal(t, "tx-1", env.TransactionID)
	assert.Equal(t, "user-1", env.UserID)

	data, ok := payload.(TitleCreateData)
	require.True(t, ok)
	assert.Equal(t, "LT-001", data.TitleNumber)
	assert.Equal(t, "Ana Reyes", data.OwnerName)
	assert.True(t, data.AreaSqm.Equal(decimal.NewFromInt(250)))
}

func TestDecodeRegistry_TypedPayloads(t *testing.T) {
	body, err := Encode(TypePaymentStatusUpdate, "tx-2", PaymentStatusUpdate{
		ReferenceID: "LT-001",
		Status:      "ACTIVE",
	})
	require.NoError(t, err)

	env, payload, err := DecodeRegistry(body)
	require.NoError(t, err)
	assert.Equal(t, TypePaymentStatusUpdate, env.EventType)

	update, ok := payload.(PaymentStatusUpdate)
	require.True(t, ok)
	assert.Equal(t, "LT-001", update.ReferenceID)
	assert.Equal(t, "ACTIVE", update.Status)
}

func TestDecodeRegistry_UnknownEvent(t *testing.T) {
	body, err := Encode(Type("SOMETHING_ELSE"), "tx-3", map[string]string{"x": "y"})
	require.NoError(t, err)

	env, payload, err := DecodeRegistry(body)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.NotNil(t, env)
	assert.Nil(t, payload)
}

func TestDecodeRegistry_MalformedEnvelope(t *testing.T) {
	_, _, err := DecodeRegistry([]byte(`{not json`))
	require.Error(t, err)
}

func TestDecodePayment_EmptyPayload(t *testing.T) {
	body := []byte(`{"event_type":"PAYMENT_CREATE","transaction_id":"tx-4"}`)

	_, _, err := DecodePayment(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty payload")
}

func TestDecodePayment_UpdateStatusWireName(t *testing.T) {
	// The status transition event travels as UPDATE_STATUS on the wire.
	body, err := Encode(TypePaymentUpdateStatus, "tx-5", PaymentUpdateStatus{
		PaymentID: "PAY-01ABC",
		Status:    "PAID",
		Actor:     "cashier-7",
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"UPDATE_STATUS"`)

	_, payload, err := DecodePayment(body)
	require.NoError(t, err)

	update, ok := payload.(PaymentUpdateStatus)
	require.True(t, ok)
	assert.Equal(t, "PAY-01ABC", update.PaymentID)
	assert.Equal(t, "cashier-7", update.Actor)
}

func TestDecodePayment_TitleUpdateResults(t *testing.T) {
	for _, typ := range []Type{TypeTitleUpdateSucceeded, TypeTitleUpdateFailed} {
		body, err := Encode(typ, "tx-6", TitleUpdateResult{ReferenceID: "LT-002", Reason: "r"})
		require.NoError(t, err)

		env, payload, err := DecodePayment(body)
		require.NoError(t, err)
		assert.Equal(t, typ, env.EventType)

		_, ok := payload.(TitleUpdateResult)
		assert.True(t, ok)
	}
}

func TestDecodeDocument_RoundTrip(t *testing.T) {
	body, err := Encode(TypeDocumentUploadRequest, "tx-7", DocumentUploadRequest{
		LandTitleID: "018f-aaaa",
		Attachments: []Attachment{{FileName: "deed.pdf", StorageKey: "s3://deeds/1"}},
		UserID:      "user-9",
	})
	require.NoError(t, err)

	_, payload, err := DecodeDocument(body)
	require.NoError(t, err)

	req, ok := payload.(DocumentUploadRequest)
	require.True(t, ok)
	assert.Equal(t, "018f-aaaa", req.LandTitleID)
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "deed.pdf", req.Attachments[0].FileName)
}

func TestDecodeDocument_RejectsForeignEvent(t *testing.T) {
	body, err := Encode(TypePaymentCreate, "tx-8", PaymentCreateData{
		ReferenceType: ReferenceTypeLandTitle,
		ReferenceID:   "LT-003",
		Amount:        decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, _, err = DecodeDocument(body)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
