// Package dto defines the HTTP request and response shapes for the v1 API.
package dto

// AcceptedResponse is returned by asynchronous endpoints: the request was
// validated and queued, and the transaction id correlates all resulting saga
// messages.
type AcceptedResponse struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message,omitempty"`
}

// SuccessResponse is a generic operation acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListMeta carries paging information on list responses.
type ListMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
