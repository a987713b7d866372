package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/internal/autopay"
	apierrors "github.com/textileio/go-autopay/pkg/errors"
	"github.com/textileio/go-autopay/pkg/gate"
	"github.com/textileio/go-autopay/pkg/submitter"
)

// AddressResponse is the response of GET /address.
type AddressResponse struct {
	Address string `json:"address"`
}

// TransactionResponse describes a confirmed transaction.
type TransactionResponse struct {
	Transaction string `json:"transaction"`
}

// Controller defines the HTTP handlers of the autopay operations.
type Controller struct {
	svc autopay.AutoPay
}

// NewController creates a new Controller.
func NewController(svc autopay.AutoPay) *Controller {
	return &Controller{
		svc: svc,
	}
}

// Address handles the GET /address call.
func (c *Controller) Address(rw http.ResponseWriter, r *http.Request) {
	addr, err := c.svc.Address(r.Context())
	if err != nil {
		writeError(r.Context(), rw, err, "get address")
		return
	}
	writeJSON(rw, http.StatusOK, AddressResponse{Address: addr})
}

// Transfer handles the POST /transfer call.
func (c *Controller) Transfer(rw http.ResponseWriter, r *http.Request) {
	desc, err := c.svc.Transfer(r.Context())
	if err != nil {
		writeError(r.Context(), rw, err, "transfer")
		return
	}
	writeJSON(rw, http.StatusOK, TransactionResponse{Transaction: desc})
}

// TransferPeriodically handles the POST /transfer/periodic call.
func (c *Controller) TransferPeriodically(rw http.ResponseWriter, r *http.Request) {
	desc, err := c.svc.TransferPeriodically(r.Context())
	if err != nil {
		writeError(r.Context(), rw, err, "periodic transfer")
		return
	}
	writeJSON(rw, http.StatusOK, TransactionResponse{Transaction: desc})
}

// GetTransaction handles the GET /transactions/{hash} call. It reconciles the transaction
// with the ledger.
func (c *Controller) GetTransaction(rw http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	desc, err := c.svc.Reconcile(r.Context(), hash)
	if err != nil {
		writeError(r.Context(), rw, err, "reconcile transaction")
		return
	}
	writeJSON(rw, http.StatusOK, TransactionResponse{Transaction: desc})
}

// Status handles the GET /status call.
func (c *Controller) Status(rw http.ResponseWriter, r *http.Request) {
	status, err := c.svc.Status(r.Context())
	if err != nil {
		writeError(r.Context(), rw, err, "get status")
		return
	}
	writeJSON(rw, http.StatusOK, status)
}

func writeError(ctx context.Context, rw http.ResponseWriter, err error, op string) {
	status := statusCode(err)
	body := apierrors.ServiceError{Message: err.Error()}

	var unavailable *submitter.ConfirmationUnavailableError
	if errors.As(err, &unavailable) {
		body.Hash = unavailable.Hash.Hex()
	}
	var reverted *submitter.TransactionRevertedError
	if errors.As(err, &reverted) {
		body.Hash = reverted.Hash.Hex()
	}
	var notRecorded *autopay.TransferNotRecordedError
	if errors.As(err, &notRecorded) {
		body.Hash = notRecorded.Hash
	}

	switch {
	case status >= http.StatusInternalServerError:
		log.Ctx(ctx).Error().Err(err).Int("status", status).Msg(op)
	case status != http.StatusConflict:
		log.Ctx(ctx).Warn().Err(err).Int("status", status).Msg(op)
	}

	writeJSON(rw, status, body)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, autopay.ErrTransferNotDue):
		return http.StatusConflict
	case errors.Is(err, autopay.ErrTransferNotRecorded):
		return http.StatusAccepted
	case errors.Is(err, autopay.ErrInvalidHash):
		return http.StatusBadRequest
	case errors.Is(err, submitter.ErrIdentityUnavailable), errors.Is(err, submitter.ErrSequenceLookupFailed),
		errors.Is(err, gate.ErrStateLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, submitter.ErrSubmissionRejected), errors.Is(err, submitter.ErrTransactionReverted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, submitter.ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.Is(err, submitter.ErrConfirmationUnavailable):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
