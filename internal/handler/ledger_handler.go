package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/ledger"
	"github.com/boddenberg/creditline/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Credit line account
// ============================================================

func snapshotHandler(svc port.CreditLine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/account")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.Snapshot(ctx))
	}
}

func chargeHandler(svc port.CreditLine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/account/charges")
		defer span.End()
		span.SetAttributes(attribute.String("auth.subject", SubjectFromContext(ctx)))

		req, err := decodeOperation(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		on, err := ledger.ParseDate(req.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Charge(ctx, req.Amount, on)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func paymentHandler(svc port.CreditLine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/account/payments")
		defer span.End()
		span.SetAttributes(attribute.String("auth.subject", SubjectFromContext(ctx)))

		req, err := decodeOperation(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		on, err := ledger.ParseDate(req.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Payment(ctx, req.Amount, on)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func balanceHandler(svc port.CreditLine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/account/balance")
		defer span.End()

		on, err := ledger.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Balance(ctx, on)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func activityHandler(svc port.CreditLine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/account/activity")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.Activity(ctx))
	}
}

// decodeOperation reads a charge/payment body. Numbers are kept as
// json.Number so millisecond timestamps survive intact.
func decodeOperation(r *http.Request) (*domain.OperationRequest, error) {
	var req domain.OperationRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return &req, nil
}
