package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
	"vpnstore/internal/metrics"
	"vpnstore/internal/service"
)

// gatewayPayload is the payment gateway notification body
type gatewayPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// qrisPayload is the QRIS provider notification body
type qrisPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

func (s *Server) handleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	var p gatewayPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&p); err != nil {
		metrics.IncWebhook("gateway", "bad_request")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	s.settle(w, r, "gateway", service.Notification{Reference: p.OrderID, Status: p.Status})
}

func (s *Server) handleQRISWebhook(w http.ResponseWriter, r *http.Request) {
	var p qrisPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&p); err != nil {
		metrics.IncWebhook("qris", "bad_request")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	s.settle(w, r, "qris", service.Notification{Reference: p.Reference, Status: p.Status, Amount: p.Amount})
}

// settle applies n and answers with the deposit's resulting status. A
// deposit that was already settled answers 200 with its current status so
// gateways stop retrying.
func (s *Server) settle(w http.ResponseWriter, r *http.Request, source string, n service.Notification) {
	n.Reference = strings.TrimSpace(n.Reference)
	if n.Reference == "" || strings.TrimSpace(n.Status) == "" {
		metrics.IncWebhook(source, "bad_request")
		writeError(w, http.StatusBadRequest, "reference and status are required")
		return
	}

	deposits := s.settler()
	if deposits == nil {
		metrics.IncWebhook(source, "unavailable")
		writeError(w, http.StatusServiceUnavailable, "bot is not configured yet")
		return
	}

	d, err := deposits.Settle(r.Context(), n)
	var settled *domain.DepositSettledError
	switch {
	case err == nil:
		metrics.IncWebhook(source, "ok")
		writeJSON(w, http.StatusOK, map[string]string{"reference": d.Reference, "status": string(d.Status)})
	case errors.As(err, &settled):
		metrics.IncWebhook(source, "duplicate")
		writeJSON(w, http.StatusOK, map[string]string{"reference": n.Reference, "status": string(settled.Status)})
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncWebhook(source, "not_found")
		writeError(w, http.StatusNotFound, "unknown reference")
	case errors.Is(err, domain.ErrInvalidInput):
		metrics.IncWebhook(source, "rejected")
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		metrics.IncWebhook(source, "error")
		s.logger.Error("Webhook settlement failed",
			zap.String("source", source),
			zap.String("reference", n.Reference),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
