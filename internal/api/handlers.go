package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/z00rs/learn2earn-herman-test/internal/ledger"
	"github.com/z00rs/learn2earn-herman-test/internal/models"
	"github.com/z00rs/learn2earn-herman-test/internal/service"
	"github.com/z00rs/learn2earn-herman-test/internal/store"
)

// Stable machine-readable error codes surfaced alongside messages.
const (
	codeValidation      = "VALIDATION_ERROR"
	codeNotRegistered   = "NOT_REGISTERED_IN_CONTRACT"
	codeNotApproved     = "NOT_APPROVED"
	codeAlreadyRewarded = "ALREADY_REWARDED"
	codeDuplicate       = "DUPLICATE_SUBMISSION"
	codeNotFound        = "NOT_FOUND"
	codeUnauthorized    = "UNAUTHORIZED"
	codeBroadcastFailed = "BROADCAST_FAILED"
	codeInternal        = "INTERNAL_ERROR"
)

type Handler struct {
	svc          *service.Service
	moderatorKey string
	explorerURL  string
	log          *logrus.Logger
}

func NewHandler(svc *service.Service, moderatorKey, explorerURL string, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, moderatorKey: moderatorKey, explorerURL: explorerURL, log: log}
}

func (h *Handler) SubmitProofHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/submissions"))
	defer timer.ObserveDuration()

	var req models.ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/submissions", http.StatusBadRequest, codeValidation, "Malformed JSON body")
		return
	}
	if req.WalletAddress == "" || req.Name == "" || req.ProofLink == "" {
		h.respondError(w, "POST", "/submissions", http.StatusBadRequest, codeValidation,
			"Missing required fields: walletAddress, name, and proofLink are required")
		return
	}

	created, err := h.svc.SubmitProof(r.Context(), req.WalletAddress, req.Name, req.ProofLink)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "POST", "/submissions", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrNotRegistered):
			h.respondError(w, "POST", "/submissions", http.StatusBadRequest, codeNotRegistered,
				"Student must be registered in the smart contract before submitting proof")
		case errors.Is(err, store.ErrDuplicateSubmission):
			h.respondError(w, "POST", "/submissions", http.StatusBadRequest, codeDuplicate,
				"Submission already exists for this wallet address")
		default:
			h.internalError(w, "POST", "/submissions", err, "Failed to save submission")
		}
		return
	}

	status, httpCode := "updated", http.StatusOK
	if created {
		status, httpCode = "created", http.StatusCreated
	}
	h.respondJSON(w, "POST", "/submissions", httpCode, map[string]string{
		"message": "Submission received successfully",
		"status":  status,
	})
}

func (h *Handler) GetSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.GetSubmission(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "GET", "/submissions/{address}", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrSubmissionNotFound):
			h.respondError(w, "GET", "/submissions/{address}", http.StatusNotFound, codeNotFound, "Submission not found")
		default:
			h.internalError(w, "GET", "/submissions/{address}", err, "Internal server error")
		}
		return
	}
	h.respondJSON(w, "GET", "/submissions/{address}", http.StatusOK, sub)
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/submissions/{address}/status"))
	defer timer.ObserveDuration()

	view, err := h.svc.GetStatus(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		if errors.Is(err, models.ErrInvalidAddress) {
			h.respondError(w, "GET", "/submissions/{address}/status", http.StatusBadRequest, codeValidation, "Invalid wallet address")
			return
		}
		h.internalError(w, "GET", "/submissions/{address}/status", err, "Internal server error")
		return
	}
	h.respondJSON(w, "GET", "/submissions/{address}/status", http.StatusOK, view)
}

func (h *Handler) ListSubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeModerator(r) {
		h.respondError(w, "GET", "/submissions", http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
		return
	}

	subs, err := h.svc.ListSubmissions(r.Context())
	if err != nil {
		h.internalError(w, "GET", "/submissions", err, "Failed to fetch submissions")
		return
	}
	h.respondJSON(w, "GET", "/submissions", http.StatusOK, subs)
}

func (h *Handler) ListApprovedHandler(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListApproved(r.Context())
	if err != nil {
		h.internalError(w, "GET", "/submissions/approved", err, "Failed to fetch approved submissions")
		return
	}
	if subs == nil {
		subs = []models.ApprovedSubmission{}
	}
	h.respondJSON(w, "GET", "/submissions/approved", http.StatusOK, subs)
}

func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeModerator(r) {
		h.respondError(w, "PUT", "/submissions/{address}/approve", http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
		return
	}

	var req models.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "PUT", "/submissions/{address}/approve", http.StatusBadRequest, codeValidation, "Malformed JSON body")
		return
	}

	err := h.svc.Approve(r.Context(), mux.Vars(r)["address"], req.Approved, req.ModeratorNotes)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "PUT", "/submissions/{address}/approve", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrSubmissionNotFound):
			h.respondError(w, "PUT", "/submissions/{address}/approve", http.StatusNotFound, codeNotFound, "Submission not found")
		default:
			h.internalError(w, "PUT", "/submissions/{address}/approve", err, "Failed to update submission")
		}
		return
	}
	h.respondJSON(w, "PUT", "/submissions/{address}/approve", http.StatusOK, map[string]interface{}{
		"message":  "Submission updated successfully",
		"approved": req.Approved,
	})
}

func (h *Handler) ClaimHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/submissions/{address}/claim"))
	defer timer.ObserveDuration()

	txHash, err := h.svc.RequestClaim(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		var submissionErr *ledger.SubmissionError
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "POST", "/submissions/{address}/claim", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrAlreadyRewarded):
			h.respondError(w, "POST", "/submissions/{address}/claim", http.StatusBadRequest, codeAlreadyRewarded,
				"You have already successfully claimed your reward! Tokens were distributed to your wallet.")
		case errors.Is(err, service.ErrNotApproved):
			h.respondError(w, "POST", "/submissions/{address}/claim", http.StatusBadRequest, codeNotApproved,
				"No approved submission found for this wallet address")
		case errors.Is(err, service.ErrNotRegistered):
			h.respondError(w, "POST", "/submissions/{address}/claim", http.StatusBadRequest, codeNotRegistered,
				"You must register in the smart contract first")
		case errors.As(err, &submissionErr):
			// broadcast failure: retryable, nothing was persisted locally
			h.respondJSON(w, "POST", "/submissions/{address}/claim", http.StatusInternalServerError, map[string]interface{}{
				"message":          "Smart contract transaction failed",
				"error":            codeBroadcastFailed,
				"canRetryIfFailed": true,
			})
		default:
			h.internalError(w, "POST", "/submissions/{address}/claim", err, "Failed to process reward claim")
		}
		return
	}

	h.respondJSON(w, "POST", "/submissions/{address}/claim", http.StatusOK, models.ClaimResponse{
		Message:          "Transaction submitted! Please check the transaction status on the explorer.",
		TxID:             txHash,
		ExplorerURL:      fmt.Sprintf("%s/%s", h.explorerURL, txHash),
		Success:          true,
		Note:             "If the transaction succeeds you will receive your token reward. Please verify on the explorer.",
		CanRetryIfFailed: true,
	})
}

func (h *Handler) ClaimStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.ClaimStatus(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "GET", "/submissions/{address}/claim-status", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrSubmissionNotFound):
			h.respondError(w, "GET", "/submissions/{address}/claim-status", http.StatusNotFound, codeNotFound,
				"No submission found for this wallet address")
		default:
			h.internalError(w, "GET", "/submissions/{address}/claim-status", err, "Failed to check claim status")
		}
		return
	}
	if status.LastTransactionHash != nil {
		url := fmt.Sprintf("%s/%s", h.explorerURL, *status.LastTransactionHash)
		status.ExplorerURL = &url
	}
	h.respondJSON(w, "GET", "/submissions/{address}/claim-status", http.StatusOK, status)
}

func (h *Handler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InvalidateStatus(r.Context(), mux.Vars(r)["address"]); err != nil {
		h.respondError(w, "POST", "/clear-cache/{address}", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		return
	}
	h.respondJSON(w, "POST", "/clear-cache/{address}", http.StatusOK, map[string]string{
		"message": "Cache cleared successfully",
	})
}

func (h *Handler) CheckRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	registered, err := h.svc.CheckRegistration(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.respondError(w, "GET", "/check-registration/{address}", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		return
	}
	message := "Student is NOT registered in the smart contract"
	if registered {
		message = "Student is registered in the smart contract"
	}
	h.respondJSON(w, "GET", "/check-registration/{address}", http.StatusOK, map[string]interface{}{
		"isRegistered": registered,
		"message":      message,
	})
}

func (h *Handler) SyncRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/sync-registration", http.StatusBadRequest, codeValidation, "Malformed JSON body")
		return
	}
	if req.WalletAddress == "" || req.Name == "" {
		h.respondError(w, "POST", "/sync-registration", http.StatusBadRequest, codeValidation,
			"Missing required fields: walletAddress and name are required")
		return
	}

	created, err := h.svc.SyncRegistration(r.Context(), req.WalletAddress, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAddress):
			h.respondError(w, "POST", "/sync-registration", http.StatusBadRequest, codeValidation, "Invalid wallet address")
		case errors.Is(err, service.ErrNotRegistered):
			h.respondError(w, "POST", "/sync-registration", http.StatusBadRequest, codeNotRegistered,
				"Student is not registered in the smart contract. Please complete registration first.")
		default:
			h.internalError(w, "POST", "/sync-registration", err, "Failed to sync registration state")
		}
		return
	}

	if !created {
		h.respondJSON(w, "POST", "/sync-registration", http.StatusOK, map[string]interface{}{
			"message":        "Registration already synced",
			"status":         "already_exists",
			"canSubmitProof": true,
		})
		return
	}
	h.respondJSON(w, "POST", "/sync-registration", http.StatusCreated, map[string]interface{}{
		"message":        "Registration state synced successfully! You can now submit your proof.",
		"status":         "synced",
		"canSubmitProof": true,
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, "GET", "/health", http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) authorizeModerator(r *http.Request) bool {
	key := r.Header.Get("x-moderator-key")
	if key == "" || h.moderatorKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.moderatorKey)) == 1
}

// internalError logs the underlying error server-side and sends callers an
// opaque message. Internal details never reach the response body.
func (h *Handler) internalError(w http.ResponseWriter, method, endpoint string, err error, message string) {
	h.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"error":    err.Error(),
	}).Error("request failed")
	h.respondError(w, method, endpoint, http.StatusInternalServerError, codeInternal, message)
}

func (h *Handler) respondError(w http.ResponseWriter, method, endpoint string, httpCode int, code, message string) {
	h.respondJSON(w, method, endpoint, httpCode, map[string]string{
		"message": message,
		"error":   code,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, method, endpoint string, httpCode int, payload interface{}) {
	httpRequestsTotal.WithLabelValues(method, endpoint, fmt.Sprintf("%d", httpCode)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
