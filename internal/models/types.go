package models

import "time"

// PlaceholderProof marks a row created by registration sync before the
// student has submitted a real proof link.
const PlaceholderProof = "SYNC_PLACEHOLDER"

// Submission is one student's proof record, keyed by canonical wallet address.
type Submission struct {
	ID               int64      `json:"id"`
	WalletAddress    string     `json:"walletAddress"`
	Name             string     `json:"name"`
	ProofLink        string     `json:"proofLink"`
	SubmittedAt      time.Time  `json:"submittedAt"`
	Approved         bool       `json:"approved"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	ModeratorNotes   *string    `json:"moderatorNotes,omitempty"`
	Claimed          bool       `json:"claimed"`
	ClaimedAt        *time.Time `json:"claimedAt,omitempty"`
	TransactionHash  *string    `json:"transactionHash,omitempty"`
	ClaimAttemptedAt *time.Time `json:"claimAttemptedAt,omitempty"`
}

// HasRealProof reports whether the row carries an actual proof link rather
// than the sync placeholder.
func (s *Submission) HasRealProof() bool {
	return s.ProofLink != "" && s.ProofLink != PlaceholderProof
}

// StatusView is the aggregated, cacheable answer to "where does this student
// stand?". It is derived from ledger and store facts and never stored as
// independent truth.
type StatusView struct {
	WalletAddress  string      `json:"walletAddress"`
	IsRegistered   bool        `json:"isRegistered"`
	IsRewarded     bool        `json:"isRewarded"`
	HasSubmission  bool        `json:"hasSubmission"`
	Submission     *Submission `json:"submission"`
	CanClaimReward bool        `json:"canClaimReward"`
}

// TxStatus is the lifecycle of a broadcast transaction as seen by the ledger.
type TxStatus string

const (
	TxPending  TxStatus = "pending"
	TxSuccess  TxStatus = "success"
	TxReverted TxStatus = "reverted"
)

// TxOutcome is the receipt-derived state of one transaction.
type TxOutcome struct {
	Status      TxStatus `json:"status"`
	BlockNumber uint64   `json:"blockNumber,omitempty"`
	GasUsed     uint64   `json:"gasUsed,omitempty"`
}

// ClaimStatus resolves the ambiguity left by a claim request: the broadcast
// reference plus the ledger's own view of whether tokens actually moved.
type ClaimStatus struct {
	WalletAddress       string     `json:"walletAddress"`
	HasBeenRewarded     bool       `json:"hasBeenRewarded"`
	CanClaim            bool       `json:"canClaim"`
	LastTransactionHash *string    `json:"lastTransactionHash"`
	LastAttemptAt       *time.Time `json:"lastAttemptAt"`
	TransactionStatus   *TxOutcome `json:"transactionStatus"`
	ExplorerURL         *string    `json:"explorerUrl"`
}

// ProofRequest is the payload for POST /api/submissions.
type ProofRequest struct {
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
	ProofLink     string `json:"proofLink"`
}

// SyncRequest is the payload for POST /api/sync-registration.
type SyncRequest struct {
	WalletAddress string `json:"walletAddress"`
	Name          string `json:"name"`
}

// ApproveRequest is the moderator's payload for the approve endpoint.
type ApproveRequest struct {
	Approved       bool   `json:"approved"`
	ModeratorNotes string `json:"moderatorNotes"`
}

// ClaimResponse is returned when a grade transaction has been accepted for
// broadcast. Broadcast acceptance is not execution success; the note says so.
type ClaimResponse struct {
	Message          string `json:"message"`
	TxID             string `json:"txId"`
	ExplorerURL      string `json:"explorerUrl"`
	Success          bool   `json:"success"`
	Note             string `json:"note"`
	CanRetryIfFailed bool   `json:"canRetryIfFailed"`
}

// ModeratorSubmission is the shape of rows in the moderator listing.
type ModeratorSubmission struct {
	ID             int64      `json:"id"`
	WalletAddress  string     `json:"walletAddress"`
	Name           string     `json:"name"`
	ProofLink      string     `json:"proofLink"`
	Submitted      bool       `json:"submitted"`
	Approved       bool       `json:"approved"`
	SubmittedAt    time.Time  `json:"submittedAt"`
	ApprovedAt     *time.Time `json:"approvedAt"`
	ModeratorNotes *string    `json:"moderatorNotes"`
}

// ApprovedSubmission is the public listing of approved students.
type ApprovedSubmission struct {
	WalletAddress string `json:"wallet_address"`
	Name          string `json:"name"`
}
