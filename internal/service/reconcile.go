// Package service reconciles the three sources of truth about a student's
// claim: the submission store, the on-chain registration/reward facts, and
// the status cache. Status is re-derived from source facts on every read;
// there is no persisted state machine that could drift from the ledger.
package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/z00rs/learn2earn-herman-test/internal/cache"
	"github.com/z00rs/learn2earn-herman-test/internal/ledger"
	"github.com/z00rs/learn2earn-herman-test/internal/logging"
	"github.com/z00rs/learn2earn-herman-test/internal/models"
	"github.com/z00rs/learn2earn-herman-test/internal/store"
)

var (
	ErrNotRegistered      = errors.New("student is not registered in the contract")
	ErrNotApproved        = errors.New("no approved submission for this wallet address")
	ErrAlreadyRewarded    = errors.New("reward was already claimed")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// SubmissionStore is the slice of the store the reconciliation core needs.
type SubmissionStore interface {
	Get(ctx context.Context, address string) (*models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
	ListApproved(ctx context.Context) ([]models.ApprovedSubmission, error)
	UpsertProof(ctx context.Context, address, name, proofLink string) (created bool, err error)
	CreatePlaceholder(ctx context.Context, address, name string) (created bool, err error)
	SetApproval(ctx context.Context, address string, approved bool, notes string) error
	RecordClaimAttempt(ctx context.Context, address, txHash string) error
}

type Service struct {
	store  SubmissionStore
	ledger ledger.Client
	cache  cache.StatusCache
	log    *logrus.Logger
	claims *addressLocks
}

func New(s SubmissionStore, l ledger.Client, c cache.StatusCache, log *logrus.Logger) *Service {
	return &Service{
		store:  s,
		ledger: l,
		cache:  c,
		log:    log,
		claims: newAddressLocks(),
	}
}

// GetStatus returns the aggregated view for one address: ledger facts, store
// row, and the derived canClaimReward bit. The view is cached per address;
// within the TTL repeat calls never touch the ledger.
func (s *Service) GetStatus(ctx context.Context, rawAddress string) (*models.StatusView, error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return nil, err
	}

	if view, ok := s.cache.Get(ctx, address); ok {
		return view, nil
	}

	registered := s.ledger.IsRegistered(ctx, address)
	rewarded := s.ledger.IsRewarded(ctx, address)

	sub, err := s.store.Get(ctx, address)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	view := &models.StatusView{
		WalletAddress: address,
		IsRegistered:  registered,
		IsRewarded:    rewarded,
		HasSubmission: sub != nil,
		Submission:    sub,
		CanClaimReward: registered && !rewarded &&
			sub != nil && sub.Approved && !sub.Claimed,
	}
	s.cache.Set(ctx, address, view)

	s.log.WithFields(logrus.Fields{
		"address":    logging.MaskAddress(address),
		"registered": registered,
		"rewarded":   rewarded,
	}).Debug("status recomputed and cached")

	return view, nil
}

// GetSubmission returns the raw store row.
func (s *Service) GetSubmission(ctx context.Context, rawAddress string) (*models.Submission, error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Get(ctx, address)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	return sub, err
}

// SubmitProof records a proof for a registered student. The registration
// precondition is checked first so an unregistered submit leaves the store
// untouched. Returns whether a new row was created (vs a placeholder filled).
func (s *Service) SubmitProof(ctx context.Context, rawAddress, name, proofLink string) (created bool, err error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return false, err
	}

	if !s.ledger.IsRegistered(ctx, address) {
		return false, ErrNotRegistered
	}

	created, err = s.store.UpsertProof(ctx, address, name, proofLink)
	if err != nil {
		return false, err
	}

	// the next status read must see hasSubmission without waiting out the TTL
	s.cache.Delete(ctx, address)

	s.log.WithFields(logrus.Fields{
		"address": logging.MaskAddress(address),
		"created": created,
	}).Info("proof submission stored")
	return created, nil
}

// SyncRegistration creates a placeholder row for a student whose on-chain
// registration happened before any local record existed. Idempotent: an
// existing row is left alone.
func (s *Service) SyncRegistration(ctx context.Context, rawAddress, name string) (created bool, err error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return false, err
	}

	if !s.ledger.IsRegistered(ctx, address) {
		return false, ErrNotRegistered
	}

	created, err = s.store.CreatePlaceholder(ctx, address, name)
	if err != nil {
		return false, err
	}
	if created {
		s.cache.Delete(ctx, address)
	}
	return created, nil
}

// Approve applies the moderator's decision and invalidates the cached view.
func (s *Service) Approve(ctx context.Context, rawAddress string, approved bool, notes string) error {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return err
	}

	if err := s.store.SetApproval(ctx, address, approved, notes); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	s.cache.Delete(ctx, address)

	s.log.WithFields(logrus.Fields{
		"address":  logging.MaskAddress(address),
		"approved": approved,
	}).Info("moderator decision recorded")
	return nil
}

// RequestClaim bridges the idempotent rewarded pre-check with the
// non-idempotent grade broadcast. The pre-check order is: rewarded fact
// first (terminal, never retryable), then local approval, then a fresh
// registration check, then broadcast. A per-address lock covers the whole
// window so concurrent claims for one address cannot both broadcast; the
// contract-side rewarded check remains the final safety net.
//
// On success only the attempt is persisted. The row is never marked claimed
// here: an accepted broadcast can still revert, and the only fact trusted as
// "truly claimed" is the ledger's rewarded flag on a later read.
func (s *Service) RequestClaim(ctx context.Context, rawAddress string) (txHash string, err error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return "", err
	}

	release := s.claims.acquire(address)
	defer release()

	if s.ledger.IsRewarded(ctx, address) {
		return "", ErrAlreadyRewarded
	}

	sub, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotApproved
		}
		return "", err
	}
	if !sub.Approved {
		return "", ErrNotApproved
	}

	if !s.ledger.IsRegistered(ctx, address) {
		return "", ErrNotRegistered
	}

	txHash, err = s.ledger.SubmitGrade(ctx, address, true)
	if err != nil {
		return "", err
	}

	if err := s.store.RecordClaimAttempt(ctx, address, txHash); err != nil {
		// the transaction is already out; the caller still needs the hash
		s.log.WithFields(logrus.Fields{
			"address": logging.MaskAddress(address),
			"tx_hash": logging.MaskTxHash(txHash),
			"error":   err.Error(),
		}).Error("failed to persist claim attempt after broadcast")
	}
	s.cache.Delete(ctx, address)

	s.log.WithFields(logrus.Fields{
		"address": logging.MaskAddress(address),
		"tx_hash": logging.MaskTxHash(txHash),
	}).Info("claim broadcast, pending confirmation")
	return txHash, nil
}

// ClaimStatus reports where a broadcast claim stands: the authoritative
// rewarded fact, the last attempt reference, and the receipt state when a
// reference exists.
func (s *Service) ClaimStatus(ctx context.Context, rawAddress string) (*models.ClaimStatus, error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	rewarded := s.ledger.IsRewarded(ctx, address)
	status := &models.ClaimStatus{
		WalletAddress:       address,
		HasBeenRewarded:     rewarded,
		CanClaim:            sub.Approved && !rewarded,
		LastTransactionHash: sub.TransactionHash,
		LastAttemptAt:       sub.ClaimAttemptedAt,
	}
	if sub.TransactionHash != nil {
		status.TransactionStatus = s.ledger.TransactionOutcome(ctx, *sub.TransactionHash)
	}
	return status, nil
}

// CheckRegistration is the bare registered fact for one address.
func (s *Service) CheckRegistration(ctx context.Context, rawAddress string) (bool, error) {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return false, err
	}
	return s.ledger.IsRegistered(ctx, address), nil
}

// InvalidateStatus purges the cached view. Registration happens through a
// client-signed transaction this service never observes, so clients signal
// the confirmation here to skip the TTL on their next status read.
func (s *Service) InvalidateStatus(ctx context.Context, rawAddress string) error {
	address, err := models.CanonicalAddress(rawAddress)
	if err != nil {
		return err
	}
	s.cache.Delete(ctx, address)
	s.log.WithField("address", logging.MaskAddress(address)).Debug("status cache cleared")
	return nil
}

// ListSubmissions is the moderator view of every row.
func (s *Service) ListSubmissions(ctx context.Context) ([]models.ModeratorSubmission, error) {
	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ModeratorSubmission, 0, len(subs))
	for _, sub := range subs {
		out = append(out, models.ModeratorSubmission{
			ID:             sub.ID,
			WalletAddress:  sub.WalletAddress,
			Name:           sub.Name,
			ProofLink:      sub.ProofLink,
			Submitted:      true,
			Approved:       sub.Approved,
			SubmittedAt:    sub.SubmittedAt,
			ApprovedAt:     sub.ApprovedAt,
			ModeratorNotes: sub.ModeratorNotes,
		})
	}
	return out, nil
}

// ListApproved is the public approved roster.
func (s *Service) ListApproved(ctx context.Context) ([]models.ApprovedSubmission, error) {
	return s.store.ListApproved(ctx)
}
