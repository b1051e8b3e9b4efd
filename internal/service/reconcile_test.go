package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z00rs/learn2earn-herman-test/internal/cache"
	"github.com/z00rs/learn2earn-herman-test/internal/ledger"
	"github.com/z00rs/learn2earn-herman-test/internal/models"
	"github.com/z00rs/learn2earn-herman-test/internal/store"
)

const testAddr = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
const testAddrLower = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type fakeLedger struct {
	registered bool
	rewarded   bool
	submitErr  error
	txHash     string
	outcome    *models.TxOutcome

	readCalls   int
	broadcasted []string
}

func (f *fakeLedger) IsRegistered(ctx context.Context, address string) bool {
	f.readCalls++
	return f.registered
}

func (f *fakeLedger) IsRewarded(ctx context.Context, address string) bool {
	f.readCalls++
	return f.rewarded
}

func (f *fakeLedger) SubmitGrade(ctx context.Context, address string, approved bool) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.broadcasted = append(f.broadcasted, address)
	return f.txHash, nil
}

func (f *fakeLedger) TransactionOutcome(ctx context.Context, txHash string) *models.TxOutcome {
	if f.outcome != nil {
		return f.outcome
	}
	return &models.TxOutcome{Status: models.TxPending}
}

type fakeStore struct {
	subs      map[string]*models.Submission
	nextID    int64
	mutations int
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[string]*models.Submission)}
}

func (f *fakeStore) Get(ctx context.Context, address string) (*models.Submission, error) {
	sub, ok := f.subs[address]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeStore) List(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range f.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (f *fakeStore) ListApproved(ctx context.Context) ([]models.ApprovedSubmission, error) {
	var out []models.ApprovedSubmission
	for _, sub := range f.subs {
		if sub.Approved {
			out = append(out, models.ApprovedSubmission{WalletAddress: sub.WalletAddress, Name: sub.Name})
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertProof(ctx context.Context, address, name, proofLink string) (bool, error) {
	if existing, ok := f.subs[address]; ok {
		if existing.HasRealProof() {
			return false, store.ErrDuplicateSubmission
		}
		f.mutations++
		existing.Name = name
		existing.ProofLink = proofLink
		existing.SubmittedAt = time.Now()
		return false, nil
	}
	f.mutations++
	f.nextID++
	f.subs[address] = &models.Submission{
		ID:            f.nextID,
		WalletAddress: address,
		Name:          name,
		ProofLink:     proofLink,
		SubmittedAt:   time.Now(),
	}
	return true, nil
}

func (f *fakeStore) CreatePlaceholder(ctx context.Context, address, name string) (bool, error) {
	if _, ok := f.subs[address]; ok {
		return false, nil
	}
	f.mutations++
	f.nextID++
	f.subs[address] = &models.Submission{
		ID:            f.nextID,
		WalletAddress: address,
		Name:          name,
		ProofLink:     models.PlaceholderProof,
		SubmittedAt:   time.Now(),
	}
	return true, nil
}

func (f *fakeStore) SetApproval(ctx context.Context, address string, approved bool, notes string) error {
	sub, ok := f.subs[address]
	if !ok {
		return store.ErrNotFound
	}
	f.mutations++
	now := time.Now()
	sub.Approved = approved
	sub.ApprovedAt = &now
	if notes != "" {
		sub.ModeratorNotes = &notes
	}
	return nil
}

func (f *fakeStore) RecordClaimAttempt(ctx context.Context, address, txHash string) error {
	sub, ok := f.subs[address]
	if !ok {
		return store.ErrNotFound
	}
	f.mutations++
	now := time.Now()
	sub.TransactionHash = &txHash
	sub.ClaimAttemptedAt = &now
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(l *fakeLedger, st *fakeStore) *Service {
	return New(st, l, cache.NewMemory(5*time.Second), quietLogger())
}

func TestSubmitAndStatusAggregation(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	created, err := svc.SubmitProof(ctx, testAddr, "Alice", "https://proof")
	require.NoError(t, err)
	assert.True(t, created, "first submission creates a row")

	view, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, view.IsRegistered)
	assert.False(t, view.IsRewarded)
	assert.True(t, view.HasSubmission)
	require.NotNil(t, view.Submission)
	assert.False(t, view.Submission.Approved)
	assert.False(t, view.CanClaimReward, "unapproved submission cannot claim")
}

func TestApprovalEnablesClaim(t *testing.T) {
	l := &fakeLedger{registered: true, txHash: "0xdeadbeef00000000000000000000000000000000000000000000000000000000"}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	_, err := svc.SubmitProof(ctx, testAddr, "Alice", "https://proof")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, testAddr, true, "looks good"))

	view, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, view.CanClaimReward, "approved, registered, unrewarded row can claim")

	txHash, err := svc.RequestClaim(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, l.txHash, txHash)

	status, err := svc.ClaimStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.False(t, status.HasBeenRewarded, "broadcast alone does not make the reward real")
	require.NotNil(t, status.LastTransactionHash)
	assert.Equal(t, l.txHash, *status.LastTransactionHash)
	assert.NotNil(t, status.LastAttemptAt)
}

func TestClaimIsIdempotentOnceRewarded(t *testing.T) {
	l := &fakeLedger{registered: true, rewarded: true}
	st := newFakeStore()
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof", Approved: true,
	}
	svc := newTestService(l, st)
	ctx := context.Background()

	_, err := svc.RequestClaim(ctx, testAddr)
	assert.ErrorIs(t, err, ErrAlreadyRewarded)
	assert.Empty(t, l.broadcasted, "no transaction is broadcast once rewarded")

	view, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.False(t, view.CanClaimReward)
}

func TestClaimDoesNotSetClaimedFlag(t *testing.T) {
	l := &fakeLedger{registered: true, txHash: "0x1111111111111111111111111111111111111111111111111111111111111111"}
	st := newFakeStore()
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof", Approved: true,
	}
	svc := newTestService(l, st)

	_, err := svc.RequestClaim(context.Background(), testAddr)
	require.NoError(t, err)

	row := st.subs[testAddrLower]
	assert.False(t, row.Claimed, "claimed flag stays false after broadcast")
	assert.NotNil(t, row.TransactionHash)
	assert.NotNil(t, row.ClaimAttemptedAt)
}

func TestClaimRequiresApproval(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	// no row at all
	_, err := svc.RequestClaim(ctx, testAddr)
	assert.ErrorIs(t, err, ErrNotApproved)

	// unapproved row
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof",
	}
	_, err = svc.RequestClaim(ctx, testAddr)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Empty(t, l.broadcasted)
}

func TestClaimRechecksRegistration(t *testing.T) {
	l := &fakeLedger{registered: false}
	st := newFakeStore()
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof", Approved: true,
	}
	svc := newTestService(l, st)

	_, err := svc.RequestClaim(context.Background(), testAddr)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Empty(t, l.broadcasted)
}

func TestClaimBroadcastFailureIsRetryable(t *testing.T) {
	submitErr := &ledger.SubmissionError{Err: assert.AnError}
	l := &fakeLedger{registered: true, submitErr: submitErr}
	st := newFakeStore()
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof", Approved: true,
	}
	svc := newTestService(l, st)

	_, err := svc.RequestClaim(context.Background(), testAddr)
	var se *ledger.SubmissionError
	require.ErrorAs(t, err, &se)

	row := st.subs[testAddrLower]
	assert.Nil(t, row.TransactionHash, "failed broadcast leaves no attempt record")
	assert.Nil(t, row.ClaimAttemptedAt)
}

func TestSubmitProofRequiresRegistration(t *testing.T) {
	l := &fakeLedger{registered: false}
	st := newFakeStore()
	svc := newTestService(l, st)

	_, err := svc.SubmitProof(context.Background(), testAddr, "Alice", "https://proof")
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Zero(t, st.mutations, "store is untouched when registration is missing")
	assert.Empty(t, st.subs)
}

func TestDuplicateProofRejected(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	_, err := svc.SubmitProof(ctx, testAddr, "Alice", "https://proof-1")
	require.NoError(t, err)

	_, err = svc.SubmitProof(ctx, testAddr, "Alice", "https://proof-2")
	assert.ErrorIs(t, err, store.ErrDuplicateSubmission)
}

func TestPlaceholderUpgradedByRealProof(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	created, err := svc.SyncRegistration(ctx, testAddr, "Alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SubmitProof(ctx, testAddr, "Alice", "https://proof")
	require.NoError(t, err)
	assert.False(t, created, "placeholder row is updated, not recreated")
	assert.Equal(t, "https://proof", st.subs[testAddrLower].ProofLink)
}

func TestCaseInsensitiveIdentity(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	_, err := svc.SubmitProof(ctx, testAddr, "Alice", "https://proof")
	require.NoError(t, err)
	require.Len(t, st.subs, 1, "mixed-case and lowercase map to one row")

	upper, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	lower, err := svc.GetStatus(ctx, testAddrLower)
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
	assert.Equal(t, testAddrLower, upper.WalletAddress)
}

func TestStatusCacheShieldsLedger(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	first, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	callsAfterFirst := l.readCalls
	assert.Equal(t, 2, callsAfterFirst, "miss reads registered and rewarded")

	second, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, l.readCalls, "cache hit performs zero ledger reads")
	assert.Equal(t, first, second)

	require.NoError(t, svc.InvalidateStatus(ctx, testAddr))
	_, err = svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst+2, l.readCalls, "invalidation forces fresh ledger reads")
}

func TestMutationsInvalidateCache(t *testing.T) {
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	svc := newTestService(l, st)
	ctx := context.Background()

	view, err := svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.False(t, view.HasSubmission)

	_, err = svc.SubmitProof(ctx, testAddr, "Alice", "https://proof")
	require.NoError(t, err)

	view, err = svc.GetStatus(ctx, testAddr)
	require.NoError(t, err)
	assert.True(t, view.HasSubmission, "submission is visible immediately, without waiting out the TTL")
}

func TestInvalidAddressRejected(t *testing.T) {
	svc := newTestService(&fakeLedger{}, newFakeStore())
	ctx := context.Background()

	_, err := svc.GetStatus(ctx, "not-an-address")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)

	_, err = svc.RequestClaim(ctx, "0x123")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
}

func TestClaimStatusPendingOutcome(t *testing.T) {
	txHash := "0x2222222222222222222222222222222222222222222222222222222222222222"
	now := time.Now()
	l := &fakeLedger{registered: true}
	st := newFakeStore()
	st.subs[testAddrLower] = &models.Submission{
		WalletAddress: testAddrLower, Name: "Alice", ProofLink: "https://proof",
		Approved: true, TransactionHash: &txHash, ClaimAttemptedAt: &now,
	}
	svc := newTestService(l, st)

	status, err := svc.ClaimStatus(context.Background(), testAddr)
	require.NoError(t, err)
	assert.True(t, status.CanClaim)
	require.NotNil(t, status.TransactionStatus)
	assert.Equal(t, models.TxPending, status.TransactionStatus.Status)
}
