// Package ledger isolates all interaction with the rewards contract behind a
// small client: two fail-closed reads, one signed state-changing broadcast,
// and receipt polling.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/z00rs/learn2earn-herman-test/internal/logging"
	"github.com/z00rs/learn2earn-herman-test/internal/models"
)

// rewardsABI covers the two entry points the backend needs: the students
// registry view and the grading call that distributes the reward.
const rewardsABI = `[
  {
    "name": "students",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "", "type": "address"}],
    "outputs": [
      {"name": "wallet", "type": "address"},
      {"name": "name", "type": "string"},
      {"name": "familyName", "type": "string"},
      {"name": "registered", "type": "bool"},
      {"name": "rewarded", "type": "bool"},
      {"name": "certificate", "type": "bytes32"}
    ]
  },
  {
    "name": "gradeSubmission",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "studentAddress", "type": "address"},
      {"name": "approved", "type": "bool"}
    ],
    "outputs": []
  }
]`

// Client is the surface the reconciliation service depends on.
type Client interface {
	IsRegistered(ctx context.Context, address string) bool
	IsRewarded(ctx context.Context, address string) bool
	SubmitGrade(ctx context.Context, address string, approved bool) (string, error)
	TransactionOutcome(ctx context.Context, txHash string) *models.TxOutcome
}

// SubmissionError wraps a broadcast failure. Broadcast failures are retryable
// by the caller because no local claim state is set before broadcast succeeds.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("grade transaction broadcast failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// EthClient talks to the rewards contract over JSON-RPC.
type EthClient struct {
	client      *ethclient.Client
	contract    common.Address
	abi         abi.ABI
	key         *ecdsa.PrivateKey
	distributor common.Address
	chainID     *big.Int
	readTimeout time.Duration
	log         *logrus.Logger
}

var _ Client = (*EthClient)(nil)

// New dials the RPC node, parses the distribution key and derives the
// distributor address the grade transactions will be sent from.
func New(rpcURL, contractAddr, distributorKey string, chainID int64, readTimeout time.Duration, log *logrus.Logger) (*EthClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger RPC: %w", err)
	}

	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address: %s", contractAddr)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(distributorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid distributor private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(rewardsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rewards ABI: %w", err)
	}

	return &EthClient{
		client:      client,
		contract:    common.HexToAddress(contractAddr),
		abi:         parsed,
		key:         key,
		distributor: crypto.PubkeyToAddress(key.PublicKey),
		chainID:     big.NewInt(chainID),
		readTimeout: readTimeout,
		log:         log,
	}, nil
}

// studentState reads the registered and rewarded flags in one eth_call.
func (c *EthClient) studentState(ctx context.Context, address string) (registered, rewarded bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	data, err := c.abi.Pack("students", common.HexToAddress(address))
	if err != nil {
		return false, false, fmt.Errorf("failed to pack students call: %w", err)
	}

	res, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return false, false, fmt.Errorf("students call failed: %w", err)
	}

	out, err := c.abi.Unpack("students", res)
	if err != nil {
		return false, false, fmt.Errorf("failed to decode students result: %w", err)
	}
	if len(out) < 5 {
		return false, false, fmt.Errorf("unexpected students result arity: %d", len(out))
	}

	registered, ok := out[3].(bool)
	if !ok {
		return false, false, fmt.Errorf("unexpected type for registered flag")
	}
	rewarded, ok = out[4].(bool)
	if !ok {
		return false, false, fmt.Errorf("unexpected type for rewarded flag")
	}
	return registered, rewarded, nil
}

// IsRegistered reports the contract's registration flag. Read failures are
// logged and collapsed to false: callers must treat false as "not confirmed",
// never as a hard negative.
func (c *EthClient) IsRegistered(ctx context.Context, address string) bool {
	registered, _, err := c.studentState(ctx, address)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("isRegistered", "error").Inc()
		c.log.WithFields(logrus.Fields{
			"address": logging.MaskAddress(address),
			"error":   err.Error(),
		}).Warn("registration check failed, treating as unregistered")
		return false
	}
	ledgerCallsTotal.WithLabelValues("isRegistered", "ok").Inc()
	return registered
}

// IsRewarded reports the contract's rewarded flag, with the same fail-closed
// policy as IsRegistered. Once true on-chain it never flips back.
func (c *EthClient) IsRewarded(ctx context.Context, address string) bool {
	_, rewarded, err := c.studentState(ctx, address)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("isRewarded", "error").Inc()
		c.log.WithFields(logrus.Fields{
			"address": logging.MaskAddress(address),
			"error":   err.Error(),
		}).Warn("reward check failed, treating as unrewarded")
		return false
	}
	ledgerCallsTotal.WithLabelValues("isRewarded", "ok").Inc()
	return rewarded
}

// SubmitGrade signs and broadcasts gradeSubmission(address, approved).
// It returns as soon as the node accepts the transaction; confirmation is
// observed separately via TransactionOutcome.
func (c *EthClient) SubmitGrade(ctx context.Context, address string, approved bool) (string, error) {
	data, err := c.abi.Pack("gradeSubmission", common.HexToAddress(address), approved)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("failed to pack gradeSubmission call: %w", err)}
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.distributor,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("gas estimation failed: %w", err)}
	}
	// 20% buffer over the estimate
	gasLimit = uint64(float64(gasLimit) * 1.2)

	nonce, err := c.client.PendingNonceAt(ctx, c.distributor)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("failed to fetch nonce: %w", err)}
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("failed to fetch gas price: %w", err)}
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("failed to sign transaction: %w", err)}
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		ledgerCallsTotal.WithLabelValues("submitGrade", "error").Inc()
		return "", &SubmissionError{Err: fmt.Errorf("failed to send transaction: %w", err)}
	}

	txHash := signedTx.Hash().Hex()
	ledgerCallsTotal.WithLabelValues("submitGrade", "ok").Inc()
	c.log.WithFields(logrus.Fields{
		"address":   logging.MaskAddress(address),
		"tx_hash":   logging.MaskTxHash(txHash),
		"gas_limit": gasLimit,
		"nonce":     nonce,
	}).Info("grade transaction broadcast")

	return txHash, nil
}

// TransactionOutcome polls for a receipt. No receipt, or any transport
// failure, reads as pending; the caller polls again later.
func (c *EthClient) TransactionOutcome(ctx context.Context, txHash string) *models.TxOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			ledgerCallsTotal.WithLabelValues("txOutcome", "error").Inc()
			c.log.WithFields(logrus.Fields{
				"tx_hash": logging.MaskTxHash(txHash),
				"error":   err.Error(),
			}).Warn("receipt lookup failed, reporting pending")
		} else {
			ledgerCallsTotal.WithLabelValues("txOutcome", "ok").Inc()
		}
		return &models.TxOutcome{Status: models.TxPending}
	}

	ledgerCallsTotal.WithLabelValues("txOutcome", "ok").Inc()
	status := models.TxReverted
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = models.TxSuccess
	}
	return &models.TxOutcome{
		Status:      status,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}
}
