package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	RPCURL          string
	ContractAddress string
	DistributorKey  string
	ChainID         int64
	ExplorerURL     string

	ModeratorKey string

	RedisAddr         string
	StatusCacheTTL    time.Duration
	LedgerReadTimeout time.Duration
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC_URL environment variable is required")
	}

	contractAddress := os.Getenv("CONTRACT_ADDRESS")
	if contractAddress == "" {
		return nil, fmt.Errorf("CONTRACT_ADDRESS environment variable is required")
	}

	distributorKey := os.Getenv("DISTRIBUTOR_PRIVATE_KEY")
	if distributorKey == "" {
		return nil, fmt.Errorf("DISTRIBUTOR_PRIVATE_KEY environment variable is required")
	}

	moderatorKey := os.Getenv("MODERATOR_KEY")
	if moderatorKey == "" {
		return nil, fmt.Errorf("MODERATOR_KEY environment variable is required")
	}

	chainID := int64(1)
	if raw := os.Getenv("CHAIN_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_ID %q: %w", raw, err)
		}
		chainID = parsed
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	explorerURL := os.Getenv("EXPLORER_URL")
	if explorerURL == "" {
		explorerURL = "https://explore-testnet.vechain.org/transactions"
	}

	cacheTTL, err := durationEnv("STATUS_CACHE_TTL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := durationEnv("LEDGER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBSource:          dbSource,
		Port:              port,
		Env:               env,
		RPCURL:            rpcURL,
		ContractAddress:   contractAddress,
		DistributorKey:    distributorKey,
		ChainID:           chainID,
		ExplorerURL:       explorerURL,
		ModeratorKey:      moderatorKey,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		StatusCacheTTL:    cacheTTL,
		LedgerReadTimeout: readTimeout,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return parsed, nil
}
