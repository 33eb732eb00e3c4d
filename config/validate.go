package config

import (
	"fmt"
	"net"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.ConfirmationsDepth == 0 {
		return fmt.Errorf("%w: confirmations_depth must be positive", ErrInvalidKnob)
	}
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("%w: pool_size must be positive", ErrInvalidKnob)
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidKnob)
	}
	if cfg.MaxConfirmationTime <= 0 {
		return fmt.Errorf("%w: max_confirmation_time must be positive", ErrInvalidKnob)
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: max_request_size must be positive", ErrInvalidKnob)
	}
	if cfg.InvShareInterval <= 0 {
		return fmt.Errorf("%w: inv_share_interval must be positive", ErrInvalidKnob)
	}
	if cfg.ReorgWindow == 0 {
		return fmt.Errorf("%w: reorg_window must be positive", ErrInvalidKnob)
	}
	if cfg.ChainRPCURL == "" {
		return fmt.Errorf("%w: chain_rpc_url must not be empty", ErrInvalidKnob)
	}
	if cfg.ChainPollInterval <= 0 {
		return fmt.Errorf("%w: chain_poll_interval must be positive", ErrInvalidKnob)
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
