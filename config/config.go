package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"gamechain/crypto"
)

// Config carries the genesis parameters for the contract module family.
type Config struct {
	Owner     string        `toml:"Owner"`
	SignerKey string        `toml:"SignerKey"`
	Token     TokenConfig   `toml:"Token"`
	Market    MarketConfig  `toml:"Market"`
	Bridge    BridgeConfig  `toml:"Bridge"`
	Staking   StakingConfig `toml:"Staking"`
}

// TokenConfig seeds the fungible token module.
type TokenConfig struct {
	Name     string `toml:"Name"`
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
	Cap      string `toml:"Cap"`
}

// MarketConfig seeds the marketplace module.
type MarketConfig struct {
	Name      string `toml:"Name"`
	Symbol    string `toml:"Symbol"`
	BundleFee uint64 `toml:"BundleFee"`
}

// BridgeConfig seeds the bridge allow-lists and limits.
type BridgeConfig struct {
	AcceptedCurTokens []string          `toml:"AcceptedCurTokens"`
	AcceptedDesTokens []string          `toml:"AcceptedDesTokens"`
	MaxSwapAmounts    map[string]string `toml:"MaxSwapAmounts"`
}

// StakingConfig seeds the staking vault.
type StakingConfig struct {
	AcceptedTokens []string `toml:"AcceptedTokens"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks address encodings, the signer key and fee bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("config: Owner is required")
	}
	if _, err := crypto.DecodeAddress(c.Owner); err != nil {
		return fmt.Errorf("config: invalid Owner address: %w", err)
	}
	if key := strings.TrimSpace(c.SignerKey); key != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
		if err != nil {
			return fmt.Errorf("config: invalid SignerKey hex: %w", err)
		}
		if len(raw) != 33 && len(raw) != 65 {
			return fmt.Errorf("config: SignerKey must be a 33 or 65 byte public key")
		}
	}
	if c.Market.BundleFee > 10000 {
		return fmt.Errorf("config: Market.BundleFee above basis-point scale")
	}
	for _, addr := range c.Bridge.AcceptedCurTokens {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("config: invalid bridge token %q: %w", addr, err)
		}
	}
	for token := range c.Bridge.MaxSwapAmounts {
		if _, err := crypto.DecodeAddress(token); err != nil {
			return fmt.Errorf("config: invalid max swap token %q: %w", token, err)
		}
	}
	for _, addr := range c.Staking.AcceptedTokens {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("config: invalid staking token %q: %w", addr, err)
		}
	}
	return nil
}

// OwnerAddress returns the decoded owner account.
func (c *Config) OwnerAddress() ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(c.Owner)
	if err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], decoded.Bytes())
	return out, nil
}

// SignerKeyBytes returns the decoded signer public key, nil when unset.
func (c *Config) SignerKeyBytes() ([]byte, error) {
	key := strings.TrimSpace(c.SignerKey)
	if key == "" {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(key, "0x"))
}
