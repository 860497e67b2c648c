// Package solana holds Solana address helpers shared by the connectors.
package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Known program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// Well-known quote asset mints.
const (
	// WSOL is the Wrapped SOL mint address, the native asset placeholder.
	WSOL = "So11111111111111111111111111111111111111112"
	// NativeSOL is the system program address some APIs use for native SOL.
	NativeSOL = "11111111111111111111111111111111"
	// USDC is the Circle USD Coin mint address.
	USDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// USDT is the Tether USD mint address.
	USDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// PublicKeyLength is the size of a decoded Solana address.
const PublicKeyLength = 32

var quoteMints = map[string]struct{}{
	WSOL:      {},
	NativeSOL: {},
	USDC:      {},
	USDT:      {},
}

// IsQuoteMint reports whether mint is one of the well-known quote assets
// (native SOL or a major stablecoin) rather than a newly listed token.
func IsQuoteMint(mint string) bool {
	_, ok := quoteMints[mint]
	return ok
}

// ParsePublicKey decodes a base58 address and checks its length.
func ParsePublicKey(addr string) ([]byte, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode base58 %q: %w", addr, err)
	}
	if len(decoded) != PublicKeyLength {
		return nil, fmt.Errorf("address %q decodes to %d bytes, want %d", addr, len(decoded), PublicKeyLength)
	}
	return decoded, nil
}

// IsPublicKey reports whether addr is a well-formed base58 Solana address.
func IsPublicKey(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := ParsePublicKey(addr)
	return err == nil
}
