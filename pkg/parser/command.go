package parser

import (
	"fmt"
	"regexp"
	"strings"

	"afri-swap/pkg/types"
)

// <amount> <source_token> TO <dest_token>, e.g. "1 ETH TO AFR", "0.5 AFR -> USDC"
var swapPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s+([A-Z0-9]+)\s+(?:TO|->)\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a swap command
// Examples:
//   - "swap 1 ETH to AFR"
//   - "1.5 AFR to USDC"
//   - "100 USDC -> AFR"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	// Normalize the command
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("%w: expected '<amount> <token> to <token>' (e.g. '1 ETH to AFR')", types.ErrInvalidInput)
	}

	req := &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeTokenSymbol(matches[2]),
		DestToken:   NormalizeTokenSymbol(matches[3]),
	}
	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseSwapArgs parses a command split into CLI arguments
func ParseSwapArgs(args []string) (*types.SwapRequest, error) {
	return ParseSwapCommand(strings.Join(args, " "))
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("%w: amount is required", types.ErrInvalidInput)
	}
	if req.SourceToken == "" {
		return fmt.Errorf("%w: source token is required", types.ErrInvalidInput)
	}
	if req.DestToken == "" {
		return fmt.Errorf("%w: destination token is required", types.ErrInvalidInput)
	}
	if req.SourceToken == req.DestToken {
		return fmt.Errorf("%w: cannot swap %s to itself", types.ErrInvalidInput, req.SourceToken)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Wrapped native asset is quoted as the native asset
	if symbol == "WETH" {
		return "ETH"
	}
	return symbol
}
