package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ERC-20 subset: approve, allowance, balanceOf and the Transfer event
const erc20ABIJSON = `[
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// Swap contract: estimate(tokenIn, tokenOut, amountIn) and swap(tokenIn, tokenOut, amountIn)
const swapABIJSON = `[
{"constant":true,"inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"}],"name":"estimate","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":false,"payable":true,"stateMutability":"payable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"}],"name":"swap","outputs":[],"type":"function"}
]`

// Price oracle: getLatestPrice(token)
const priceABIJSON = `[
{"constant":true,"inputs":[{"name":"token","type":"address"}],"name":"getLatestPrice","outputs":[{"name":"","type":"int256"}],"type":"function"}
]`

var (
	erc20ABI = mustParseABI(erc20ABIJSON)
	swapABI  = mustParseABI(swapABIJSON)
	priceABI = mustParseABI(priceABIJSON)

	// transferTopic is keccak256("Transfer(address,address,uint256)")
	transferTopic = erc20ABI.Events["Transfer"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// unpackBigInt decodes a single integer return value
func unpackBigInt(contract abi.ABI, method string, data []byte) (*big.Int, error) {
	out, err := contract.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, out[0])
	}
	return value, nil
}

// transferTopics builds the topic filter for a Transfer query
func transferTopics(filter TransferFilter) [][]common.Hash {
	topics := [][]common.Hash{{transferTopic}, nil, nil}
	if filter.From != nil {
		topics[1] = []common.Hash{common.BytesToHash(filter.From.Bytes())}
	}
	if filter.To != nil {
		topics[2] = []common.Hash{common.BytesToHash(filter.To.Bytes())}
	}
	return topics
}

// decodeTransferLog maps a raw log to a TransferLog
func decodeTransferLog(log types.Log) (TransferLog, error) {
	if len(log.Topics) != 3 || log.Topics[0] != transferTopic {
		return TransferLog{}, fmt.Errorf("log %s:%d is not an ERC-20 Transfer", log.TxHash.Hex(), log.Index)
	}

	value, err := unpackBigInt(erc20ABI, "Transfer", log.Data)
	if err != nil {
		return TransferLog{}, err
	}

	return TransferLog{
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		From:        common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Value:       value,
	}, nil
}
