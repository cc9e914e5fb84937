package utils

import "github.com/ethereum/go-ethereum/common"

// IsValidAddress reports whether the string is a syntactically valid
// hex-encoded account address.
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}
