// Package ethunit converts between wei and ether.
package ethunit

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

const etherDecimals = 18

var weiPerEther = big.NewInt(params.Ether)

// FormatEther renders wei as an exact decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	rat := new(big.Rat).SetFrac(wei, weiPerEther)
	text := rat.FloatString(etherDecimals)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	if text == "-0" {
		return "0"
	}
	return text
}

// ToEther converts wei to a float64 ether value for display math.
func ToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	value, _ := new(big.Rat).SetFrac(wei, weiPerEther).Float64()
	return value
}

// ParseEther converts a decimal ether string to wei. At most 18 fractional digits are accepted.
func ParseEther(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(input, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("amount has more than %d decimals: %s", etherDecimals, input)
	}

	digits := whole + frac + strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(strings.TrimLeft(digits, "0"), 10)
	if !ok {
		wei = new(big.Int)
	}
	return wei, nil
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
