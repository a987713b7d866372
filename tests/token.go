package tests

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TokenSupply is the balance the token deployer starts with.
var TokenSupply, _ = new(big.Int).SetString("1000000000000000000000000000000", 10)

// tokenABI is the subset of the ERC-20 interface implemented by tokenBin.
const tokenABI = `[
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// tokenBin is a minimal ERC-20 without events. The deployer receives TokenSupply.
// Balances live at the slot of the holder address and allowances at owner<<96 ^ spender.
// transferFrom reverts when the allowance or the balance of from is lower than value, and
// any other selector reverts.
const tokenBin = "0x" +
	"7f000000000000000000000000000000000000000c9f2c9cd04674edea40000000" +
	"335560b0602f60003960b06000f3" +
	"60003560e01c806370a0823114610037578063dd62ed3e14610044578063095ea7b3" +
	"1461005857806323b872dd1461006f575b600080fd5b6004355460005260206000f3" +
	"5b60043560601b602435185460005260206000f35b6024353360601b600435185560" +
	"0160005260206000f35b60043560601b331880546044358082106100325790039055" +
	"600435805460443580821061003257900390556024358054604435019055600160005260206000f3"

func parseTokenABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(tokenABI))
}

