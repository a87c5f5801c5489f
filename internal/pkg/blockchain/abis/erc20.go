package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetERC20ABI returns the subset of IERC20 the workflow reads and writes.
// Balances of WETH are read through it too.
func GetERC20ABI() (*abi.ABI, error) {
	return load("ERC20", `[
		{
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "approve",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "account", "type": "address"}],
			"name": "balanceOf",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
}

// GetWETHABI returns the wrapped-ether deposit entry point.
func GetWETHABI() (*abi.ABI, error) {
	return load("WETH", `[
		{
			"inputs": [],
			"name": "deposit",
			"outputs": [],
			"stateMutability": "payable",
			"type": "function"
		}
	]`)
}
