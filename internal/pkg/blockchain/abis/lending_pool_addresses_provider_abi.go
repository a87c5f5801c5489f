package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetLendingPoolAddressesProviderABI returns the ABI for the Aave V2 LendingPoolAddressesProvider.
// getLendingPool() resolves the pool proxy.
func GetLendingPoolAddressesProviderABI() (*abi.ABI, error) {
	return load("LendingPoolAddressesProvider", `[
		{
			"inputs": [],
			"name": "getLendingPool",
			"outputs": [
				{"name": "", "type": "address"}
			],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
}
