package logging

// Wallet addresses and transaction hashes are masked before they reach any
// log sink. Only a short prefix and suffix survive.

// MaskAddress shortens a wallet address to its first 6 and last 4 characters.
func MaskAddress(address string) string {
	if len(address) < 10 {
		return "[SHORT_ADDRESS]"
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// MaskTxHash shortens a transaction hash to its first 8 and last 6 characters.
func MaskTxHash(txHash string) string {
	if len(txHash) < 14 {
		return "[SHORT_TXID]"
	}
	return txHash[:8] + "..." + txHash[len(txHash)-6:]
}
