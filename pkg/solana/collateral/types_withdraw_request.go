package collateral

const WithdrawRequestSize = (8 + // amount_of_asset
	8 + // signature_expiration_time
	32) // coordinator_signature_salt

// WithdrawRequest is the program's WithdrawCollateralRequest argument.
type WithdrawRequest struct {
	AmountOfAsset            uint64
	SignatureExpirationTime  uint64
	CoordinatorSignatureSalt [32]byte
}

func putWithdrawRequest(dst []byte, v WithdrawRequest, offset *int) {
	putUint64(dst, v.AmountOfAsset, offset)
	putUint64(dst, v.SignatureExpirationTime, offset)
	putBytes32(dst, v.CoordinatorSignatureSalt, offset)
}
