package withdrawal

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
)

// Tuple positions of the partner withdrawal parameters.
const (
	ParameterCollateral = iota
	ParameterAsset
	ParameterAmount
	ParameterRecipient
	ParameterExpiresAt
	ParameterSalt
	ParameterCoordinatorSignature

	ParameterCount
)

// numberPrecision exceeds the 64 bits of any accepted amount, so a literal
// that rounds at this precision is not an exact integer.
const numberPrecision = 256

// PartnerParameters is the withdrawal tuple as produced by the partner API:
// [collateral, asset, amount, recipient, expiresAt, salt, coordinatorSignature].
type PartnerParameters [ParameterCount]string

// ParameterValue is one raw tuple element. The partner API sends strings,
// JSON numbers, or, for the salt, an array of byte values.
type ParameterValue struct {
	text    string
	raw     []byte
	isBytes bool
}

func StringParameter(s string) ParameterValue {
	return ParameterValue{text: s}
}

func BytesParameter(b []byte) ParameterValue {
	return ParameterValue{raw: append([]byte(nil), b...), isBytes: true}
}

func (v ParameterValue) IsBytes() bool {
	return v.isBytes
}

func (v *ParameterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty parameter")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringParameter(s)
		return nil
	case '[':
		var values []int
		if err := json.Unmarshal(data, &values); err != nil {
			return errors.Wrap(err, "byte array parameter")
		}
		raw := make([]byte, len(values))
		for i, value := range values {
			if value < 0 || value > 255 {
				return errors.Errorf("byte array parameter has out of range value %d", value)
			}
			raw[i] = byte(value)
		}
		*v = ParameterValue{raw: raw, isBytes: true}
		return nil
	default:
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()

		var n json.Number
		if err := d.Decode(&n); err != nil {
			return errors.Wrap(err, "parameter must be a string, number or byte array")
		}
		*v = StringParameter(formatNumber(n))
		return nil
	}
}

func (v ParameterValue) MarshalJSON() ([]byte, error) {
	if !v.isBytes {
		return json.Marshal(v.text)
	}

	values := make([]int, len(v.raw))
	for i, b := range v.raw {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

// formatNumber renders a JSON number in plain decimal, so 1e3 and 1000 both
// become "1000". Only values that are exactly a uint64 are rewritten; anything
// else is kept verbatim for the decoder to reject.
func formatNumber(n json.Number) string {
	if i, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return strconv.FormatUint(i, 10)
	}

	f := new(big.Float).SetPrec(numberPrecision).SetMode(big.ToZero)
	if _, ok := f.SetString(n.String()); !ok || f.Acc() != big.Exact || !f.IsInt() {
		return n.String()
	}
	i, acc := f.Uint64()
	if acc != big.Exact {
		return n.String()
	}
	return strconv.FormatUint(i, 10)
}

// ParseParameters validates the tuple length and normalizes every element to
// a string. A byte array salt becomes base64; a byte array anywhere else is
// rejected.
func ParseParameters(raw []ParameterValue) (PartnerParameters, error) {
	var params PartnerParameters
	if len(raw) != ParameterCount {
		return params, failure.NewInvalidParametersError("withdrawal signature parameters must have %d elements, got %d", ParameterCount, len(raw))
	}

	for i, value := range raw {
		if !value.isBytes {
			params[i] = value.text
			continue
		}

		if i != ParameterSalt {
			return params, failure.NewInvalidParametersError("withdrawal signature parameter %d must not be a byte array", i)
		}
		params[i] = base64.StdEncoding.EncodeToString(value.raw)
	}

	return params, nil
}

// Values returns the tuple as string parameter values.
func (p PartnerParameters) Values() []ParameterValue {
	values := make([]ParameterValue, len(p))
	for i, s := range p {
		values[i] = StringParameter(s)
	}
	return values
}

// DecodedParameters is the typed form of PartnerParameters.
type DecodedParameters struct {
	Collateral ed25519.PublicKey
	Asset      ed25519.PublicKey
	Amount     uint64
	Recipient  ed25519.PublicKey
	ExpiresAt  uint64

	// Salt is the coordinator domain salt, base64 encoded.
	Salt string

	// CoordinatorSignature is the coordinator executor's signature, base64
	// encoded.
	CoordinatorSignature string
}

// DecodeExecutionParameters decodes the bundle's tuple. Amount and expiry
// are raw on-chain units.
func DecodeExecutionParameters(bundle *ExecutionBundle) (*DecodedParameters, error) {
	p := bundle.Parameters

	collateralAddress, err := decodeAddress("collateral", p[ParameterCollateral])
	if err != nil {
		return nil, err
	}
	asset, err := decodeAddress("asset", p[ParameterAsset])
	if err != nil {
		return nil, err
	}
	recipient, err := decodeAddress("recipient", p[ParameterRecipient])
	if err != nil {
		return nil, err
	}

	amount, err := strconv.ParseUint(strings.TrimSpace(p[ParameterAmount]), 10, 64)
	if err != nil {
		return nil, failure.NewInvalidParametersError("amount %q is not a non-negative integer", p[ParameterAmount])
	}
	expiresAt, err := strconv.ParseUint(strings.TrimSpace(p[ParameterExpiresAt]), 10, 64)
	if err != nil {
		return nil, failure.NewInvalidParametersError("expiresAt %q is not a non-negative integer", p[ParameterExpiresAt])
	}

	return &DecodedParameters{
		Collateral:           collateralAddress,
		Asset:                asset,
		Amount:               amount,
		Recipient:            recipient,
		ExpiresAt:            expiresAt,
		Salt:                 p[ParameterSalt],
		CoordinatorSignature: p[ParameterCoordinatorSignature],
	}, nil
}

// Encode reverses DecodeExecutionParameters.
func (d *DecodedParameters) Encode() PartnerParameters {
	return PartnerParameters{
		base58.Encode(d.Collateral),
		base58.Encode(d.Asset),
		strconv.FormatUint(d.Amount, 10),
		base58.Encode(d.Recipient),
		strconv.FormatUint(d.ExpiresAt, 10),
		d.Salt,
		d.CoordinatorSignature,
	}
}

// IsNativeAsset reports whether the withdrawal moves the native currency.
func (d *DecodedParameters) IsNativeAsset() bool {
	return collateral.IsNativeAsset(d.Asset)
}

// WithdrawRequest builds the program argument. The salt must decode to
// exactly 32 bytes.
func (d *DecodedParameters) WithdrawRequest() (collateral.WithdrawRequest, error) {
	var request collateral.WithdrawRequest

	salt, err := base64.StdEncoding.DecodeString(d.Salt)
	if err != nil {
		return request, failure.NewFormatError("salt", "not valid base64")
	}
	if len(salt) != len(request.CoordinatorSignatureSalt) {
		return request, failure.NewFormatError("salt", "must be %d bytes, got %d", len(request.CoordinatorSignatureSalt), len(salt))
	}

	request.AmountOfAsset = d.Amount
	request.SignatureExpirationTime = d.ExpiresAt
	copy(request.CoordinatorSignatureSalt[:], salt)
	return request, nil
}

// CoordinatorSignatureBytes decodes the coordinator signature.
func (d *DecodedParameters) CoordinatorSignatureBytes() ([]byte, error) {
	signature, err := base64.StdEncoding.DecodeString(d.CoordinatorSignature)
	if err != nil {
		return nil, failure.NewFormatError("coordinatorSignature", "not valid base64")
	}
	if len(signature) != ed25519.SignatureSize {
		return nil, failure.NewFormatError("coordinatorSignature", "must be %d bytes, got %d", ed25519.SignatureSize, len(signature))
	}
	return signature, nil
}

func decodeAddress(field, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(strings.TrimSpace(value))
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, failure.NewInvalidAddressError(field, value)
	}
	return decoded, nil
}
