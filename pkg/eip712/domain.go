package eip712

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

const domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract,bytes32 salt)"

var domainTypeHash = EncodeString(domainTypeString)

// Domain binds a message to a scheme name, version, chain and verifying
// account.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract ed25519.PublicKey
	Salt              []byte
}

// Padding is the hex encoded 0x1901 prefix of the final signable message.
func Padding() string {
	return EncodeBytes([]byte{0x19, 0x01})
}

// DomainSeparator returns the hex encoded domain separator hash.
func DomainSeparator(d Domain) (string, error) {
	verifyingContract, err := EncodeAddress("verifyingContract", d.VerifyingContract)
	if err != nil {
		return "", err
	}

	return Keccak256Hex(strings.Join([]string{
		domainTypeHash,
		EncodeString(d.Name),
		EncodeString(d.Version),
		EncodeUint64(d.ChainID),
		verifyingContract,
		EncodeBytes(d.Salt),
	}, ""))
}

// TypeHash returns the hex encoded hash of a struct type signature.
func TypeHash(typeString string) string {
	return EncodeString(typeString)
}

// HashStruct hashes the concatenation of an already encoded type hash and
// field encodings.
func HashStruct(typeHash string, encodedFields ...string) (string, error) {
	return Keccak256Hex(typeHash + strings.Join(encodedFields, ""))
}

// Digest returns the raw bytes of the final signable message:
// keccak(0x1901 ‖ domainSeparator ‖ structHash).
func Digest(domainSeparator, structHash string) ([]byte, error) {
	final, err := Keccak256Hex(Padding() + domainSeparator + structHash)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(final)
	if err != nil {
		return nil, failure.NewFormatError("digest", "not valid hex: %s", err.Error())
	}
	return raw, nil
}
