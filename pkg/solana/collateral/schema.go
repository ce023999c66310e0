package collateral

import (
	"bytes"
	"compress/zlib"
	"crypto/ed25519"
	"encoding/json"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/solana"
)

const idlAccountHeaderSize = (8 + // discriminator
	32 + // authority
	4) // data length

// Compressed IDLs are small; anything larger is not one.
const maxIdlSize = 4 << 20

var idlAccountDiscriminator = accountDiscriminator("IdlAccount")

var ErrIdlNotFound = errors.New("program idl not found")

type idlDocument struct {
	Accounts []struct {
		Name string `json:"name"`
	} `json:"accounts"`
}

// ProbeSchema resolves the account schema deployed for program by reading
// its on-chain IDL. When the program publishes no IDL, fallback is returned.
func ProbeSchema(client solana.Client, program ed25519.PublicKey, fallback SchemaVersion) (SchemaVersion, error) {
	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":    "solana/collateral",
		"method":  "ProbeSchema",
		"program": base58.Encode(program),
	})

	version, err := probeSchema(client, program)
	if err == ErrIdlNotFound {
		log.WithField("fallback", fallback.String()).Info("program idl not published, using fallback schema")
		return fallback, nil
	} else if err != nil {
		return SchemaUnknown, err
	}

	log.WithField("schema", version.String()).Debug("resolved schema from idl")
	return version, nil
}

func probeSchema(client solana.Client, program ed25519.PublicKey) (SchemaVersion, error) {
	address, err := GetIdlAddress(program)
	if err != nil {
		return SchemaUnknown, errors.Wrap(err, "failed to derive idl address")
	}

	info, err := client.GetAccountInfo(address, solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return SchemaUnknown, ErrIdlNotFound
	} else if err != nil {
		return SchemaUnknown, errors.Wrap(err, "failed to get idl account")
	}

	doc, err := decodeIdl(info.Data)
	if err != nil {
		return SchemaUnknown, err
	}

	return schemaFromIdl(doc)
}

func decodeIdl(data []byte) (*idlDocument, error) {
	if len(data) < idlAccountHeaderSize || !bytes.Equal(data[:8], idlAccountDiscriminator) {
		return nil, ErrInvalidAccountData
	}

	var length uint32
	offset := 8 + 32
	getUint32(data, &length, &offset)
	if uint64(len(data)-offset) < uint64(length) {
		return nil, ErrInvalidAccountData
	}

	r, err := zlib.NewReader(bytes.NewReader(data[offset : offset+int(length)]))
	if err != nil {
		return nil, errors.Wrap(err, "idl is not zlib compressed")
	}
	defer r.Close()

	raw, err := io.ReadAll(io.LimitReader(r, maxIdlSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to inflate idl")
	}

	var doc idlDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "idl is not valid json")
	}
	return &doc, nil
}

func schemaFromIdl(doc *idlDocument) (SchemaVersion, error) {
	var hasV1 bool
	for _, account := range doc.Accounts {
		switch account.Name {
		case collateralAccountV2:
			return SchemaV2, nil
		case collateralAccountV1:
			hasV1 = true
		}
	}

	if hasV1 {
		return SchemaV1, nil
	}
	return SchemaUnknown, errors.Wrap(ErrUnknownSchema, "idl declares no collateral account")
}

// EncodeIdlAccount builds IDL account data for the given account names. It
// exists for tests and local validators that need a published IDL.
func EncodeIdlAccount(authority ed25519.PublicKey, accountNames ...string) ([]byte, error) {
	var doc idlDocument
	for _, name := range accountNames {
		doc.Accounts = append(doc.Accounts, struct {
			Name string `json:"name"`
		}{Name: name})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	data := make([]byte, idlAccountHeaderSize+compressed.Len())

	var offset int
	putDiscriminator(data, idlAccountDiscriminator, &offset)
	putKey(data, authority, &offset)
	putUint32(data, uint32(compressed.Len()), &offset)
	copy(data[offset:], compressed.Bytes())

	return data, nil
}
