package collateral

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/system"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

type decodedMeta struct {
	key      ed25519.PublicKey
	signer   bool
	writable bool
}

// decodeInstruction round trips txn through solana-go and returns the
// program, account metas and data of the instruction at index.
func decodeInstruction(t *testing.T, txn solana.Transaction, index int) (ed25519.PublicKey, []decodedMeta, []byte) {
	decoded, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(txn.Marshal()))
	require.NoError(t, err)

	msg := decoded.Message
	numKeys := len(msg.AccountKeys)
	numSigners := int(msg.Header.NumRequiredSignatures)

	isWritable := func(i int) bool {
		if i < numSigners {
			return i < numSigners-int(msg.Header.NumReadonlySignedAccounts)
		}
		return i < numKeys-int(msg.Header.NumReadonlyUnsignedAccounts)
	}

	require.Less(t, index, len(msg.Instructions))
	ix := msg.Instructions[index]

	var metas []decodedMeta
	for _, accountIndex := range ix.Accounts {
		i := int(accountIndex)
		metas = append(metas, decodedMeta{
			key:      msg.AccountKeys[i].Bytes(),
			signer:   i < numSigners,
			writable: isWritable(i),
		})
	}

	return msg.AccountKeys[ix.ProgramIDIndex].Bytes(), metas, ix.Data
}

func newRequest() WithdrawRequest {
	var salt [32]byte
	for i := range salt {
		salt[i] = byte(255 - i)
	}
	return WithdrawRequest{
		AmountOfAsset:            1000,
		SignatureExpirationTime:  1700000000,
		CoordinatorSignatureSalt: salt,
	}
}

func assertRequestData(t *testing.T, data []byte, request WithdrawRequest) {
	require.Len(t, data, WithdrawRequestSize)
	assert.Equal(t, request.AmountOfAsset, binary.LittleEndian.Uint64(data[0:]))
	assert.Equal(t, request.SignatureExpirationTime, binary.LittleEndian.Uint64(data[8:]))
	assert.Equal(t, request.CoordinatorSignatureSalt[:], data[16:48])
}

func TestSubmitSignaturesInstruction(t *testing.T) {
	program := newKey(t)
	accounts := &SubmitSignaturesInstructionAccounts{
		Collateral:      newKey(t),
		AdminSignatures: newKey(t),
		RentPayer:       newKey(t),
	}

	var salt [32]byte
	salt[3] = 3
	args := &SubmitSignaturesInstructionArgs{
		Salts:       [][32]byte{salt},
		TargetNonce: 5,
		Sender:      accounts.RentPayer,
		Receiver:    newKey(t),
		Asset:       newKey(t),
		Request:     newRequest(),
	}

	txn := solana.NewTransaction(accounts.RentPayer, NewSubmitSignaturesInstruction(program, accounts, args))
	actualProgram, metas, data := decodeInstruction(t, txn, 0)

	assert.EqualValues(t, program, actualProgram)
	require.Len(t, metas, 5)
	assert.Equal(t, []decodedMeta{
		{accounts.Collateral, false, true},
		{accounts.AdminSignatures, false, true},
		{accounts.RentPayer, true, true},
		{system.InstructionsSysVar, false, false},
		{system.ProgramKey[:], false, false},
	}, metas)

	require.Len(t, data, 8+4+32+4+1+32*3+WithdrawRequestSize)
	assert.Equal(t, submitSignaturesInstructionDiscriminator, data[:8])
	assert.EqualValues(t, 1, binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, salt[:], data[12:44])
	assert.EqualValues(t, 5, binary.LittleEndian.Uint32(data[44:]))
	assert.EqualValues(t, 0, data[48])
	assert.EqualValues(t, args.Sender, data[49:81])
	assert.EqualValues(t, args.Receiver, data[81:113])
	assert.EqualValues(t, args.Asset, data[113:145])
	assertRequestData(t, data[145:], args.Request)
}

func TestWithdrawCollateralAssetInstruction(t *testing.T) {
	program := newKey(t)
	admin := newKey(t)
	accounts := &WithdrawCollateralAssetInstructionAccounts{
		RentReceiver:              admin,
		Sender:                    admin,
		Receiver:                  newKey(t),
		Asset:                     newKey(t),
		CollateralTokenAccount:    newKey(t),
		ReceiverTokenAccount:      newKey(t),
		CollateralAuthority:       newKey(t),
		Coordinator:               newKey(t),
		Collateral:                newKey(t),
		CollateralAdminSignatures: newKey(t),
	}
	args := &WithdrawCollateralAssetInstructionArgs{Request: newRequest()}

	txn := solana.NewTransaction(admin, NewWithdrawCollateralAssetInstruction(program, accounts, args))
	actualProgram, metas, data := decodeInstruction(t, txn, 0)

	assert.EqualValues(t, program, actualProgram)
	require.Len(t, metas, WithdrawCollateralAssetInstructionAccountCount)

	expectedKeys := []ed25519.PublicKey{
		accounts.RentReceiver,
		accounts.Sender,
		accounts.Receiver,
		accounts.Asset,
		accounts.CollateralTokenAccount,
		accounts.ReceiverTokenAccount,
		accounts.CollateralAuthority,
		accounts.Coordinator,
		accounts.Collateral,
		accounts.CollateralAdminSignatures,
		token.ProgramKey,
		system.InstructionsSysVar,
		system.ProgramKey[:],
	}
	for i, key := range expectedKeys {
		assert.EqualValues(t, key, metas[i].key, "account %d", i)
	}

	assert.True(t, metas[1].signer)
	assert.True(t, metas[4].writable)
	assert.True(t, metas[5].writable)
	assert.True(t, metas[8].writable)
	assert.True(t, metas[9].writable)
	assert.False(t, metas[6].writable)
	assert.False(t, metas[7].writable)

	assert.Equal(t, withdrawCollateralAssetInstructionDiscriminator, data[:8])
	assertRequestData(t, data[8:], args.Request)
}

func TestWithdrawSingleSignerInstruction_Token(t *testing.T) {
	program := newKey(t)
	accounts := &WithdrawSingleSignerInstructionAccounts{
		Owner:                  newKey(t),
		Receiver:               newKey(t),
		Coordinator:            newKey(t),
		Collateral:             newKey(t),
		Asset:                  newKey(t),
		CollateralTokenAccount: newKey(t),
		ReceiverTokenAccount:   newKey(t),
	}
	args := &WithdrawSingleSignerInstructionArgs{Request: newRequest()}

	txn := solana.NewTransaction(accounts.Owner, NewWithdrawSingleSignerInstruction(program, accounts, args))
	_, metas, data := decodeInstruction(t, txn, 0)

	assert.Equal(t, []decodedMeta{
		{accounts.Owner, true, true},
		{accounts.Receiver, false, true},
		{accounts.Coordinator, false, false},
		{accounts.Collateral, false, true},
		{accounts.Asset, false, false},
		{accounts.CollateralTokenAccount, false, true},
		{accounts.ReceiverTokenAccount, false, true},
		{token.ProgramKey, false, false},
		{system.InstructionsSysVar, false, false},
		{system.ProgramKey[:], false, false},
	}, metas)

	assert.Equal(t, withdrawSingleSignerAssetInstructionDiscriminator, data[:8])
	assertRequestData(t, data[8:], args.Request)
}

func TestWithdrawSingleSignerInstruction_Native(t *testing.T) {
	program := newKey(t)
	accounts := &WithdrawSingleSignerInstructionAccounts{
		Owner:       newKey(t),
		Receiver:    newKey(t),
		Coordinator: newKey(t),
		Collateral:  newKey(t),
	}

	txn := solana.NewTransaction(
		accounts.Owner,
		NewWithdrawSingleSignerInstruction(program, accounts, &WithdrawSingleSignerInstructionArgs{Request: newRequest()}),
	)
	actualProgram, metas, _ := decodeInstruction(t, txn, 0)

	assert.EqualValues(t, program, actualProgram)
	require.Len(t, metas, WithdrawSingleSignerInstructionAccountCount)
	for _, i := range []int{4, 5, 6} {
		assert.EqualValues(t, program, metas[i].key)
		assert.False(t, metas[i].writable, "placeholder %d must be readonly", i)
	}
	assert.EqualValues(t, token.ProgramKey, metas[7].key)
}
