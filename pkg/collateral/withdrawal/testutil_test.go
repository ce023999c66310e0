package withdrawal

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	solana_ed25519 "github.com/code-payments/collateral-server/pkg/solana/ed25519"
	"github.com/code-payments/collateral-server/pkg/solana/solanatest"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

const (
	testChainID = collateral.ChainIDDevnet
	testAmount  = 1000
)

type testEnv struct {
	ctx      context.Context
	client   *solanatest.Client
	executor *Executor

	program     ed25519.PublicKey
	pool        ed25519.PublicKey
	deposit     ed25519.PublicKey
	coordinator ed25519.PublicKey
	mint        ed25519.PublicKey
	recipient   ed25519.PublicKey

	coordinatorExecutor ed25519.PrivateKey
	admin               *KeypairSigner
	owner               *KeypairSigner

	now time.Time

	// rejectWithdraw, when set, fails any transaction carrying a collateral
	// program instruction other than submit_signatures.
	rejectWithdraw error
}

func setupTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		ctx:         context.Background(),
		client:      solanatest.New(),
		program:     newTestKey(t),
		pool:        newTestKey(t),
		deposit:     newTestKey(t),
		coordinator: newTestKey(t),
		mint:        newTestKey(t),
		recipient:   newTestKey(t),
		admin:       newTestSigner(t),
		owner:       newTestSigner(t),
		now:         time.Unix(1_700_000_000, 0),
	}

	_, env.coordinatorExecutor = newTestKeypair(t)

	executor, err := NewExecutor(env.ctx, env.client, WithTestOverrides(&TestOverrides{
		ProgramAddress: base58.Encode(env.program),
	}))
	require.NoError(t, err)
	require.Equal(t, collateral.SchemaV2, executor.Schema())
	executor.now = func() time.Time { return env.now }
	env.executor = executor

	env.setCoordinator(env.coordinatorExecutor.Public().(ed25519.PublicKey))
	env.client.OnSubmit = env.simulate

	return env
}

func (e *testEnv) setMultisigPool(nonce uint32, admins ...ed25519.PublicKey) {
	pool := &collateral.CollateralAccount{
		Version:         collateral.SchemaV2,
		Coordinator:     e.coordinator,
		AdminFundsNonce: &nonce,
		Admins:          admins,
	}
	e.client.SetAccount(e.pool, solana.AccountInfo{Data: pool.Marshal(), Owner: e.program})
}

func (e *testEnv) setSingleSignerPool(owner ed25519.PublicKey, nonce uint32) {
	pool := &collateral.SingleSignerCollateralAccount{
		Owner:       owner,
		Coordinator: e.coordinator,
		Nonce:       nonce,
	}
	e.client.SetAccount(e.pool, solana.AccountInfo{Data: pool.Marshal(), Owner: e.program})
}

func (e *testEnv) setCoordinator(executors ...ed25519.PublicKey) {
	coordinator := &collateral.CoordinatorAccount{Executors: executors}
	e.client.SetAccount(e.coordinator, solana.AccountInfo{Data: coordinator.Marshal(), Owner: e.program})
}

func (e *testEnv) setTokenAccount(owner, mint ed25519.PublicKey) ed25519.PublicKey {
	address, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		panic(err)
	}
	e.client.SetAccount(address, tokenAccountInfo(owner, mint))
	return address
}

func tokenAccountInfo(owner, mint ed25519.PublicKey) solana.AccountInfo {
	account := &token.Account{
		Mint:  mint,
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	return solana.AccountInfo{Data: account.Marshal(), Owner: token.ProgramKey}
}

// newBundle produces a ready bundle whose coordinator signature is valid
// for sender at nonce.
func (e *testEnv) newBundle(t *testing.T, sender ed25519.PublicKey, asset ed25519.PublicKey, nonce uint32) *ExecutionBundle {
	var salt [32]byte
	copy(salt[:], bytes.Repeat([]byte{0x5a}, 32))

	expiresAt := uint64(e.now.Add(time.Hour).Unix())

	args := &collateral.WithdrawMessageArgs{
		Collateral: e.pool,
		Sender:     sender,
		Receiver:   e.recipient,
		Asset:      asset,
		Request: collateral.WithdrawRequest{
			AmountOfAsset:            testAmount,
			SignatureExpirationTime:  expiresAt,
			CoordinatorSignatureSalt: salt,
		},
		Nonce: nonce,
	}
	message, err := collateral.CoordinatorWithdrawMessage(args, e.coordinator, testChainID)
	require.NoError(t, err)
	signature := ed25519.Sign(e.coordinatorExecutor, message)

	params := PartnerParameters{
		base58.Encode(e.pool),
		base58.Encode(asset),
		strconv.Itoa(testAmount),
		base58.Encode(e.recipient),
		strconv.FormatUint(expiresAt, 10),
		base64.StdEncoding.EncodeToString(salt[:]),
		base64.StdEncoding.EncodeToString(signature),
	}

	bundle, err := BuildExecutionBundle(
		WithdrawalSignature{
			Status:     StatusReady,
			Execution:  &Execution{CallPath: CallPathSolanaV202},
			Parameters: params.Values(),
		},
		BundleMeta{
			ChainID:        testChainID,
			ProgramAddress: base58.Encode(e.program),
			DepositAddress: base58.Encode(e.deposit),
		},
	)
	require.NoError(t, err)
	return bundle
}

// simulate applies the effects the chain would have for the instructions
// the executor sends. Every Ed25519 verification must hold.
func (e *testEnv) simulate(c *solanatest.Client, txn solana.Transaction) error {
	m := txn.Message
	for _, ix := range m.Instructions {
		program := m.Accounts[ix.ProgramIndex]
		accounts := make([]ed25519.PublicKey, len(ix.Accounts))
		for i, index := range ix.Accounts {
			accounts[i] = m.Accounts[index]
		}

		switch {
		case bytes.Equal(program, solana_ed25519.ProgramKey):
			if !verifyEd25519Data(ix.Data) {
				return solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
			}
		case bytes.Equal(program, token.AssociatedTokenAccountProgramKey):
			c.SetAccountUnlocked(accounts[1], tokenAccountInfo(accounts[2], accounts[3]))
		case bytes.Equal(program, e.program) && isSubmitSignatures(ix.Data):
			record := &collateral.AdminSignaturesAccount{
				Version: collateral.SchemaV2,
				Signers: []ed25519.PublicKey{accounts[2]},
			}
			c.SetAccountUnlocked(accounts[1], solana.AccountInfo{Data: record.Marshal(), Owner: e.program})
		case bytes.Equal(program, e.program):
			if e.rejectWithdraw != nil {
				return e.rejectWithdraw
			}
		}
	}
	return nil
}

func verifyEd25519Data(data []byte) bool {
	if len(data) < 112 {
		return false
	}
	return ed25519.Verify(data[16:48], data[112:], data[48:112])
}

func isSubmitSignatures(data []byte) bool {
	reference := collateral.NewSubmitSignaturesInstruction(
		make([]byte, 32),
		&collateral.SubmitSignaturesInstructionAccounts{
			Collateral:      make([]byte, 32),
			AdminSignatures: make([]byte, 32),
			RentPayer:       make([]byte, 32),
		},
		&collateral.SubmitSignaturesInstructionArgs{
			Sender:   make([]byte, 32),
			Receiver: make([]byte, 32),
			Asset:    make([]byte, 32),
		},
	)
	return len(data) >= 8 && bytes.Equal(data[:8], reference.Data[:8])
}

// programInstructions returns the program key of each instruction in txn.
func programInstructions(txn solana.Transaction) []ed25519.PublicKey {
	var programs []ed25519.PublicKey
	for _, ix := range txn.Message.Instructions {
		programs = append(programs, txn.Message.Accounts[ix.ProgramIndex])
	}
	return programs
}

func newTestKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func newTestKey(t *testing.T) ed25519.PublicKey {
	pub, _ := newTestKeypair(t)
	return pub
}

func newTestSigner(t *testing.T) *KeypairSigner {
	_, priv := newTestKeypair(t)
	return NewKeypairSignerFromKey(priv)
}
