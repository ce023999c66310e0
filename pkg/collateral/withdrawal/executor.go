package withdrawal

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"math"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
)

const metricsStructName = "withdrawal.executor"

// Executor runs withdrawals against one deployed collateral program. It
// holds no per-withdrawal state and is safe for concurrent use.
type Executor struct {
	log  *logrus.Entry
	conf *conf

	client     solana.Client
	program    ed25519.PublicKey
	schema     collateral.SchemaVersion
	commitment solana.Commitment

	resolver  *Resolver
	submitter *submitter

	now func() time.Time
}

// NewExecutor validates configuration and resolves the program's account
// schema once.
func NewExecutor(ctx context.Context, client solana.Client, configProvider ConfigProvider) (*Executor, error) {
	conf := configProvider()

	programAddress := strings.TrimSpace(conf.programAddress.Get(ctx))
	if programAddress == "" {
		return nil, errors.Errorf("%s is required", programAddressConfigEnvName)
	}
	program, err := base58.Decode(programAddress)
	if err != nil || len(program) != ed25519.PublicKeySize {
		return nil, errors.Errorf("%s is not a valid address", programAddressConfigEnvName)
	}

	commitment, err := solana.CommitmentFromString(conf.confirmationCommitment.Get(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", confirmationCommitmentConfigEnvName)
	}

	fallback, err := collateral.SchemaVersionFromString(conf.defaultSchema.Get(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", defaultSchemaConfigEnvName)
	}
	schema, err := collateral.ProbeSchema(client, program, fallback)
	if err != nil {
		return nil, errors.Wrap(err, "failed to probe collateral schema")
	}

	unitLimit := conf.computeUnitLimit.Get(ctx)
	if unitLimit > math.MaxUint32 {
		return nil, errors.Errorf("%s exceeds %d", computeUnitLimitConfigEnvName, uint32(math.MaxUint32))
	}
	submitter := newSubmitter(client, commitment, computeBudget{
		unitLimit: uint32(unitLimit),
		unitPrice: conf.computeUnitPrice.Get(ctx),
	})

	// Destination account creation pays the same priority fee.
	resolver := NewResolver(client, program, commitment)
	resolver.submitter = submitter

	return &Executor{
		log:        logrus.StandardLogger().WithField("type", "withdrawal/executor"),
		conf:       conf,
		client:     client,
		program:    program,
		schema:     schema,
		commitment: commitment,
		resolver:   resolver,
		submitter:  submitter,
		now:        time.Now,
	}, nil
}

func (e *Executor) Program() ed25519.PublicKey {
	return e.program
}

func (e *Executor) Schema() collateral.SchemaVersion {
	return e.schema
}

func (e *Executor) Resolver() *Resolver {
	return e.resolver
}

// withdrawal is a bundle decoded and checked against local state.
type withdrawal struct {
	bundle  *ExecutionBundle
	params  *DecodedParameters
	deposit ed25519.PublicKey
	request collateral.WithdrawRequest

	coordinatorSignature []byte
}

func (e *Executor) decode(bundle *ExecutionBundle) (*withdrawal, error) {
	if bundle == nil {
		return nil, failure.NewInvalidParametersError("execution bundle is required")
	}

	program, err := decodeAddress("programAddress", bundle.ProgramAddress)
	if err != nil {
		return nil, err
	}
	if !program.Equal(e.program) {
		return nil, failure.NewInvalidParametersError(
			"program address %s does not match the configured program %s",
			bundle.ProgramAddress,
			base58.Encode(e.program),
		)
	}

	deposit, err := decodeAddress("depositAddress", bundle.DepositAddress)
	if err != nil {
		return nil, err
	}

	params, err := DecodeExecutionParameters(bundle)
	if err != nil {
		return nil, err
	}

	now := uint64(e.now().Unix())
	if params.ExpiresAt <= now {
		return nil, failure.NewInvalidParametersError("withdrawal signature expired at %d", params.ExpiresAt)
	}

	request, err := params.WithdrawRequest()
	if err != nil {
		return nil, err
	}

	coordinatorSignature, err := params.CoordinatorSignatureBytes()
	if err != nil {
		return nil, err
	}

	return &withdrawal{
		bundle:               bundle,
		params:               params,
		deposit:              deposit,
		request:              request,
		coordinatorSignature: coordinatorSignature,
	}, nil
}

func (w *withdrawal) messageArgs(sender ed25519.PublicKey, nonce uint32) *collateral.WithdrawMessageArgs {
	return &collateral.WithdrawMessageArgs{
		Collateral: w.params.Collateral,
		Sender:     sender,
		Receiver:   w.params.Recipient,
		Asset:      w.params.Asset,
		Request:    w.request,
		Nonce:      nonce,
	}
}

func (w *withdrawal) logFields() logrus.Fields {
	return logrus.Fields{
		"collateral": base58.Encode(w.params.Collateral),
		"recipient":  base58.Encode(w.params.Recipient),
		"asset":      base58.Encode(w.params.Asset),
	}
}

func (e *Executor) getAccount(name string, address ed25519.PublicKey) ([]byte, error) {
	info, err := e.client.GetAccountInfo(address, e.commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, failure.NewMissingOnchainStateError(name, base58.Encode(address), "account not found")
	} else if err != nil {
		return nil, failure.NewSubmissionFailedError("get "+name+" account", err)
	}
	return info.Data, nil
}

func (e *Executor) getCollateralAccount(address ed25519.PublicKey) (*collateral.CollateralAccount, error) {
	data, err := e.getAccount("collateral", address)
	if err != nil {
		return nil, err
	}

	var account collateral.CollateralAccount
	if err := account.Unmarshal(e.schema, data); err != nil {
		return nil, failure.NewMissingOnchainStateError("collateral", base58.Encode(address), "not a %s collateral account", e.schema)
	}
	return &account, nil
}

func (e *Executor) getCoordinatorExecutor(address ed25519.PublicKey) (ed25519.PublicKey, error) {
	data, err := e.getAccount("coordinator", address)
	if err != nil {
		return nil, err
	}

	var account collateral.CoordinatorAccount
	if err := account.Unmarshal(data); err != nil {
		return nil, failure.NewMissingOnchainStateError("coordinator", base58.Encode(address), "not a coordinator account")
	}

	// The coordinator signs with its first executor.
	executor := account.Executor()
	if executor == nil {
		return nil, failure.NewMissingOnchainStateError("coordinator", base58.Encode(address), "no executors")
	}
	return executor, nil
}

// getAdminSignatures returns nil when the record has not been created yet.
func (e *Executor) getAdminSignatures(address ed25519.PublicKey) (*collateral.AdminSignaturesAccount, error) {
	data, err := e.getAccount("adminSignatures", address)
	if failure.KindOf(err) == failure.KindMissingOnchainState {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var account collateral.AdminSignaturesAccount
	if err := account.Unmarshal(e.schema, data); err != nil {
		return nil, failure.NewMissingOnchainStateError("adminSignatures", base58.Encode(address), "not a %s admin signatures account", e.schema)
	}
	return &account, nil
}

func newSignatureSalt() ([32]byte, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, errors.Wrap(err, "failed to generate signature salt")
	}
	return salt, nil
}
