package withdrawal

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

func TestParameterValue_UnmarshalJSON(t *testing.T) {
	var values []ParameterValue
	require.NoError(t, json.Unmarshal([]byte(`["abc", 1000, 1e3, [115,97,108,116]]`), &values))
	require.Len(t, values, 4)

	assert.False(t, values[0].IsBytes())
	assert.Equal(t, "abc", values[0].text)
	assert.Equal(t, "1000", values[1].text)
	assert.Equal(t, "1000", values[2].text)
	assert.True(t, values[3].IsBytes())
	assert.Equal(t, []byte("salt"), values[3].raw)

	for _, invalid := range []string{
		`[[256]]`,
		`[[-1]]`,
		`[{}]`,
		`[true]`,
	} {
		var scratch []ParameterValue
		assert.Error(t, json.Unmarshal([]byte(invalid), &scratch), invalid)
	}

	marshalled, err := json.Marshal(values)
	require.NoError(t, err)
	assert.JSONEq(t, `["abc","1000","1000",[115,97,108,116]]`, string(marshalled))
}

func TestParameterValue_UnmarshalJSON_ExactIntegers(t *testing.T) {
	for _, tc := range []struct {
		literal  string
		expected string
	}{
		{`9007199254740993`, "9007199254740993"},
		{`9007199254740993.0`, "9007199254740993"},
		{`9007199254740993e0`, "9007199254740993"},
		{`900719925474099.3e1`, "9007199254740993"},
		{`18446744073709551615.000`, "18446744073709551615"},
		{`1.5e2`, "150"},
		{`0.0`, "0"},

		// Not exact uint64 values stay as sent.
		{`9007199254740993.5`, "9007199254740993.5"},
		{`18446744073709551616.0`, "18446744073709551616.0"},
		{`-1.0`, "-1.0"},
		{`1e400`, "1e400"},
	} {
		var v ParameterValue
		require.NoError(t, json.Unmarshal([]byte(tc.literal), &v), tc.literal)
		assert.Equal(t, tc.expected, v.text, tc.literal)
	}
}

func TestDecodeExecutionParameters_InexactAmountRejected(t *testing.T) {
	for _, literal := range []string{`9007199254740993.5`, `18446744073709551616.0`, `-1.0`} {
		var v ParameterValue
		require.NoError(t, json.Unmarshal([]byte(literal), &v))

		raw := testParameters().Values()
		raw[ParameterAmount] = v
		params, err := ParseParameters(raw)
		require.NoError(t, err)

		_, err = DecodeExecutionParameters(&ExecutionBundle{Parameters: params})
		assert.Equal(t, failure.KindInvalidParameters, failure.KindOf(err), literal)
	}

	var v ParameterValue
	require.NoError(t, json.Unmarshal([]byte(`9007199254740993.0`), &v))
	raw := testParameters().Values()
	raw[ParameterAmount] = v
	params, err := ParseParameters(raw)
	require.NoError(t, err)

	decoded, err := DecodeExecutionParameters(&ExecutionBundle{Parameters: params})
	require.NoError(t, err)
	assert.EqualValues(t, uint64(9007199254740993), decoded.Amount)
	assert.Equal(t, "9007199254740993", decoded.Encode()[ParameterAmount])
}

func TestParseParameters_SaltNormalization(t *testing.T) {
	base := testParameters()

	asBytes := base.Values()
	asBytes[ParameterSalt] = BytesParameter([]byte("salt"))

	asString := base.Values()
	asString[ParameterSalt] = StringParameter("c2FsdA==")

	fromBytes, err := ParseParameters(asBytes)
	require.NoError(t, err)
	fromString, err := ParseParameters(asString)
	require.NoError(t, err)

	assert.Equal(t, fromString, fromBytes)
	assert.Equal(t, "c2FsdA==", fromBytes[ParameterSalt])
}

func TestParseParameters_Invalid(t *testing.T) {
	values := testParameters().Values()

	for _, invalid := range [][]ParameterValue{
		nil,
		values[:6],
		append(values, StringParameter("extra")),
	} {
		_, err := ParseParameters(invalid)
		assert.Equal(t, failure.KindInvalidParameters, failure.KindOf(err))
	}

	values[ParameterAmount] = BytesParameter([]byte{1})
	_, err := ParseParameters(values)
	assert.Equal(t, failure.KindInvalidParameters, failure.KindOf(err))
}

func TestDecodeExecutionParameters_RoundTrip(t *testing.T) {
	params := testParameters()

	parsed, err := ParseParameters(params.Values())
	require.NoError(t, err)

	decoded, err := DecodeExecutionParameters(&ExecutionBundle{Parameters: parsed})
	require.NoError(t, err)

	assert.EqualValues(t, 1000, decoded.Amount)
	assert.EqualValues(t, 1700000000, decoded.ExpiresAt)
	assert.Equal(t, params, decoded.Encode())

	request, err := decoded.WithdrawRequest()
	require.NoError(t, err)
	assert.EqualValues(t, 1000, request.AmountOfAsset)
	assert.EqualValues(t, 1700000000, request.SignatureExpirationTime)
	assert.EqualValues(t, make([]byte, 32), request.CoordinatorSignatureSalt[:])

	signature, err := decoded.CoordinatorSignatureBytes()
	require.NoError(t, err)
	assert.Len(t, signature, 64)
}

func TestDecodeExecutionParameters_Invalid(t *testing.T) {
	for _, tc := range []struct {
		index int
		value string
		kind  failure.Kind
	}{
		{ParameterCollateral, "not-an-address", failure.KindInvalidAddress},
		{ParameterAsset, base58.Encode(make([]byte, 31)), failure.KindInvalidAddress},
		{ParameterRecipient, "", failure.KindInvalidAddress},
		{ParameterAmount, "ten", failure.KindInvalidParameters},
		{ParameterAmount, "-1", failure.KindInvalidParameters},
		{ParameterAmount, "18446744073709551616", failure.KindInvalidParameters},
		{ParameterExpiresAt, "1.5", failure.KindInvalidParameters},
	} {
		params := testParameters()
		params[tc.index] = tc.value

		_, err := DecodeExecutionParameters(&ExecutionBundle{Parameters: params})
		assert.Equal(t, tc.kind, failure.KindOf(err), "%d=%q", tc.index, tc.value)
	}

	params := testParameters()
	params[ParameterAmount] = "18446744073709551615"
	decoded, err := DecodeExecutionParameters(&ExecutionBundle{Parameters: params})
	require.NoError(t, err)
	assert.EqualValues(t, uint64(18446744073709551615), decoded.Amount)
}

func TestDecodedParameters_FormatErrors(t *testing.T) {
	params := testParameters()
	params[ParameterSalt] = "c2FsdA=="
	params[ParameterCoordinatorSignature] = base64.StdEncoding.EncodeToString(make([]byte, 63))

	decoded, err := DecodeExecutionParameters(&ExecutionBundle{Parameters: params})
	require.NoError(t, err)

	_, err = decoded.WithdrawRequest()
	var formatErr failure.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "salt", formatErr.Field)

	_, err = decoded.CoordinatorSignatureBytes()
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "coordinatorSignature", formatErr.Field)

	decoded.Salt = "%%%"
	_, err = decoded.WithdrawRequest()
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))
}

func testParameters() PartnerParameters {
	return PartnerParameters{
		base58.Encode(bytesOf(1)),
		base58.Encode(bytesOf(2)),
		"1000",
		base58.Encode(bytesOf(3)),
		"1700000000",
		base64.StdEncoding.EncodeToString(make([]byte, 32)),
		base64.StdEncoding.EncodeToString(make([]byte, 64)),
	}
}

func bytesOf(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}
