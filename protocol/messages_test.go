package protocol

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privfl/fedshard/crypto"
)

func TestSignedRecover(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	msg := &ShareMessage{
		RoundNumber: 7,
		ClientID:    "client-a",
		Share: crypto.Share{
			ServerID: 2,
			Values:   []*big.Int{big.NewInt(12345), big.NewInt(67890)},
		},
		Commitment: crypto.Commitment{big.NewInt(11), big.NewInt(22)},
	}

	signed, err := NewSigned(priv, msg)
	require.NoError(t, err)

	recovered, signer, err := signed.Recover()
	require.NoError(t, err)
	require.Equal(t, pub.String(), signer.String())
	require.Equal(t, msg.ClientID, recovered.ClientID)
	require.Zero(t, msg.Share.Values[0].Cmp(recovered.Share.Values[0]))
}

func TestSignedRecoverRejectsTamper(t *testing.T) {
	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	msg := &ShareMessage{RoundNumber: 1, ClientID: "client-a"}
	signed, err := NewSigned(priv, msg)
	require.NoError(t, err)

	signed.Object.RoundNumber = 2
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedJSONRoundTrip(t *testing.T) {
	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	msg := &ShareMessage{
		RoundNumber: 3,
		ClientID:    "client-b",
		Share:       crypto.Share{ServerID: 1, Values: []*big.Int{big.NewInt(42)}},
		Commitment:  crypto.Commitment{big.NewInt(9)},
	}
	signed, err := NewSigned(priv, msg)
	require.NoError(t, err)

	data, err := SerializeMessage(signed)
	require.NoError(t, err)

	decoded, err := UnmarshalMessage[Signed[ShareMessage]](data)
	require.NoError(t, err)

	recovered, _, err := decoded.Recover()
	require.NoError(t, err)
	require.Equal(t, 3, recovered.RoundNumber)
	require.Zero(t, big.NewInt(42).Cmp(recovered.Share.Values[0]))
}
