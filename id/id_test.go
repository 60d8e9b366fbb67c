package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		kind   Kind
		decode func(string) (ID, error)
	}{
		{KindShard, func(s string) (ID, error) { id, err := DecodeShardID(s); return id.ID, err }},
		{KindLeasedReader, func(s string) (ID, error) { id, err := DecodeLeasedReaderID(s); return id.ID, err }},
		{KindCriticalReader, func(s string) (ID, error) { id, err := DecodeCriticalReaderID(s); return id.ID, err }},
		{KindWriter, func(s string) (ID, error) { id, err := DecodeWriterID(s); return id.ID, err }},
		{KindIdempotencyToken, func(s string) (ID, error) { id, err := DecodeIdempotencyToken(s); return id.ID, err }},
	}
	for _, c := range cases {
		want := New(c.kind)
		got, err := c.decode(want.String())
		require.NoError(t, err)
		require.Equal(t, want.Bytes(), got.Bytes())
		require.Equal(t, c.kind, got.Kind())
	}
}

func TestDecodeRejectsMissingPrefix(t *testing.T) {
	_, err := DecodeShardID("not-a-valid-id")
	require.Error(t, err)
}

func TestDecodeRejectsWrongPrefix(t *testing.T) {
	w := New(KindWriter)
	_, err := DecodeShardID(w.String())
	require.Error(t, err)
}

func TestDecodeRejectsMalformedUUID(t *testing.T) {
	_, err := DecodeShardID("s-not-a-uuid")
	require.Error(t, err)
}

func TestSentinelIdempotencyTokenIsStable(t *testing.T) {
	a := SentinelIdempotencyToken()
	b := SentinelIdempotencyToken()
	require.Equal(t, a.Bytes(), b.Bytes())
	require.NotEqual(t, a.Bytes(), New(KindIdempotencyToken).Bytes())
}

func TestLess(t *testing.T) {
	a := FromBytes(KindShard, [16]byte{0, 0, 1})
	b := FromBytes(KindShard, [16]byte{0, 0, 2})
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}
