package remote

import (
	"io"
	"testing"
	"time"

	"github.com/INLOpen/journalset/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCodecRoundTrip(t *testing.T) {
	c := rawCodec{}

	data, err := c.Marshal(rawFrame([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	var out rawFrame
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, rawFrame("hello"), out)

	_, err = c.Marshal("not a frame")
	assert.Error(t, err)
}

func TestEncodeDecodeTxIDRequest(t *testing.T) {
	encoded := encodeTxIDRequest(424242)
	decoded, err := decodeTxIDRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(424242), decoded)
}

func TestEncodeDecodeRangeRequest(t *testing.T) {
	encoded := encodeRangeRequest(100, 199)
	first, last, err := decodeRangeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), first)
	assert.Equal(t, uint64(199), last)
}

func TestEncodeDecodeWriteRequest(t *testing.T) {
	encoded := encodeWriteRequest(7, uint64(core.CompressionSnappy), []byte("payload-bytes"))
	txID, codec, payload, err := decodeWriteRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), txID)
	assert.Equal(t, uint64(core.CompressionSnappy), codec)
	assert.Equal(t, []byte("payload-bytes"), payload)
}

func TestEncodeDecodeCountResponse(t *testing.T) {
	encoded := encodeCountResponse(500)
	decoded, err := decodeCountResponse(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(500), decoded)
}

func TestEncodeDecodeSyncStatusResponse(t *testing.T) {
	encoded := encodeSyncStatusResponse(true, 9, 1234)
	force, numSync, totalSyncTime, err := decodeSyncStatusResponse(encoded)
	require.NoError(t, err)
	assert.True(t, force)
	assert.Equal(t, int64(9), numSync)
	assert.Equal(t, int64(1234), totalSyncTime)

	encoded = encodeSyncStatusResponse(false, 0, 0)
	force, _, _, err = decodeSyncStatusResponse(encoded)
	require.NoError(t, err)
	assert.False(t, force)
}

func TestDial_ConstructsJournalWithDefaults(t *testing.T) {
	j, err := Dial("127.0.0.1:0")
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, "127.0.0.1:0", j.Identity())
	assert.Nil(t, j.compressor)
	assert.Equal(t, 5*time.Second, j.dialTimeout)
	assert.Equal(t, 10*time.Second, j.callTimeout)
}

func TestDial_AppliesOptions(t *testing.T) {
	comp := noopCompressor{}
	j, err := Dial("127.0.0.1:0",
		WithCompressor(comp),
		WithCallTimeout(2*time.Second),
		WithDialTimeout(time.Second),
	)
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, comp, j.compressor)
	assert.Equal(t, 2*time.Second, j.callTimeout)
	assert.Equal(t, time.Second, j.dialTimeout)
}

func TestJournal_IsNotFileBacked(t *testing.T) {
	j, err := Dial("127.0.0.1:0")
	require.NoError(t, err)
	defer j.Close()

	var underlying core.UnderlyingJournal = j
	_, ok := underlying.(core.FileBackedJournal)
	assert.False(t, ok, "a remote journal must not satisfy core.FileBackedJournal")
}

type noopCompressor struct{}

func (noopCompressor) Compress(data []byte) ([]byte, error)        { return data, nil }
func (noopCompressor) Decompress(data []byte) (io.ReadCloser, error) { return nil, nil }
func (noopCompressor) Type() core.CompressionType                   { return core.CompressionNone }
