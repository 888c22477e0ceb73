package clock

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/bnema/dashd/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serverReply(t time.Time) []byte {
	packet := make([]byte, packetSize)
	packet[0] = 0x24

	ntpSeconds := uint64(t.Unix() + ntpEpochOffset)
	fraction := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	binary.BigEndian.PutUint32(packet[40:44], uint32(ntpSeconds))
	binary.BigEndian.PutUint32(packet[44:48], uint32(fraction))
	return packet
}

func TestNewRequest(t *testing.T) {
	request := NewRequest()

	require.Len(t, request, 48)
	assert.Equal(t, byte(0x1B), request[0])
	assert.Equal(t, make([]byte, 47), request[1:])
}

func TestDecodeReply(t *testing.T) {
	want := time.Date(2025, time.March, 9, 8, 30, 15, 0, time.UTC)

	got, err := DecodeReply(serverReply(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeReplyAfterEraRollover(t *testing.T) {
	want := time.Date(2099, time.July, 15, 13, 45, 30, 0, time.UTC)

	got, err := DecodeReply(serverReply(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeReplyRejectsMalformed(t *testing.T) {
	_, err := DecodeReply(make([]byte, 40))
	require.ErrorIs(t, err, errShortReply)

	_, err = DecodeReply(make([]byte, 68))
	require.ErrorIs(t, err, errShortReply)

	_, err = DecodeReply(make([]byte, 48))
	require.ErrorIs(t, err, errZeroTime)
}

func TestClampYear(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	in := time.Date(2099, time.July, 15, 13, 45, 30, 0, loc)

	got := ClampYear(in, 2030, 2025)
	assert.Equal(t, time.Date(2025, time.July, 15, 13, 45, 30, 0, loc), got)

	plausible := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, plausible, ClampYear(plausible, 2030, 2025))
}

func TestSNTPConfigLocation(t *testing.T) {
	assert.Equal(t, time.UTC, SNTPConfig{}.Location())

	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, SNTPConfig{OffsetHours: 5.5}.Location()).Zone()
	assert.Equal(t, 5*3600+1800, offset)

	_, offset = time.Date(2025, 1, 1, 0, 0, 0, 0, SNTPConfig{OffsetHours: -3}.Location()).Zone()
	assert.Equal(t, -3*3600, offset)
}

func TestSNTPClientFallsThroughBackupHosts(t *testing.T) {
	transport := mocks.NewMockDatagramTransport(t)
	client := NewSNTPClient(transport, SNTPConfig{}, nil)

	sent := time.Date(2099, time.July, 15, 13, 45, 30, 0, time.UTC)
	transport.EXPECT().Exchange(mock.Anything, "pool.ntp.org", 123, NewRequest(), 5*time.Second).
		Return(nil, context.DeadlineExceeded).Once()
	transport.EXPECT().Exchange(mock.Anything, "0.pool.ntp.org", 123, NewRequest(), 5*time.Second).
		Return(make([]byte, 40), nil).Once()
	transport.EXPECT().Exchange(mock.Anything, "1.pool.ntp.org", 123, NewRequest(), 5*time.Second).
		Return(serverReply(sent), nil).Once()

	got, host, err := client.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.pool.ntp.org", host)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.July, got.Month())
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 13, got.Hour())
	assert.Equal(t, 45, got.Minute())
	assert.Equal(t, 30, got.Second())
}

func TestSNTPClientAppliesOffset(t *testing.T) {
	transport := mocks.NewMockDatagramTransport(t)
	client := NewSNTPClient(transport, SNTPConfig{OffsetHours: 2, BackupHosts: []string{}}, nil)

	sent := time.Date(2025, time.October, 17, 22, 15, 0, 0, time.UTC)
	transport.EXPECT().Exchange(mock.Anything, "pool.ntp.org", 123, mock.Anything, mock.Anything).
		Return(serverReply(sent), nil).Once()

	got, _, err := client.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 15, got.Minute())
	assert.True(t, got.Equal(sent))
}

func TestSNTPClientAllHostsFail(t *testing.T) {
	transport := mocks.NewMockDatagramTransport(t)
	client := NewSNTPClient(transport, SNTPConfig{PrimaryHost: "a", BackupHosts: []string{"b"}}, nil)

	refused := errors.New("connection refused")
	transport.EXPECT().Exchange(mock.Anything, "a", 123, mock.Anything, mock.Anything).Return(nil, refused).Once()
	transport.EXPECT().Exchange(mock.Anything, "b", 123, mock.Anything, mock.Anything).Return(make([]byte, 48), nil).Once()

	_, _, err := client.Query(context.Background())
	require.ErrorIs(t, err, errAllHosts)
	require.ErrorIs(t, err, refused)
	require.ErrorIs(t, err, errZeroTime)
}
