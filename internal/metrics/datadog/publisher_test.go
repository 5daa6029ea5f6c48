package datadog

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/types"
)

// listenAgent starts a UDP listener standing in for the DataDog agent.
func listenAgent(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

// readPackets collects datagrams until the socket goes quiet.
func readPackets(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 64*1024)
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
		n, err := conn.Read(buf)
		if err != nil {
			break
		}
		sb.Write(buf[:n])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestNewPublisherDisabled(t *testing.T) {
	p, err := NewPublisher(config.DataDogConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &NoOpPublisher{}, p)
	assert.NoError(t, p.Close())
}

func TestPublisherSendsMetrics(t *testing.T) {
	conn, port := listenAgent(t)

	p, err := NewPublisher(config.DataDogConfig{
		Enabled:   true,
		AgentHost: "127.0.0.1",
		Port:      port,
		Prefix:    "nekocache",
		Tags:      []string{"env:test"},
	}, zerolog.Nop())
	require.NoError(t, err)

	p.Incr("entries.put", "provider:kodik")
	p.Count("fetch.calls", 3, "fetch:anime")
	p.Timing("fetch.latency", 25*time.Millisecond)
	p.Event("Storage circuit breaker open", "closed -> open", "warning")
	p.PublishHealthMetrics(&types.PublisherHealthMetrics{
		TotalEntries:     12,
		Capacity:         25,
		UsagePercentage:  140,
		HitRatio:         0.5,
		AverageLatencyMs: -1,
		StorageAvailable: true,
	})
	require.NoError(t, p.Close())

	out := readPackets(t, conn)
	for _, want := range []string{
		"nekocache.entries.put:1|c",
		"provider:kodik",
		"env:test",
		"nekocache.fetch.calls:3|c",
		"nekocache.fetch.latency:25",
		"nekocache.entries.total:12|g",
		"nekocache.entries.capacity:25|g",
		"nekocache.entries.usage_percentage:100|g",
		"nekocache.performance.hit_ratio:0.5|g",
		"nekocache.performance.average_latency_ms:0|g",
		"nekocache.storage.available:1|g",
		"_e{28,14}:Storage circuit breaker open|closed -> open",
		"t:warning",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPublisherMergeTags(t *testing.T) {
	client, err := statsd.New("127.0.0.1:"+strconv.Itoa(1), statsd.WithoutTelemetry())
	require.NoError(t, err)
	defer client.Close()

	base := make([]string, 1, 4)
	base[0] = "service:nekocache"
	p := newPublisher(client, base, zerolog.Nop())

	first := p.mergeTags([]string{"a:1"})
	second := p.mergeTags([]string{"b:2"})
	assert.Equal(t, []string{"service:nekocache", "a:1"}, first)
	assert.Equal(t, []string{"service:nekocache", "b:2"}, second)
	assert.Equal(t, base, p.mergeTags(nil))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 1))
	assert.Equal(t, 1.0, clamp(5, 0, 1))
	assert.Equal(t, 0.25, clamp(0.25, 0, 1))
}
