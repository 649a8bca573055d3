package dnsclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"rusub/internal/resolvers"
)

// fakeResolver is a minimal UDP DNS stub for exercising the client
// without a real network dependency.
type fakeResolver struct {
	conn    *net.UDPConn
	handler func(q *dns.Msg) *dns.Msg
}

func startFakeResolver(t *testing.T, handler func(q *dns.Msg) *dns.Msg) (addr string, stop func()) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)

	fr := &fakeResolver{conn: conn, handler: handler}
	done := make(chan struct{})
	go fr.serve(done)

	return conn.LocalAddr().String(), func() {
		close(done)
		conn.Close()
	}
}

func (fr *fakeResolver) serve(done chan struct{}) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-done:
			return
		default:
		}
		fr.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, raddr, err := fr.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		q := new(dns.Msg)
		if err := q.Unpack(buf[:n]); err != nil {
			continue
		}
		resp := fr.handler(q)
		if resp == nil {
			continue
		}
		out, err := resp.Pack()
		if err != nil {
			continue
		}
		fr.conn.WriteToUDP(out, raddr)
	}
}

func answerA(q *dns.Msg, ip string) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(q)
	resp.Answer = append(resp.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP(ip),
	})
	return resp
}

func nxdomain(q *dns.Msg) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(q)
	resp.Rcode = dns.RcodeNameError
	return resp
}

func TestQuerySuccess(t *testing.T) {
	addr, stop := startFakeResolver(t, func(q *dns.Msg) *dns.Msg {
		return answerA(q, "93.184.216.34")
	})
	defer stop()

	c := New(resolvers.NewPool([]string{addr}), time.Second, 3)
	ans, err := c.Query(context.Background(), "www.example.test", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, ans.Records, 1)
	require.Equal(t, "93.184.216.34", ans.Records[0].Data)
}

func TestQueryNXDomainIsTerminal(t *testing.T) {
	calls := 0
	addr, stop := startFakeResolver(t, func(q *dns.Msg) *dns.Msg {
		calls++
		return nxdomain(q)
	})
	defer stop()

	c := New(resolvers.NewPool([]string{addr}), time.Second, 3)
	_, err := c.Query(context.Background(), "nope.example.test", dns.TypeA)
	require.Error(t, err)
	require.Equal(t, 1, calls, "NXDOMAIN must not be retried")
}

func TestQueryRetriesOnDroppedPackets(t *testing.T) {
	addr, stop := startFakeResolver(t, func(q *dns.Msg) *dns.Msg {
		return nil // always drop
	})
	defer stop()

	c := New(resolvers.NewPool([]string{addr}), 100*time.Millisecond, 2)
	start := time.Now()
	_, err := c.Query(context.Background(), "lost.test", dns.TypeA)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestQueryFullFollowsCNAMEChain(t *testing.T) {
	addr, stop := startFakeResolver(t, func(q *dns.Msg) *dns.Msg {
		name := q.Question[0].Name
		resp := new(dns.Msg)
		resp.SetReply(q)
		switch name {
		case "alias.test.":
			resp.Answer = append(resp.Answer, &dns.CNAME{
				Hdr:    dns.RR_Header{Name: name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 60},
				Target: "beta.test.",
			})
		case "beta.test.":
			if q.Question[0].Qtype == dns.TypeA {
				resp.Answer = append(resp.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP("1.2.3.4"),
				})
			}
		}
		return resp
	})
	defer stop()

	c := New(resolvers.NewPool([]string{addr}), time.Second, 2)
	records, err := c.QueryFull(context.Background(), "alias.test")
	require.NoError(t, err)

	var gotCNAME, gotA bool
	for _, r := range records {
		if r.RType == "CNAME" && r.Data == "beta.test" {
			gotCNAME = true
		}
		if r.RType == "A" && r.Data == "1.2.3.4" {
			gotA = true
		}
	}
	require.True(t, gotCNAME)
	require.True(t, gotA)
}
