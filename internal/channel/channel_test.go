package channel_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"picoauth/internal/channel"
	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
	"picoauth/internal/protocol/sigma"
)

func pipe(t *testing.T) (*channel.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return channel.NewConn(a), b
}

func TestConn_FrameRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ca, cb := channel.NewConn(a), channel.NewConn(b)

	ctx := context.Background()
	errc := make(chan error, 1)
	go func() { errc <- ca.WriteFrame(ctx, []byte("hello")) }()

	got, err := cb.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
}

func TestConn_RejectsBadLengths(t *testing.T) {
	c, raw := pipe(t)
	ctx := context.Background()

	if err := c.WriteFrame(ctx, nil); !errors.Is(err, channel.ErrFraming) {
		t.Fatalf("empty write err = %v", err)
	}
	c.SetLimit(8)
	if err := c.WriteFrame(ctx, make([]byte, 9)); !errors.Is(err, channel.ErrFraming) {
		t.Fatalf("oversized write err = %v", err)
	}

	for _, n := range []uint32{0, 9} {
		go func() {
			var hdr [4]byte
			binary.BigEndian.PutUint32(hdr[:], n)
			raw.Write(hdr[:])
		}()
		if _, err := c.ReadFrame(ctx); !errors.Is(err, channel.ErrFraming) {
			t.Fatalf("length %d: err = %v", n, err)
		}
	}
}

func TestConn_ContextCancelUnblocksRead(t *testing.T) {
	c, _ := pipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.ReadFrame(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConn_CloseTwice(t *testing.T) {
	c, _ := pipe(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); !errors.Is(err, channel.ErrClosed) {
		t.Fatalf("second Close err = %v", err)
	}
}

func TestVerifierProxy_NotConnected(t *testing.T) {
	p := channel.NewVerifierProxy(nil, nil)
	if _, err := p.Authenticate(context.Background(), &message.EncPicoAuthMessage{}); err == nil {
		t.Fatal("Authenticate before Start should fail")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close on idle proxy: %v", err)
	}
}

func TestHandshakeOverPipe(t *testing.T) {
	proverSide, verifierSide := net.Pipe()
	defer proverSide.Close()
	defer verifierSide.Close()

	vKey, err := crypto.GenerateSigningKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	pKey, err := crypto.GenerateSigningKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	vID, pID := domain.Identity{PrivateKey: vKey}, domain.Identity{PrivateKey: pKey}
	commitment, err := crypto.Commit(vID.PublicKey())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	verifier, err := sigma.NewVerifier(vID, sigma.ClientFunc(func(context.Context, *ecdsa.PublicKey, []byte) sigma.Decision {
		return sigma.Accept(false, []byte("ok"))
	}))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	errc := make(chan error, 1)
	go func() {
		pp := channel.NewProverProxy(verifierSide)
		start, err := pp.ReadStart(ctx)
		if err != nil {
			errc <- err
			return
		}
		sa, err := verifier.Start(ctx, start)
		if err != nil {
			errc <- err
			return
		}
		if err := pp.SendServiceAuth(ctx, sa); err != nil {
			errc <- err
			return
		}
		pa, err := pp.ReadPicoAuth(ctx)
		if err != nil {
			errc <- err
			return
		}
		st, err := verifier.Authenticate(ctx, pa)
		if err != nil {
			errc <- err
			return
		}
		errc <- pp.SendStatus(ctx, st)
	}()

	dialed := 0
	proxy := channel.NewVerifierProxy(func(context.Context) (net.Conn, error) {
		dialed++
		return proverSide, nil
	}, nil)
	prover, err := sigma.NewProver(pID, commitment, []byte("token"))
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}
	res, err := prover.Prove(ctx, proxy)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("verifier side: %v", err)
	}
	if dialed != 1 {
		t.Fatalf("dialed %d times", dialed)
	}
	if !bytes.Equal(res.ExtraData, []byte("ok")) || res.Status != message.StatusOKDone {
		t.Fatalf("result = %+v", res)
	}
}
