// Command mud is a minimal end-to-end driver for the tunnel engine: it
// opens a socket, optionally configures one peer, and pumps stdin/stdout
// through Send/Recv while pacing the control tick on a timer. Driving the
// engine's poll loop is explicitly out of the engine's own scope (spec.md
// §1) — this is the external collaborator the spec assumes, kept small.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mud"
	"mud/internal/mudlog"
	"mud/internal/udpsocket"
)

func main() {
	port := flag.Uint("port", 5000, "local UDP port")
	enableV4 := flag.Bool("v4", true, "enable IPv4")
	enableV6 := flag.Bool("v6", false, "enable IPv6")
	preferAES := flag.Bool("aes", true, "advertise AES-256-GCM capability")
	mtu := flag.Uint("mtu", 1450, "local MTU, 500..1450")
	keyHex := flag.String("key", "", "32-byte long-term key, hex-encoded (random if empty)")
	localLit := flag.String("local", "", "local IP literal for the peer entry")
	remoteLit := flag.String("peer", "", "remote host:port for the peer entry")
	backup := flag.Bool("backup", false, "mark the configured peer path as backup")
	flag.Parse()

	sock, err := udpsocket.New(uint16(*port), *enableV4, *enableV6)
	if err != nil {
		mudlog.Warnf("socket setup failed: %v", err)
		os.Exit(1)
	}
	defer func() { _ = sock.Close() }()

	e, err := mud.Create(mud.Config{
		Port:      uint16(*port),
		EnableV4:  *enableV4,
		EnableV6:  *enableV6,
		PreferAES: *preferAES,
		MTU:       uint64(*mtu),
		Socket:    sock,
	})
	if err != nil {
		mudlog.Warnf("engine create failed: %v", err)
		os.Exit(1)
	}
	defer func() { _ = e.Delete() }()

	if *keyHex != "" {
		raw, err := hex.DecodeString(*keyHex)
		if err != nil || len(raw) != 32 {
			mudlog.Warnf("invalid -key: must be 32 bytes hex")
			os.Exit(1)
		}
		var key [32]byte
		copy(key[:], raw)
		if err := e.SetKey(key); err != nil {
			mudlog.Warnf("set key failed: %v", err)
			os.Exit(1)
		}
	}

	if *remoteLit != "" {
		local, remote, perr := parsePeerFlags(*localLit, *remoteLit)
		if perr != nil {
			mudlog.Warnf("invalid peer configuration: %v", perr)
			os.Exit(1)
		}
		if _, err := e.Peer(local, remote, *backup); err != nil {
			mudlog.Warnf("peer configuration failed: %v", err)
			os.Exit(1)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go pumpStdinToSend(e)
	go pumpRecvToStdout(e)
	go paceControlTick(e)

	<-sigCh
	mudlog.Infof("shutting down")
}

func pumpStdinToSend(e *mud.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if _, err := e.Send(line, 0); err != nil {
			mudlog.Warnf("send failed: %v", err)
		}
	}
}

func pumpRecvToStdout(e *mud.Engine) {
	buf := make([]byte, 2048)
	for {
		n, err := e.Recv(buf)
		if err != nil {
			mudlog.Warnf("recv failed: %v", err)
			return
		}
		if n > 0 {
			fmt.Println(string(buf[:n]))
		}
	}
}

func paceControlTick(e *mud.Engine) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		e.Tick()
	}
}

func parsePeerFlags(localLit, remoteLit string) (mud.IPAddr, mud.SockAddr, error) {
	if localLit == "" {
		return mud.IPAddr{}, mud.SockAddr{}, fmt.Errorf("missing -local")
	}
	local, err := mud.ParseIPLiteral(localLit)
	if err != nil {
		return mud.IPAddr{}, mud.SockAddr{}, err
	}
	host, port, err := splitHostPort(remoteLit)
	if err != nil {
		return mud.IPAddr{}, mud.SockAddr{}, err
	}
	remoteIP, err := mud.ParseIPLiteral(host)
	if err != nil {
		return mud.IPAddr{}, mud.SockAddr{}, err
	}
	return local, mud.SockAddr{IP: remoteIP, Port: port}, nil
}

func splitHostPort(hostport string) (host string, port uint16, err error) {
	h, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	n, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return "", 0, err
	}
	return h, uint16(n), nil
}
