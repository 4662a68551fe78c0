package bridge

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Certificate and TLS capabilities
// ---------------------------------------------------------------------------

// certSummary is the JSON shape cert.parse produces.
type certSummary struct {
	Subject   string   `json:"subject"`
	Issuer    string   `json:"issuer"`
	Serial    string   `json:"serial"`
	NotBefore string   `json:"not_before"`
	NotAfter  string   `json:"not_after"`
	DNSNames  []string `json:"dns_names,omitempty"`
	IsCA      bool     `json:"is_ca"`
}

// tlsReport is the JSON shape tls.probe produces.
type tlsReport struct {
	Target  string        `json:"target"`
	Version string        `json:"version"`
	Cipher  string        `json:"cipher"`
	Peer    []certSummary `json:"peer_chain"`
}

func summarize(cert *x509.Certificate) certSummary {
	return certSummary{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		Serial:    cert.SerialNumber.String(),
		NotBefore: cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:  cert.NotAfter.UTC().Format(time.RFC3339),
		DNSNames:  cert.DNSNames,
		IsCA:      cert.IsCA,
	}
}

// TLSProbe reports the negotiated parameters of a TLS endpoint. It is a
// stateful capability: the handshake configuration is captured at
// construction, not passed per call, so one registry can expose probes
// with different trust roots under different names.
type TLSProbe struct {
	config  *tls.Config
	timeout time.Duration
}

// NewTLSProbe builds a probe around a handshake configuration. A nil
// config verifies against the system roots.
func NewTLSProbe(config *tls.Config) *TLSProbe {
	if config == nil {
		config = &tls.Config{}
	}
	return &TLSProbe{config: config, timeout: 10 * time.Second}
}

// Invoke dials the host[:port] named by the single argument, completes a
// handshake, and returns a JSON report of the negotiated version, cipher,
// and peer chain. Ports default to 443.
func (p *TLSProbe) Invoke(args [][]byte) ([]byte, error) {
	if err := wantArgs("tls.probe", args, 1); err != nil {
		return nil, err
	}
	target := string(args[0])
	if !strings.Contains(target, ":") {
		target += ":443"
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", target, p.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotConnected, target, err)
	}
	defer conn.Close()

	state := conn.ConnectionState()
	report := tlsReport{
		Target:  target,
		Version: tls.VersionName(state.Version),
		Cipher:  tls.CipherSuiteName(state.CipherSuite),
	}
	for _, cert := range state.PeerCertificates {
		report.Peer = append(report.Peer, summarize(cert))
	}
	return json.Marshal(report)
}

func registerTLSCapabilities(reg *BuiltinRegistry) error {
	// cert.parse: PEM certificate -> JSON summary
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "cert.parse",
		Description: "Parse a PEM certificate into a JSON summary",
		Category:    "tls",
		Arity:       1,
		Keywords:    []string{"certificate", "parse", "pem", "x509"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("cert.parse", args, 1); err != nil {
			return nil, err
		}
		block, _ := pem.Decode(args[0])
		if block == nil || block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: cert.parse: no CERTIFICATE block in input", ErrConversion)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: cert.parse: %v", ErrConversion, err)
		}
		return json.Marshal(summarize(cert))
	}); err != nil {
		return err
	}

	// tls.probe: host[:port] -> JSON handshake report
	return reg.Register(CapabilityInfo{
		Name:        "tls.probe",
		Description: "Handshake with a TLS endpoint and report version, cipher and peer chain",
		Category:    "tls",
		Arity:       1,
		Keywords:    []string{"tls", "ssl", "probe", "handshake", "certificate"},
	}, NewTLSProbe(nil))
}
