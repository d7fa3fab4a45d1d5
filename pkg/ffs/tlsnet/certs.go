package tlsnet

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CertOptions tunes GenerateCertificates. Zero fields take the defaults.
type CertOptions struct {
	// KeyBits is the RSA key size for the CA and the parties. Default 3072.
	KeyBits int

	// ValidityDays is the certificate lifetime. Default 365.
	ValidityDays int

	// IncludeLocalhost adds localhost and 127.0.0.1 SANs for local demos.
	IncludeLocalhost bool
}

func (o CertOptions) withDefaults() CertOptions {
	if o.KeyBits == 0 {
		o.KeyBits = 3072
	}
	if o.ValidityDays == 0 {
		o.ValidityDays = 365
	}
	return o
}

// CAFile is the name of the CA certificate written by GenerateCertificates.
const CAFile = "rootCA.pem"

// CertFile and KeyFile return the file names used for a party's credentials.
func CertFile(name string) string { return name + "-cert.pem" }

func KeyFile(name string) string { return name + "-key.pem" }

// GenerateCertificates writes a demo CA and one certificate per party to
// outputDir, which must lie inside the working directory. Party certificates
// serve both server and client authentication.
func GenerateCertificates(names []string, outputDir string, opts CertOptions) error {
	if len(names) < 2 {
		return fmt.Errorf("tlsnet: provide at least two party names (got %v)", names)
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("tlsnet: invalid party name %q", name)
		}
		if seen[name] {
			return fmt.Errorf("tlsnet: duplicate party name %q", name)
		}
		seen[name] = true
	}
	opts = opts.withDefaults()
	if opts.KeyBits < 2048 {
		return fmt.Errorf("tlsnet: key size %d below 2048 bits", opts.KeyBits)
	}
	if opts.ValidityDays < 0 {
		return fmt.Errorf("tlsnet: negative validity %d", opts.ValidityDays)
	}

	absDir, err := securePath(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outputDir = absDir

	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(time.Duration(opts.ValidityDays) * 24 * time.Hour)

	caKey, err := rsa.GenerateKey(rand.Reader, opts.KeyBits)
	if err != nil {
		return fmt.Errorf("generate CA key: %w", err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "ffs-go-demo-ca"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		return fmt.Errorf("create CA certificate: %w", err)
	}
	if err := writeCert(filepath.Join(outputDir, CAFile), caDER); err != nil {
		return err
	}
	if err := writeKey(filepath.Join(outputDir, "rootCA-key.pem"), caKey); err != nil {
		return err
	}

	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return fmt.Errorf("parse CA certificate: %w", err)
	}

	for i, name := range names {
		key, err := rsa.GenerateKey(rand.Reader, opts.KeyBits)
		if err != nil {
			return fmt.Errorf("generate key for %s: %w", name, err)
		}
		tmpl := &x509.Certificate{
			SerialNumber: big.NewInt(int64(i + 2)),
			Subject:      pkix.Name{CommonName: name},
			NotBefore:    notBefore,
			NotAfter:     notAfter,
			KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
			ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
			DNSNames:     []string{name},
		}
		if opts.IncludeLocalhost {
			tmpl.DNSNames = append(tmpl.DNSNames, "localhost")
			tmpl.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
		}
		der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
		if err != nil {
			return fmt.Errorf("create cert for %s: %w", name, err)
		}
		if err := writeCert(filepath.Join(outputDir, CertFile(name)), der); err != nil {
			return err
		}
		if err := writeKey(filepath.Join(outputDir, KeyFile(name)), key); err != nil {
			return err
		}
	}

	return nil
}

// LoadCertificates reads the CA pool and the key pair of party name from dir.
func LoadCertificates(dir, name string) (tls.Certificate, *x509.CertPool, error) {
	dir = filepath.Clean(dir)
	caPEM, err := os.ReadFile(filepath.Join(dir, CAFile))
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("read CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return tls.Certificate{}, nil, errors.New("tlsnet: no certificates in CA file")
	}
	cert, err := tls.LoadX509KeyPair(filepath.Join(dir, CertFile(name)), filepath.Join(dir, KeyFile(name)))
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("load key pair for %s: %w", name, err)
	}
	return cert, pool, nil
}

func writeCert(path string, der []byte) error {
	return writePEM(path, &pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func writeKey(path string, key *rsa.PrivateKey) error {
	return writePEM(path, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func writePEM(path string, block *pem.Block) error {
	cleanPath, err := securePath(path)
	if err != nil {
		return fmt.Errorf("sanitize path %s: %w", path, err)
	}
	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- cleanPath validated by securePath
	if err != nil {
		return fmt.Errorf("open %s: %w", cleanPath, err)
	}
	if err := pem.Encode(f, block); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", cleanPath, err)
	}
	return f.Close()
}

func securePath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	base, err := os.Getwd()
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes working directory", path)
	}
	return absPath, nil
}
