package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/cronokirby/saferith"
	"github.com/spf13/cobra"

	"github.com/luxfi/shamir-mpc/pkg/config"
	"github.com/luxfi/shamir-mpc/pkg/field"
	"github.com/luxfi/shamir-mpc/pkg/mpcerr"
	"github.com/luxfi/shamir-mpc/pkg/party"
	"github.com/luxfi/shamir-mpc/pkg/protocol"
	"github.com/luxfi/shamir-mpc/pkg/trace"
	"github.com/luxfi/shamir-mpc/pkg/transport"
)

var (
	id            int
	netConfigFile string
	corruptions   int
	inputStr      string
	verbose       bool

	rootCmd = &cobra.Command{
		Use:   "mpc-party",
		Short: "Run one party of the Shamir-sharing product protocol",
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().IntVar(&id, "id", -1, "zero-based party index (required)")
	rootCmd.Flags().StringVar(&netConfigFile, "net-config-file", "", "path to JSON network configuration (required)")
	rootCmd.Flags().IntVar(&corruptions, "corruptions", -1, "corruption threshold t (required)")
	rootCmd.Flags().StringVar(&inputStr, "input", "", "this party's secret multiplicand (required)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "emit a CBOR trace stream to stderr")
	rootCmd.MarkFlagRequired("id")
	rootCmd.MarkFlagRequired("net-config-file")
	rootCmd.MarkFlagRequired("corruptions")
	rootCmd.MarkFlagRequired("input")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	self := party.ID(id)

	cfg, n, err := config.LoadForParty(netConfigFile, corruptions)
	if err != nil {
		return configErr(err)
	}

	input, err := parseInput(inputStr)
	if err != nil {
		return configErr(err)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return configErr(err)
	}

	ctx := context.Background()
	mesh, err := transport.Bootstrap(ctx, transport.Params{
		Self:      self,
		N:         n,
		BasePort:  cfg.BasePort,
		PeerIPs:   cfg.PeerIPs,
		Timeout:   cfg.Timeout(),
		SleepTime: cfg.SleepTime(),
		TLSConfig: tlsConfig,
	})
	if err != nil {
		return networkErr(err)
	}
	defer mesh.Close()

	var tracer *trace.Tracer
	if verbose {
		tracer = trace.New(os.Stderr, n, corruptions, cfg.PeerIPs, cfg.BasePort)
	}

	eng, err := protocol.New(mesh, corruptions, tracer)
	if err != nil {
		return configErr(err)
	}

	product, err := eng.Run(ctx, input)
	if err != nil {
		return protocolErr(err)
	}

	fmt.Println(product.String())
	return nil
}

// parseInput reduces an arbitrary-precision decimal string modulo p via
// saferith.Nat, the same wide-integer boundary type used for evaluation
// points in pkg/party, so inputs wider than 64 bits are reduced modulo p
// instead of being truncated. A string that is not a decimal integer is
// rejected with a config error.
func parseInput(s string) (field.F, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return field.F{}, fmt.Errorf("%w: --input is not a valid decimal integer", mpcerr.ErrMissingField)
	}
	nat := new(saferith.Nat).SetBytes(n.Bytes())
	return field.FromNat(nat), nil
}

// buildTLSConfig reads the certificate files named in the network config
// and assembles the mutual-TLS configuration transport.Bootstrap needs.
// Reading certificate files is explicitly out of pkg/transport's scope
// (§1); it is the driver's job.
func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.ServerCert, cfg.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("load party certificate: %w", err)
	}

	pool := x509.NewCertPool()
	for _, path := range cfg.TrustedCerts {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read trusted cert %s: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("trusted cert %s: no certificates parsed", path)
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func configErr(err error) error {
	fmt.Fprintf(os.Stderr, "config: %v\n", err)
	return &exitError{code: 1, err: err}
}

func networkErr(err error) error {
	var pe *mpcerr.PeerError
	if errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "network: %v (peer %d)\n", pe.Err, pe.Peer)
	} else {
		fmt.Fprintf(os.Stderr, "network: %v\n", err)
	}
	return &exitError{code: 2, err: err}
}

func protocolErr(err error) error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		fmt.Fprintf(os.Stderr, "%v\n", perr)
	} else {
		fmt.Fprintf(os.Stderr, "protocol: %v\n", err)
	}
	return &exitError{code: 3, err: err}
}

// exitError carries the process exit code alongside the error so main can
// set it after RunE returns; cobra's own error printing is suppressed via
// SilenceErrors in init since configErr/networkErr/protocolErr already
// print the user-visible "kind: ... (peer N)" line §7 requires.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
