package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcsigner/remote"
	"github.com/btcsuite/btcsigner/remote/bridge"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/btcsuite/btcsigner/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// errNoKeySource is returned when a command needs a signer but no key
// source was given.
var errNoKeySource = errors.New("one of --privkey, --mnemonic, --random " +
	"or --remote is required")

// openSigner builds the signer selected by the config. The returned cleanup
// function must be called when the signer is no longer needed.
func openSigner(cfg *config) (signer.Signer, func(), error) {
	noop := func() {}

	if cfg.Remote {
		client, err := bridge.Dial(cfg.Bridge)
		if err != nil {
			return nil, noop, err
		}

		rs, err := remote.New(client)
		if err != nil {
			_ = client.Stop()
			return nil, noop, err
		}

		return rs, func() { _ = client.Stop() }, nil
	}

	net, err := cfg.network()
	if err != nil {
		return nil, noop, err
	}

	addrType, err := cfg.addressType()
	if err != nil {
		return nil, noop, err
	}

	factory := signer.Factory{AddressType: addrType}
	params := signer.Params{Network: net}
	switch {
	case cfg.PrivKey != "":
		params.Strategy = signer.StrategyPrivateKey
		params.PrivateKey = cfg.PrivKey

	case cfg.Mnemonic != "":
		params.Strategy = signer.StrategyMnemonic
		params.Mnemonic = cfg.mnemonicParams()

	case cfg.Random:
		params.Strategy = signer.StrategyRandom

	default:
		return nil, noop, errNoKeySource
	}

	local, err := factory.New(params)
	if err != nil {
		return nil, noop, err
	}

	log.Infof("Using %v %s key for %v", addrType, params.Strategy, net)

	return local, noop, nil
}

// addressCmd prints the identity of the signer.
type addressCmd struct {
	cfg *config

	ShowKey bool `long:"showkey" description:"Also print the private key in WIF (local keys only)"`
}

// Execute implements flags.Commander.
func (c *addressCmd) Execute(_ []string) error {
	s, cleanup, err := openSigner(c.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if rs, ok := s.(*remote.Signer); ok {
		ctx := context.Background()

		accounts, err := rs.Accounts(ctx)
		if err != nil {
			return err
		}

		net, err := rs.Network(ctx)
		if err != nil {
			return err
		}

		for _, account := range accounts {
			fmt.Println(account)
		}
		fmt.Printf("network: %v\n", net)

		return nil
	}

	addr, err := s.Address().Unpack()
	if err != nil {
		return err
	}
	pubKey, err := s.PublicKey().Unpack()
	if err != nil {
		return err
	}
	net, err := s.NetworkType().Unpack()
	if err != nil {
		return err
	}

	fmt.Printf("address: %s\npubkey: %s\nnetwork: %v\n", addr, pubKey, net)

	if local, ok := s.(*signer.LocalSigner); ok && c.ShowKey {
		wif, err := local.Wallet().PrivateKeyWIF()
		if err != nil {
			return err
		}
		fmt.Printf("wif: %s\n", wif)
	}

	return nil
}

// signMessageCmd signs a text message.
type signMessageCmd struct {
	cfg *config

	Type string `long:"type" description:"Signature scheme" choice:"ecdsa" choice:"bip322-simple" default:"ecdsa"`

	Args struct {
		Message string `positional-arg-name:"message" required:"true"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *signMessageCmd) Execute(_ []string) error {
	s, cleanup, err := openSigner(c.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sig, err := s.SignMessage(
		context.Background(), c.Args.Message,
		signer.MessageSignType(c.Type),
	)
	if err != nil {
		return err
	}

	fmt.Println(sig)

	return nil
}

// verifyMessageCmd checks a message signature. It needs no key.
type verifyMessageCmd struct {
	cfg *config

	Type string `long:"type" description:"Signature scheme" choice:"ecdsa" choice:"bip322-simple" default:"ecdsa"`

	Args struct {
		Address   string `positional-arg-name:"address" required:"true"`
		Message   string `positional-arg-name:"message" required:"true"`
		Signature string `positional-arg-name:"signature" required:"true"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *verifyMessageCmd) Execute(_ []string) error {
	net, err := c.cfg.network()
	if err != nil {
		return err
	}

	err = wallet.VerifyMessage(
		c.Args.Address, net, c.Args.Message, c.Args.Signature,
		wallet.MessageSignType(c.Type),
	)
	if err != nil {
		return err
	}

	fmt.Println("signature is valid")

	return nil
}

// signPsbtCmd signs one or more hex encoded PSBTs.
type signPsbtCmd struct {
	cfg *config

	NoFinalize bool `long:"nofinalize" description:"Leave the signed inputs unfinalized"`
	Base64     bool `long:"base64" description:"Print the result in base64 instead of hex"`

	Args struct {
		Psbts []string `positional-arg-name:"psbt" required:"1"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *signPsbtCmd) Execute(_ []string) error {
	s, cleanup, err := openSigner(c.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var opts *signer.PsbtSignOptions
	if c.NoFinalize {
		opts = &signer.PsbtSignOptions{AutoFinalized: fn.Some(false)}
	}

	psbts := make([]signer.Psbt, 0, len(c.Args.Psbts))
	for _, p := range c.Args.Psbts {
		psbts = append(psbts, signer.PsbtHex(p))
	}

	signed, err := s.SignPsbts(context.Background(), psbts, opts)
	if err != nil {
		return err
	}

	for _, p := range signed {
		encoded, err := encodeSigned(p, c.Base64)
		if err != nil {
			return err
		}

		fmt.Println(encoded)
	}

	return nil
}

// encodeSigned returns the hex or base64 form of a signed PSBT.
func encodeSigned(p *signer.SignedPsbt, b64 bool) (string, error) {
	if b64 {
		return p.Base64()
	}

	return p.Hex()
}

// serveCmd exposes the local signer as a wallet bridge.
type serveCmd struct {
	cfg *config

	Listen string `long:"listen" description:"Address to serve the bridge on"`
}

// Execute implements flags.Commander.
func (c *serveCmd) Execute(_ []string) error {
	if c.cfg.Remote {
		return errors.New("serve needs a local key")
	}

	s, cleanup, err := openSigner(c.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	mux := http.NewServeMux()
	mux.Handle("/bridge", bridge.NewServer(s))

	srv := &http.Server{
		Addr:              c.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Infof("Serving wallet bridge on ws://%s/bridge", c.Listen)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err

	case <-ctx.Done():
		log.Infof("Shutting down wallet bridge")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
