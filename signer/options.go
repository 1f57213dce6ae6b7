package signer

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcsigner/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// PsbtSignOptions is the caller facing PSBT signing options. Its JSON form
// is the camelCase shape browser wallets accept.
type PsbtSignOptions struct {
	// AutoFinalized finalizes the signed inputs. It defaults to true
	// unless explicitly set to false.
	AutoFinalized fn.Option[bool]

	// ToSignInputs lists the inputs to sign.
	ToSignInputs []ToSignInput
}

// ToSignInput describes one input to sign.
type ToSignInput struct {
	Index              int
	Address            string
	PublicKey          string
	SighashTypes       []int
	UseTweakedSigner   fn.Option[bool]
	DisableTweakSigner fn.Option[bool]

	// TapLeafHashToSign is passed through without interpretation.
	TapLeafHashToSign []byte
}

// normalizeOptions converts the public options into the wallet's options.
// The only defaulting is AutoFinalized, which is true unless explicitly
// false; inputs are copied verbatim.
func normalizeOptions(opts *PsbtSignOptions) wallet.SignPsbtOptions {
	if opts == nil {
		return wallet.SignPsbtOptions{AutoFinalized: true}
	}

	normalized := wallet.SignPsbtOptions{
		AutoFinalized: opts.AutoFinalized.UnwrapOr(true),
	}

	if opts.ToSignInputs == nil {
		return normalized
	}

	normalized.ToSignInputs = make(
		[]wallet.ToSignInput, 0, len(opts.ToSignInputs),
	)
	for _, in := range opts.ToSignInputs {
		normalized.ToSignInputs = append(
			normalized.ToSignInputs, wallet.ToSignInput{
				Index:              in.Index,
				Address:            in.Address,
				PublicKey:          in.PublicKey,
				SighashTypes:       in.SighashTypes,
				UseTweakedSigner:   in.UseTweakedSigner,
				DisableTweakSigner: in.DisableTweakSigner,
				TapLeafHashToSign:  in.TapLeafHashToSign,
			},
		)
	}

	return normalized
}

type jsonSignOptions struct {
	AutoFinalized *bool             `json:"autoFinalized,omitempty"`
	ToSignInputs  []jsonToSignInput `json:"toSignInputs,omitempty"`
}

type jsonToSignInput struct {
	Index              int    `json:"index"`
	Address            string `json:"address,omitempty"`
	PublicKey          string `json:"publicKey,omitempty"`
	SighashTypes       []int  `json:"sighashTypes,omitempty"`
	UseTweakedSigner   *bool  `json:"useTweakedSigner,omitempty"`
	DisableTweakSigner *bool  `json:"disableTweakSigner,omitempty"`
	TapLeafHashToSign  string `json:"tapLeafHashToSign,omitempty"`
}

// optionPtr returns nil for None and a pointer to the value otherwise.
func optionPtr(o fn.Option[bool]) *bool {
	var ptr *bool
	o.WhenSome(func(b bool) {
		ptr = &b
	})

	return ptr
}

// MarshalJSON encodes the options in their wire shape. Tap leaf hashes are
// hex encoded.
func (o PsbtSignOptions) MarshalJSON() ([]byte, error) {
	wire := jsonSignOptions{
		AutoFinalized: optionPtr(o.AutoFinalized),
	}

	for _, in := range o.ToSignInputs {
		wire.ToSignInputs = append(wire.ToSignInputs, jsonToSignInput{
			Index:              in.Index,
			Address:            in.Address,
			PublicKey:          in.PublicKey,
			SighashTypes:       in.SighashTypes,
			UseTweakedSigner:   optionPtr(in.UseTweakedSigner),
			DisableTweakSigner: optionPtr(in.DisableTweakSigner),
			TapLeafHashToSign:  hex.EncodeToString(in.TapLeafHashToSign),
		})
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (o *PsbtSignOptions) UnmarshalJSON(data []byte) error {
	var wire jsonSignOptions
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*o = PsbtSignOptions{
		AutoFinalized: fn.OptionFromPtr(wire.AutoFinalized),
	}

	for _, in := range wire.ToSignInputs {
		var leafHash []byte
		if in.TapLeafHashToSign != "" {
			var err error
			leafHash, err = hex.DecodeString(in.TapLeafHashToSign)
			if err != nil {
				return err
			}
		}

		o.ToSignInputs = append(o.ToSignInputs, ToSignInput{
			Index:        in.Index,
			Address:      in.Address,
			PublicKey:    in.PublicKey,
			SighashTypes: in.SighashTypes,
			UseTweakedSigner: fn.OptionFromPtr(
				in.UseTweakedSigner,
			),
			DisableTweakSigner: fn.OptionFromPtr(
				in.DisableTweakSigner,
			),
			TapLeafHashToSign: leafHash,
		})
	}

	return nil
}
