// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

var (
	// ErrInvalidPath is returned when a derivation path cannot be parsed.
	ErrInvalidPath = errors.New("invalid derivation path")
)

// ParsePath parses a BIP-32 derivation path such as "m/84'/0'/0'/0/0".
// Hardened elements may be marked with either ' or h. The leading "m" is
// optional.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	elems := strings.Split(path, "/")
	if elems[0] == "m" || elems[0] == "M" {
		elems = elems[1:]
	}

	indexes := make([]uint32, 0, len(elems))
	for i, elem := range elems {
		index, err := parseElem(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v",
				ErrInvalidPath, i, err)
		}

		indexes = append(indexes, index)
	}

	return indexes, nil
}

func parseElem(elem string) (uint32, error) {
	hardened := false
	switch {
	case strings.HasSuffix(elem, "'"):
		hardened = true
		elem = strings.TrimSuffix(elem, "'")

	case strings.HasSuffix(elem, "h"), strings.HasSuffix(elem, "H"):
		hardened = true
		elem = elem[:len(elem)-1]
	}

	if elem == "" {
		return 0, errors.New("missing index")
	}

	parsed, err := strconv.ParseUint(elem, 10, 32)
	if err != nil {
		return 0, err
	}

	index := uint32(parsed)
	if index >= hdkeychain.HardenedKeyStart {
		return 0, fmt.Errorf("index %d out of range", index)
	}

	if hardened {
		index += hdkeychain.HardenedKeyStart
	}

	return index, nil
}
