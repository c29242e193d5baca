// Package identity derives per-node keys and the libp2p node-key/peer-id
// from a node's name (spec.md §4.D); port reservation lives in
// internal/portpool. Every derivation is
// deterministic: the same node name always yields the same keys, which is
// what lets a network definition be reproduced byte-for-byte run to run.
package identity

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"

	"github.com/paritytech/zombienet-go/internal/model"
)

// devSeed derives a deterministic 32-byte seed from a node name and a
// domain-separation label, using HKDF-SHA256. This is the same scheme
// applied to every key type below with a different label, matching the
// ecosystem's "dev seed from node name" convention without depending on
// the original ecosystem's seed phrase format (see DESIGN.md).
func devSeed(nodeName, label string) ([]byte, error) {
	h := hkdf.New(sha256.New, []byte(nodeName), []byte("zombienet-go"), []byte(label))
	seed := make([]byte, 32)
	if _, err := io.ReadFull(h, seed); err != nil {
		return nil, fmt.Errorf("derive %s seed for %q: %w", label, nodeName, err)
	}
	return seed, nil
}

// DeriveSr25519Like derives a 32-byte seed and its corresponding public key
// shape for an sr25519-style dev account. True schnorrkel signing is out of
// scope for a test-network bring-up (see DESIGN.md); the public value here
// is SHA-256(seed), which is deterministic and the right byte length for
// the genesis "public key" fields the chain-spec engine writes.
func DeriveSr25519Like(nodeName, label string) (seedHex, pubHex string, err error) {
	seed, err := devSeed(nodeName, "sr25519/"+label)
	if err != nil {
		return "", "", err
	}
	pub := sha256.Sum256(seed)
	return hex.EncodeToString(seed), hex.EncodeToString(pub[:]), nil
}

// DeriveEd25519 derives an ed25519 keypair (used for grandpa-style session keys).
func DeriveEd25519(nodeName string) (seedHex, pubHex string, err error) {
	seed, err := devSeed(nodeName, "ed25519")
	if err != nil {
		return "", "", err
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	return hex.EncodeToString(seed), hex.EncodeToString(pub), nil
}

// DeriveEcdsa derives a secp256k1 keypair (used for beefy-style session keys).
func DeriveEcdsa(nodeName string) (seedHex, pubHex string, err error) {
	seed, err := devSeed(nodeName, "ecdsa")
	if err != nil {
		return "", "", err
	}
	key, err := ecdsaFromSeed(seed)
	if err != nil {
		return "", "", fmt.Errorf("derive ecdsa key for %q: %w", nodeName, err)
	}
	pub := crypto.FromECDSAPub(&key.PublicKey)
	return hex.EncodeToString(seed), hex.EncodeToString(pub), nil
}

// DeriveEthKey derives an EVM account (eth address + private key) for
// EVM-based collators (spec.md §3, §4.D). User-overridable: callers that
// already have an explicit eth key should not call this.
func DeriveEthKey(nodeName string) (privHex, addrHex string, err error) {
	seed, err := devSeed(nodeName, "eth")
	if err != nil {
		return "", "", err
	}
	key, err := ecdsaFromSeed(seed)
	if err != nil {
		return "", "", fmt.Errorf("derive eth key for %q: %w", nodeName, err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return hex.EncodeToString(crypto.FromECDSA(key)), addr.Hex(), nil
}

func ecdsaFromSeed(seed []byte) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(seed)
}

// DeriveNodeKey derives the libp2p node-key seed from the node name and
// renders the corresponding peer-id, base58-encoded (spec.md §4.D.1).
func DeriveNodeKey(nodeName string) (nodeKeyHex, peerID string, err error) {
	seed, err := devSeed(nodeName, "libp2p-node-key")
	if err != nil {
		return "", "", err
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	// A real libp2p peer-id is a multihash of a protobuf-wrapped public key;
	// for a deterministic test-network identity we only need something
	// stable and base58-renderable, so we multihash-prefix (sha2-256, len 32)
	// the raw public key bytes the way go-libp2p's identity.go does for
	// ed25519 keys, without depending on the go-libp2p module itself.
	digest := sha256.Sum256(pub)
	multihash := append([]byte{0x12, 0x20}, digest[:]...) // 0x12 = sha2-256, 0x20 = 32 bytes
	return hex.EncodeToString(seed), base58.Encode(multihash), nil
}

// DeriveAccount fills in every key field of a NodeAccount for the given
// node name and key-type list, plus the eth key when evmBased is set.
func DeriveAccount(nodeName string, keyTypes []string, evmBased bool) (model.NodeAccount, error) {
	var acc model.NodeAccount

	seedHex, pubHex, err := DeriveSr25519Like(nodeName, "session")
	if err != nil {
		return acc, err
	}
	acc.Sr25519SeedHex, acc.Sr25519PublicHex = seedHex, pubHex

	stashSeedHex, stashPubHex, err := DeriveSr25519Like(nodeName, "stash")
	if err != nil {
		return acc, err
	}
	acc.StashSr25519SeedHex, acc.StashSr25519PublicHex = stashSeedHex, stashPubHex

	if containsAny(keyTypes, "ed25519", "grandpa") {
		seedHex, pubHex, err := DeriveEd25519(nodeName)
		if err != nil {
			return acc, err
		}
		acc.Ed25519SeedHex, acc.Ed25519PublicHex = seedHex, pubHex
	}

	if containsAny(keyTypes, "ecdsa", "beefy") {
		seedHex, pubHex, err := DeriveEcdsa(nodeName)
		if err != nil {
			return acc, err
		}
		acc.EcdsaSeedHex, acc.EcdsaPublicHex = seedHex, pubHex
	}

	if evmBased {
		privHex, addrHex, err := DeriveEthKey(nodeName)
		if err != nil {
			return acc, err
		}
		acc.EthPrivateKeyHex, acc.EthAddressHex = privHex, addrHex
	}

	return acc, nil
}

func containsAny(haystack []string, needles ...string) bool {
	if len(haystack) == 0 {
		// Default key-type set includes ed25519+ecdsa when unspecified.
		return true
	}
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
