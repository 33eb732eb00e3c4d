package proof

import (
	"crypto/sha256"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 matches the hash the issuer wallet uses for P2WPKH addresses

	"github.com/yuvprotocol/node/pixel"
)

// DeriveKey recomputes the tweaked public key(s) a proof commits to. Most
// variants produce exactly one key; Multisig produces one per member of its
// pubkey multiset, each tweaked independently under the same pixel.
func DeriveKey(p Proof) ([][]byte, error) {
	switch p.Tag {
	case TagSig, TagEmptyPixel, TagLightningCommitment, TagLightningHtlc, TagBulletproof:
		inner := p.InnerKey
		if p.Tag == TagLightningCommitment {
			inner = p.RevocationKey
		} else if p.Tag == TagLightningHtlc {
			inner = p.HtlcKey
		}
		px := p.Pixel
		if p.Tag == TagBulletproof {
			px = pixel.NewPixel(pixel.Luma{}, p.Chroma)
		}
		tweaked, err := pixel.TweakedKey(px, inner)
		if err != nil {
			return nil, err
		}
		return [][]byte{tweaked}, nil

	case TagMultisig:
		keys := make([][]byte, len(p.PubKeys))
		for i, pk := range p.PubKeys {
			tweaked, err := pixel.TweakedKey(p.Pixel, pk)
			if err != nil {
				return nil, fmt.Errorf("proof: tweak multisig member %d: %w", i, err)
			}
			keys[i] = tweaked
		}
		return keys, nil

	default:
		return nil, ErrInvalidTag
	}
}

// DeriveScript derives the expected scriptPubKey bytes and script family
// for a proof, per the script family mapping: P2WPKH for Sig/EmptyPixel,
// P2WSH for Multisig and the Lightning variants, P2TR for Bulletproof.
func DeriveScript(p Proof) ([]byte, ScriptFamily, error) {
	keys, err := DeriveKey(p)
	if err != nil {
		return nil, 0, err
	}

	switch p.Tag {
	case TagSig, TagEmptyPixel:
		s, err := p2wpkh(keys[0])
		return s, ScriptP2WPKH, err

	case TagMultisig:
		redeem, err := multisigRedeemScript(p.K, p.N, keys)
		if err != nil {
			return nil, 0, err
		}
		s, err := p2wsh(redeem)
		return s, ScriptP2WSH, err

	case TagLightningCommitment, TagLightningHtlc:
		redeem, err := simpleCheckSigScript(keys[0])
		if err != nil {
			return nil, 0, err
		}
		s, err := p2wsh(redeem)
		return s, ScriptP2WSH, err

	case TagBulletproof:
		xOnly, err := xOnlyFromCompressed(keys[0])
		if err != nil {
			return nil, 0, err
		}
		s, err := p2tr(xOnly)
		return s, ScriptP2TR, err

	default:
		return nil, 0, ErrUnsupportedScript
	}
}

// p2wpkh builds a witness v0 pay-to-pubkey-hash scriptPubKey: OP_0 <20-byte
// HASH160(pubkey)>.
func p2wpkh(compressedPubKey []byte) ([]byte, error) {
	s := &script.Script{}
	if err := s.AppendOpcodes(script.Op0); err != nil {
		return nil, fmt.Errorf("proof: append OP_0: %w", err)
	}
	if err := s.AppendPushData(hash160(compressedPubKey)); err != nil {
		return nil, fmt.Errorf("proof: append pubkey hash: %w", err)
	}
	return []byte(*s), nil
}

// p2wsh builds a witness v0 pay-to-script-hash scriptPubKey: OP_0
// <32-byte SHA256(redeemScript)>.
func p2wsh(redeemScript []byte) ([]byte, error) {
	sum := sha256.Sum256(redeemScript)
	s := &script.Script{}
	if err := s.AppendOpcodes(script.Op0); err != nil {
		return nil, fmt.Errorf("proof: append OP_0: %w", err)
	}
	if err := s.AppendPushData(sum[:]); err != nil {
		return nil, fmt.Errorf("proof: append script hash: %w", err)
	}
	return []byte(*s), nil
}

// p2tr builds a witness v1 (Taproot) scriptPubKey: OP_1 <32-byte x-only
// output key>. The YUV protocol never tweaks the key a second time for the
// Taproot commitment; the pixel tweak itself is the only commitment the
// output carries.
func p2tr(xOnlyKey []byte) ([]byte, error) {
	s := &script.Script{}
	if err := s.AppendOpcodes(script.Op1); err != nil {
		return nil, fmt.Errorf("proof: append OP_1: %w", err)
	}
	if err := s.AppendPushData(xOnlyKey); err != nil {
		return nil, fmt.Errorf("proof: append output key: %w", err)
	}
	return []byte(*s), nil
}

// multisigRedeemScript builds an OP_k <pubkey>... OP_n OP_CHECKMULTISIG
// redeem script from k-of-n tweaked pubkeys.
func multisigRedeemScript(k, n uint8, pubKeys [][]byte) ([]byte, error) {
	if int(n) != len(pubKeys) {
		return nil, ErrInvalidMultisig
	}
	kOp, err := opNum(k)
	if err != nil {
		return nil, err
	}
	nOp, err := opNum(n)
	if err != nil {
		return nil, err
	}

	s := &script.Script{}
	if err := s.AppendOpcodes(kOp); err != nil {
		return nil, fmt.Errorf("proof: append OP_%d: %w", k, err)
	}
	for _, pk := range pubKeys {
		if err := s.AppendPushData(pk); err != nil {
			return nil, fmt.Errorf("proof: append multisig pubkey: %w", err)
		}
	}
	if err := s.AppendOpcodes(nOp, script.OpCHECKMULTISIG); err != nil {
		return nil, fmt.Errorf("proof: append OP_%d OP_CHECKMULTISIG: %w", n, err)
	}
	return []byte(*s), nil
}

// simpleCheckSigScript builds a <pubkey> OP_CHECKSIG redeem script, the
// simplified script-equality target used to bind Lightning commitment and
// HTLC outputs to their tweaked key.
func simpleCheckSigScript(pubKey []byte) ([]byte, error) {
	s := &script.Script{}
	if err := s.AppendPushData(pubKey); err != nil {
		return nil, fmt.Errorf("proof: append pubkey: %w", err)
	}
	if err := s.AppendOpcodes(script.OpCHECKSIG); err != nil {
		return nil, fmt.Errorf("proof: append OP_CHECKSIG: %w", err)
	}
	return []byte(*s), nil
}

// opNum returns the minimal-push opcode for small integers 1..16
// (OP_1 through OP_16).
func opNum(n uint8) (byte, error) {
	if n < 1 || n > 16 {
		return 0, fmt.Errorf("%w: multisig k/n must be 1..16, got %d", ErrInvalidMultisig, n)
	}
	return script.Op1 + (n - 1), nil
}

// hash160 computes RIPEMD160(SHA256(b)), the standard Bitcoin pubkey-hash
// function, matching the hash the issuer-side wallet would use when
// deriving the same output address.
func hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// xOnlyFromCompressed strips the parity byte from a 33-byte compressed
// public key, returning its 32-byte x-only coordinate for Taproot outputs.
func xOnlyFromCompressed(compressed []byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	x := pub.X()
	return x.Bytes()[:], nil
}
