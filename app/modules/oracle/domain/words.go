package oracledomain

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// DeriveWords returns n words where word i is keccak256 over the 32-byte
// big-endian encodings of requestID and i. The same request always yields the
// same words, so a redelivered fulfillment cannot change the outcome.
func DeriveWords(requestID int64, n uint32) []*big.Int {
	words := make([]*big.Int, 0, n)
	var buf [64]byte
	for i := uint32(0); i < n; i++ {
		clear(buf[:])
		big.NewInt(requestID).FillBytes(buf[:32])
		new(big.Int).SetUint64(uint64(i)).FillBytes(buf[32:])

		h := sha3.NewLegacyKeccak256()
		h.Write(buf[:])
		words = append(words, new(big.Int).SetBytes(h.Sum(nil)))
	}
	return words
}

// EncodeWords renders words in base 10 for the wire.
func EncodeWords(words []*big.Int) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.String()
	}
	return out
}

// DecodeWords parses base 10 words. Negative or malformed values are rejected.
func DecodeWords(encoded []string) ([]*big.Int, bool) {
	out := make([]*big.Int, len(encoded))
	for i, s := range encoded {
		w, ok := new(big.Int).SetString(s, 10)
		if !ok || w.Sign() < 0 || w.BitLen() > 256 {
			return nil, false
		}
		out[i] = w
	}
	return out, true
}
